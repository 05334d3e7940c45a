package ollama_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/barekit/sqlpipe/pkg/llm"
	"github.com/barekit/sqlpipe/pkg/llm/ollama"
)

type recordedRequest struct {
	Model    string         `json:"model"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestComplete(t *testing.T) {
	var got recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("expected /api/chat, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		// Ollama replies with newline-delimited JSON even for stream=false.
		fmt.Fprintln(w, `{"message":{"content":"Hello"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":" world"},"done":true}`)
	}))
	defer srv.Close()

	p := ollama.New(ollama.Config{
		BaseURL:        srv.URL,
		Model:          "phi3:medium-128k",
		RequestTimeout: 5 * time.Second,
		ContextWindow:  30000,
	})

	resp, err := p.Complete(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp != "Hello world" {
		t.Errorf("expected 'Hello world', got %q", resp)
	}

	if got.Model != "phi3:medium-128k" {
		t.Errorf("expected model phi3:medium-128k, got %q", got.Model)
	}
	if got.Stream {
		t.Error("expected stream=false for Complete")
	}
	if ctxLen, ok := got.Options["num_ctx"].(float64); !ok || int(ctxLen) != 30000 {
		t.Errorf("expected options.num_ctx=30000, got %v", got.Options["num_ctx"])
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "hi" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got recordedRequest
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if !got.Stream {
			t.Error("expected stream=true for Stream")
		}
		fmt.Fprintln(w, `{"message":{"content":"one"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":"two"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":""},"done":true}`)
	}))
	defer srv.Close()

	p := ollama.New(ollama.Config{BaseURL: srv.URL, Model: "m"})

	stream, err := p.Stream(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "q"}})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	var chunks []string
	for chunk := range stream {
		chunks = append(chunks, chunk)
	}
	if len(chunks) != 2 || chunks[0] != "one" || chunks[1] != "two" {
		t.Errorf("unexpected chunks: %v", chunks)
	}

	// Fully consumed stream stays closed.
	if _, ok := <-stream; ok {
		t.Error("expected closed channel after consumption")
	}
}

func TestStreamOutlivesRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("response writer does not support flushing")
		}
		fmt.Fprintln(w, `{"message":{"content":"slow"},"done":false}`)
		flusher.Flush()
		// Keep generating past the request timeout. The timeout bounds
		// waiting for headers, not reading the streamed body.
		time.Sleep(300 * time.Millisecond)
		fmt.Fprintln(w, `{"message":{"content":" answer"},"done":true}`)
	}))
	defer srv.Close()

	p := ollama.New(ollama.Config{
		BaseURL:        srv.URL,
		Model:          "m",
		RequestTimeout: 100 * time.Millisecond,
	})

	stream, err := p.Stream(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "q"}})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	var chunks []string
	for chunk := range stream {
		chunks = append(chunks, chunk)
	}
	if len(chunks) != 2 || chunks[0] != "slow" || chunks[1] != " answer" {
		t.Errorf("stream was cut off before generation finished: %v", chunks)
	}
}

func TestCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := ollama.New(ollama.Config{BaseURL: srv.URL, Model: "missing"})
	if _, err := p.Complete(context.Background(), nil); err == nil {
		t.Fatal("expected error for HTTP 404")
	}
}

func TestCompleteErrorChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error":"model is overloaded"}`)
	}))
	defer srv.Close()

	p := ollama.New(ollama.Config{BaseURL: srv.URL, Model: "m"})
	_, err := p.Complete(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error from error chunk")
	}
}

func TestCompleteUnreachableHost(t *testing.T) {
	p := ollama.New(ollama.Config{
		BaseURL:        "http://127.0.0.1:1",
		Model:          "m",
		RequestTimeout: time.Second,
	})
	if _, err := p.Complete(context.Background(), nil); err == nil {
		t.Fatal("expected error for unreachable host")
	}
}

func TestNoContextWindowOmitsOptions(t *testing.T) {
	var got recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		fmt.Fprintln(w, `{"message":{"content":"ok"},"done":true}`)
	}))
	defer srv.Close()

	p := ollama.New(ollama.Config{BaseURL: srv.URL, Model: "m"})
	if _, err := p.Complete(context.Background(), nil); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got.Options != nil {
		t.Errorf("expected no options, got %v", got.Options)
	}
}
