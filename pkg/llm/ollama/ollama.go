package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/barekit/sqlpipe/pkg/llm"
)

// Config holds the connection settings for an Ollama host.
type Config struct {
	// BaseURL is the Ollama host, e.g. "http://localhost:11434".
	BaseURL string
	// Model is the model identifier, e.g. "phi3:medium-128k".
	Model string
	// RequestTimeout bounds a Complete call including reading the full
	// response body. For Stream it bounds connecting and waiting for the
	// response headers only, so a generation still producing chunks is
	// never cut off mid-answer. Zero means no timeout.
	RequestTimeout time.Duration
	// ContextWindow sets the model's num_ctx option. Zero leaves the
	// model default in place.
	ContextWindow int
}

// Provider implements llm.Provider against Ollama's native chat API.
type Provider struct {
	cfg          Config
	client       *http.Client
	streamClient *http.Client
}

// New creates a new Ollama provider.
func New(cfg Config) *Provider {
	streamTransport := http.DefaultTransport.(*http.Transport).Clone()
	streamTransport.ResponseHeaderTimeout = cfg.RequestTimeout

	return &Provider{
		cfg:          cfg,
		client:       &http.Client{Timeout: cfg.RequestTimeout},
		streamClient: &http.Client{Transport: streamTransport},
	}
}

// Model returns the configured model identifier.
func (p *Provider) Model() string {
	return p.cfg.Model
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Complete sends the messages to the model and returns the full response text.
func (p *Provider) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	body, err := p.chat(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var full bytes.Buffer
	if err := scanChunks(body, func(c chatChunk) {
		full.WriteString(c.Message.Content)
	}); err != nil {
		return "", err
	}
	return full.String(), nil
}

// Stream sends the messages to the model and returns a channel of response
// chunks. Connection and HTTP-level failures are returned before any chunk is
// produced; failures mid-stream are logged and close the channel early.
func (p *Provider) Stream(ctx context.Context, messages []llm.Message) (<-chan string, error) {
	body, err := p.chat(ctx, messages, true)
	if err != nil {
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer body.Close()

		err := scanChunks(body, func(c chatChunk) {
			if c.Message.Content == "" {
				return
			}
			select {
			case out <- c.Message.Content:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("ollama stream failed", "model", p.cfg.Model, "error", err)
		}
	}()

	return out, nil
}

// chat performs the HTTP request to Ollama's chat endpoint and returns the
// response body for the caller to consume.
func (p *Provider) chat(ctx context.Context, messages []llm.Message, stream bool) (io.ReadCloser, error) {
	msgs := make([]chatMessage, len(messages))
	for i, m := range messages {
		msgs[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}

	req := chatRequest{
		Model:    p.cfg.Model,
		Messages: msgs,
		Stream:   stream,
	}
	if p.cfg.ContextWindow > 0 {
		req.Options = map[string]any{"num_ctx": p.cfg.ContextWindow}
	}

	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/chat", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := p.client
	if stream {
		client = p.streamClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach ollama at %s: %w", p.cfg.BaseURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	return resp.Body, nil
}

// scanChunks decodes Ollama's newline-delimited JSON chunks. Ollama may send
// multiple chunks even when stream=false.
func scanChunks(r io.Reader, fn func(chatChunk)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("failed to decode chunk: %w (line=%q)", err, string(line))
		}
		if chunk.Error != "" {
			return fmt.Errorf("ollama error: %s", chunk.Error)
		}

		fn(chunk)

		if chunk.Done {
			break
		}
	}
	return sc.Err()
}
