package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/barekit/sqlpipe/pkg/llm"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Provider implements llm.Provider using the OpenAI chat completions API.
// With option.WithBaseURL it can front any host exposing the OpenAI surface.
type Provider struct {
	client *openai.Client
	model  string
}

// New creates a new OpenAI provider.
func New(opts ...option.RequestOption) *Provider {
	client := openai.NewClient(opts...)
	return &Provider{
		client: &client,
		model:  openai.ChatModelGPT4o,
	}
}

// SetModel sets the model to use.
func (p *Provider) SetModel(model string) {
	p.model = model
}

// Model returns the configured model identifier.
func (p *Provider) Model() string {
	return p.model
}

// Complete sends the messages to the model and returns the full response text.
func (p *Provider) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: buildMessages(messages),
		Model:    p.model,
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return completion.Choices[0].Message.Content, nil
}

// Stream sends the messages to the model and returns a channel of response chunks.
func (p *Provider) Stream(ctx context.Context, messages []llm.Message) (<-chan string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: buildMessages(messages),
		Model:    p.model,
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	out := make(chan string)
	go func() {
		defer close(out)
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				select {
				case out <- chunk.Choices[0].Delta.Content:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			slog.Error("openai stream failed", "model", p.model, "error", err)
		}
	}()

	return out, nil
}

func buildMessages(messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			out[i] = openai.SystemMessage(msg.Content)
		case llm.RoleAssistant:
			out[i] = openai.AssistantMessage(msg.Content)
		default:
			out[i] = openai.UserMessage(msg.Content)
		}
	}
	return out
}
