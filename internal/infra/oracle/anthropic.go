package oracle

import (
	"context"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicProvider backs the oracle with the Anthropic Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
	apiKey string
}

// NewAnthropicProvider creates an Anthropic-backed provider. An empty
// baseURL uses the public endpoint.
func NewAnthropicProvider(apiKey, model, baseURL string) *AnthropicProvider {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
		apiKey: apiKey,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) IsAvailable() bool { return p.apiKey != "" }

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if !p.IsAvailable() {
		return nil, ErrNotConfigured
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	// Anthropic takes the system prompt out-of-band, not as a message.
	var system string
	var messages []anthropic.Message
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "assistant":
			messages = append(messages, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
			})
		default:
			messages = append(messages, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
			})
		}
	}

	temperature := float32(req.Temperature)
	start := time.Now()
	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(model),
		System:      system,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Content) == 0 || resp.Content[0].Text == nil {
		return nil, ErrEmptyResponse
	}

	return &CompletionResponse{
		Content:      *resp.Content[0].Text,
		Model:        string(resp.Model),
		PromptTokens: resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		Latency:      time.Since(start),
	}, nil
}
