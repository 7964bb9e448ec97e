package llm

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/icp-research/internal/config"
	"github.com/sells-group/icp-research/internal/resilience"
	"github.com/sells-group/icp-research/pkg/anthropic"
	"github.com/sells-group/icp-research/pkg/openai"
)

// Request is a single prompt sent to a provider.
type Request struct {
	Task        TaskType
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int64
}

// Completion is a provider's answer plus accounting.
type Completion struct {
	Text         string
	Provider     string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Provider is one model vendor behind the gateway.
type Provider interface {
	Name() string
	// Configured reports whether credentials are present.
	Configured() bool
	Model(tier Tier) string
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// AnthropicProvider adapts pkg/anthropic.
type AnthropicProvider struct {
	client anthropic.Client
	cfg    config.AnthropicConfig
}

// NewAnthropicProvider builds the provider; client may be nil when no key
// is configured.
func NewAnthropicProvider(client anthropic.Client, cfg config.AnthropicConfig) *AnthropicProvider {
	return &AnthropicProvider{client: client, cfg: cfg}
}

func (p *AnthropicProvider) Name() string { return ProviderAnthropic }

func (p *AnthropicProvider) Configured() bool { return p.client != nil && p.cfg.Key != "" }

func (p *AnthropicProvider) Model(tier Tier) string {
	if tier == TierFast {
		return p.cfg.HaikuModel
	}
	return p.cfg.SonnetModel
}

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	temp := req.Temperature
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	})
	if err != nil {
		var se *anthropic.StatusError
		if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
			return nil, resilience.NewTransientError(err, se.StatusCode)
		}
		return nil, err
	}
	resp.Usage.LogCost(req.Model, string(req.Task))

	text := resp.Text()
	if text == "" {
		return nil, eris.Errorf("anthropic: empty completion (stop_reason=%s)", resp.StopReason)
	}
	return &Completion{
		Text:         text,
		Provider:     ProviderAnthropic,
		Model:        req.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// OpenAIProvider adapts pkg/openai.
type OpenAIProvider struct {
	client openai.Client
	cfg    config.OpenAIConfig
}

// NewOpenAIProvider builds the provider; client may be nil when no key is
// configured.
func NewOpenAIProvider(client openai.Client, cfg config.OpenAIConfig) *OpenAIProvider {
	return &OpenAIProvider{client: client, cfg: cfg}
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

func (p *OpenAIProvider) Configured() bool { return p.client != nil && p.cfg.Key != "" }

func (p *OpenAIProvider) Model(tier Tier) string {
	if tier == TierDeep {
		return p.cfg.Model
	}
	return p.cfg.CreativeModel
}

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	temp := req.Temperature
	resp, err := p.client.ChatCompletion(ctx, openai.ChatRequest{
		Model:       req.Model,
		Messages:    []openai.ChatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return nil, resilience.NewTransientError(err, apiErr.StatusCode)
		}
		return nil, err
	}

	zap.L().Info("cost attribution",
		zap.String("provider", ProviderOpenAI),
		zap.String("model", req.Model),
		zap.String("task", string(req.Task)),
		zap.Int64("input_tokens", resp.Usage.PromptTokens),
		zap.Int64("output_tokens", resp.Usage.CompletionTokens),
	)

	text := resp.Text()
	if text == "" {
		return nil, eris.New("openai: empty completion")
	}
	return &Completion{
		Text:         text,
		Provider:     ProviderOpenAI,
		Model:        req.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
