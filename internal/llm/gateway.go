package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/icp-research/internal/config"
	"github.com/sells-group/icp-research/internal/resilience"
	"github.com/sells-group/icp-research/pkg/anthropic"
	"github.com/sells-group/icp-research/pkg/openai"
)

// maxProviders bounds how many providers one call may try: the preferred
// one plus a single fallback.
const maxProviders = 2

// Completer is the gateway capability the pipeline depends on.
type Completer interface {
	Complete(ctx context.Context, task TaskType, prompt string) (*Completion, error)
}

// Gateway implements Completer over a fixed set of providers.
type Gateway struct {
	providers map[string]Provider
	order     []string
	timeout   time.Duration
	retry     resilience.RetryConfig
	breakers  *resilience.Breakers
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout bounds each provider attempt.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithRetry overrides the per-provider retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *Gateway) { g.retry = cfg }
}

// WithBreakers shares a breaker registry with other components.
func WithBreakers(b *resilience.Breakers) Option {
	return func(g *Gateway) {
		if b != nil {
			g.breakers = b
		}
	}
}

// New builds a gateway. Providers are tried in the order given whenever
// a task's preferred provider is not first.
func New(providers []Provider, opts ...Option) *Gateway {
	g := &Gateway{
		providers: make(map[string]Provider, len(providers)),
		timeout:   2 * time.Minute,
		retry:     resilience.DefaultRetryConfig(),
		breakers:  resilience.NewBreakers(resilience.DefaultCircuitBreakerConfig()),
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
		g.order = append(g.order, p.Name())
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// NewFromConfig wires the Anthropic and OpenAI providers from cfg.
// Providers without a key are kept but report unconfigured.
func NewFromConfig(cfg *config.Config) *Gateway {
	var ac anthropic.Client
	if cfg.Anthropic.Key != "" {
		ac = anthropic.NewClient(cfg.Anthropic.Key)
	}
	var oc openai.Client
	if cfg.OpenAI.Key != "" {
		oc = openai.NewClient(cfg.OpenAI.Key, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}

	retry, breaker := resilience.FromLLMConfig(cfg.LLM)
	return New(
		[]Provider{
			NewAnthropicProvider(ac, cfg.Anthropic),
			NewOpenAIProvider(oc, cfg.OpenAI),
		},
		WithTimeout(time.Duration(cfg.LLM.TimeoutSecs)*time.Second),
		WithRetry(retry),
		WithBreakers(resilience.NewBreakers(breaker)),
	)
}

// Configured reports whether at least one provider has credentials.
func (g *Gateway) Configured() bool {
	for _, p := range g.providers {
		if p.Configured() {
			return true
		}
	}
	return false
}

// BreakerStates exposes per-provider circuit state.
func (g *Gateway) BreakerStates() map[string]string {
	return g.breakers.States()
}

// Complete sends prompt to the task's preferred provider and falls back
// to the other provider once. Failures are *ProviderError.
func (g *Gateway) Complete(ctx context.Context, task TaskType, prompt string) (*Completion, error) {
	tc, ok := Lookup(task)
	if !ok {
		return nil, eris.Errorf("llm: unknown task type %q", task)
	}

	log := zap.L().With(zap.String("task", string(task)))
	perr := &ProviderError{Task: task, Err: ErrNoProvider}
	tried := 0

	for _, p := range g.candidates(tc.Preferred) {
		if tried == maxProviders {
			break
		}
		if !p.Configured() {
			log.Debug("llm: provider not configured, skipping", zap.String("provider", p.Name()))
			continue
		}
		tried++

		req := Request{
			Task:        task,
			Model:       p.Model(tc.Tier),
			Prompt:      prompt,
			Temperature: tc.Temperature,
			MaxTokens:   tc.MaxTokens,
		}
		start := time.Now()
		c, err := g.call(ctx, p, req)
		if err == nil {
			log.Info("llm: completion",
				zap.String("provider", c.Provider),
				zap.String("model", c.Model),
				zap.Int64("input_tokens", c.InputTokens),
				zap.Int64("output_tokens", c.OutputTokens),
				zap.Duration("elapsed", time.Since(start)),
			)
			return c, nil
		}

		perr = &ProviderError{Task: task, Provider: p.Name(), Model: req.Model, Err: err}
		log.Warn("llm: provider failed",
			zap.String("provider", p.Name()),
			zap.String("model", req.Model),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, perr
}

// candidates returns the preferred provider first, then the rest in
// registration order.
func (g *Gateway) candidates(preferred string) []Provider {
	out := make([]Provider, 0, len(g.order))
	if p, ok := g.providers[preferred]; ok {
		out = append(out, p)
	}
	for _, name := range g.order {
		if name != preferred {
			out = append(out, g.providers[name])
		}
	}
	return out
}

func (g *Gateway) call(ctx context.Context, p Provider, req Request) (*Completion, error) {
	cb := g.breakers.Get(p.Name())
	retry := g.retry
	retry.OnRetry = resilience.RetryLogger(p.Name(), string(req.Task))

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*Completion, error) {
		return resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (*Completion, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()

			c, err := p.Complete(attemptCtx, req)
			if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				return nil, resilience.NewTransientError(eris.Wrapf(err, "%s: attempt timed out after %s", p.Name(), g.timeout), 0)
			}
			return c, err
		})
	})
}
