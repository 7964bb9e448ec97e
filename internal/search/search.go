// Package search provides the web-search collaborator used by competitor
// discovery. Results are best effort: callers treat every error as "no
// external context" and carry on.
package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/icp-research/internal/config"
	"github.com/sells-group/icp-research/internal/resilience"
	"github.com/sells-group/icp-research/pkg/perplexity"
)

// ErrNotConfigured is returned by every search when no API key is set.
var ErrNotConfigured = eris.New("search: web search not configured")

// Result is one piece of search evidence. The Perplexity backend returns a
// synthesized answer followed by its citations.
type Result struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Unconfigured is the Searcher used when no credentials are present.
type Unconfigured struct{}

// Search always fails with ErrNotConfigured.
func (Unconfigured) Search(context.Context, string) ([]Result, error) {
	return nil, ErrNotConfigured
}

const searchSystemPrompt = "You are a market research assistant. Answer with concrete company names, " +
	"positioning claims and pricing models. Be concise and factual."

// PerplexitySearcher answers queries with Perplexity's online models.
type PerplexitySearcher struct {
	client  perplexity.Client
	timeout time.Duration
	recency string
	retry   resilience.RetryConfig
}

// NewPerplexitySearcher wraps client. Each query gets timeout per attempt
// and one retry on transient failures. A non-empty recency limits sources
// to that window.
func NewPerplexitySearcher(client perplexity.Client, timeout time.Duration, recency string) *PerplexitySearcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	retry := resilience.DefaultRetryConfig()
	retry.InitialBackoff = 500 * time.Millisecond
	return &PerplexitySearcher{client: client, timeout: timeout, recency: recency, retry: retry}
}

// Search implements Searcher.
func (s *PerplexitySearcher) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	retry := s.retry
	retry.OnRetry = resilience.RetryLogger("perplexity", "search")

	answer, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*perplexity.Answer, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		a, err := s.client.Ask(attemptCtx, perplexity.Question{
			System:      searchSystemPrompt,
			Text:        query,
			Temperature: 0.2,
			Recency:     s.recency,
		})
		if err != nil {
			var se *perplexity.StatusError
			if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
				return nil, resilience.NewTransientError(err, se.StatusCode)
			}
			if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				return nil, resilience.NewTransientError(err, 0)
			}
			return nil, err
		}
		return a, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "search: %q", query)
	}
	return toResults(answer), nil
}

func toResults(a *perplexity.Answer) []Result {
	var out []Result
	if a.Text != "" {
		out = append(out, Result{Title: "Perplexity answer", Snippet: a.Text})
	}
	for _, url := range a.Citations {
		out = append(out, Result{URL: url})
	}
	return out
}

// NewFromConfig builds the configured Searcher: Perplexity behind a cache
// and rate limiter, or Unconfigured when no key is set.
func NewFromConfig(pcfg config.PerplexityConfig, scfg config.SearchConfig) Searcher {
	if pcfg.Key == "" {
		return Unconfigured{}
	}
	client := perplexity.NewClient(pcfg.Key,
		perplexity.WithBaseURL(pcfg.BaseURL),
		perplexity.WithModel(pcfg.Model),
	)
	return NewCached(
		NewPerplexitySearcher(client, time.Duration(scfg.TimeoutSecs)*time.Second, scfg.Recency),
		time.Duration(scfg.CacheTTLMins)*time.Minute,
		scfg.RatePerSec,
	)
}

// Render formats results as prompt context, one block per result.
func Render(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		switch {
		case r.Snippet != "":
			b.WriteString(r.Snippet)
		case r.URL != "":
			b.WriteString("Source: ")
			b.WriteString(r.URL)
		default:
			continue
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
