package pipeline

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/icp-research/internal/llm"
	"github.com/sells-group/icp-research/internal/memory"
	"github.com/sells-group/icp-research/internal/model"
	"github.com/sells-group/icp-research/internal/prompts"
	"github.com/sells-group/icp-research/internal/search"
)

const (
	defaultSearchConcurrency = 2
	maxQueryKeywords         = 6
	noSearchContext          = "No web search results were available. Rely on general market knowledge."
)

var stopWords = map[string]bool{
	"and": true, "are": true, "but": true, "for": true, "from": true, "has": true,
	"have": true, "into": true, "not": true, "our": true, "that": true, "the": true,
	"their": true, "them": true, "they": true, "this": true, "who": true, "with": true,
	"was": true, "were": true, "what": true, "when": true, "you": true,
	"your": true, "its": true, "all": true, "can": true, "get": true, "out": true,
}

// competitorDiscovery searches the web for competitors, then asks the
// gateway for a positioning analysis. Search failures leave the analysis
// with an empty search context.
func competitorDiscovery(ctx context.Context, d *Deps, s *model.ResearchState) error {
	searchContext, err := gatherSearchContext(ctx, d, s)
	if err != nil {
		return err
	}
	return analyze(ctx, d, s, model.FieldCompetitorAnalysis, llm.TaskCompetitorAnalysis, prompts.CompetitorAnalysis, map[string]any{
		"business_context": s.BusinessContext,
		"industry":         s.IndustryContext,
		"search_context":   searchContext,
	})
}

// gatherSearchContext runs the canned competitor queries concurrently and
// renders their results in query order. Only template errors are returned.
func gatherSearchContext(ctx context.Context, d *Deps, s *model.ResearchState) (string, error) {
	queries, err := d.Prompts.CompetitorQueries(map[string]any{
		"industry_label": strings.ReplaceAll(s.IndustryContext, "_", " "),
		"keywords":       strings.Join(keywords(s.BusinessContext, maxQueryKeywords), " "),
		"year":           d.now().Year(),
	})
	if err != nil {
		return "", err
	}
	if n := d.SearchConfig.MaxQueries; n > 0 && len(queries) > n {
		queries = queries[:n]
	}
	if len(queries) == 0 {
		return noSearchContext, nil
	}

	limit := d.SearchConfig.Concurrency
	if limit <= 0 {
		limit = defaultSearchConcurrency
	}

	log := zap.L().With(zap.String("session_id", s.SessionID))
	results := make([][]search.Result, len(queries))
	errs := make([]error, len(queries))

	// Each query's failure is kept per slot; plain Group lets the other
	// queries finish and Wait reports the first failure.
	var g errgroup.Group
	g.SetLimit(limit)
	for i, q := range queries {
		g.Go(func() error {
			res, err := d.Searcher.Search(ctx, q)
			if err != nil {
				errs[i] = err
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, search.ErrNotConfigured) {
			log.Debug("pipeline: web search not configured")
		} else {
			failed := 0
			for _, e := range errs {
				if e != nil {
					failed++
				}
			}
			log.Warn("pipeline: competitor search failed",
				zap.Int("failed", failed),
				zap.Int("queries", len(queries)),
				zap.Error(err),
			)
		}
	}

	var all []search.Result
	for _, res := range results {
		if res != nil {
			s.TokenUsage.SearchQueries++
			s.TokenUsage.AddCost(d.Cost.PerplexityQuery())
		}
	}
	seen := make(map[string]bool)
	for _, res := range results {
		for _, r := range res {
			if r.URL != "" {
				if seen[r.URL] {
					continue
				}
				seen[r.URL] = true
			}
			all = append(all, r)
		}
	}

	rendered := search.Render(all)
	if rendered == "" {
		return noSearchContext, nil
	}
	log.Debug("pipeline: competitor search context gathered",
		zap.Int("queries", len(queries)),
		zap.Int("results", len(all)),
	)
	return rendered, nil
}

// keywords returns up to n distinct content words of text in order of
// first appearance.
func keywords(text string, n int) []string {
	var out []string
	for _, tok := range memory.Tokens(text) {
		if len(tok) < 3 || stopWords[tok] || slices.Contains(out, tok) {
			continue
		}
		out = append(out, tok)
		if len(out) == n {
			break
		}
	}
	return out
}
