// Package memory implements the process-wide learning store that recalls
// industry patterns and similar prior research at the start of a run and
// records run outcomes at the end.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/icp-research/internal/model"
	"github.com/sells-group/icp-research/internal/store"
)

// Options configures recall and retention.
type Options struct {
	// Backend names the persistence driver for stats output.
	Backend                string
	MaxHistory             int
	MaxPatternsPerIndustry int
	SimilarityThreshold    float64
	MaxSimilar             int
}

const (
	industryPatternsRecalled = 3
	trendRecalled            = 5
	trendKept                = 20
	successThreshold         = 0.8
)

// Store is safe for concurrent use. Record serializes the
// append-and-persist sequence so concurrent runs never lose updates.
type Store struct {
	mu      sync.Mutex
	rec     *model.MemoryRecord
	backend store.Store
	opts    Options
	now     func() time.Time
}

// Open loads the persisted record from backend. An absent, corrupt or
// unreadable record is logged and replaced by an empty one; Open never
// fails.
func Open(ctx context.Context, backend store.Store, opts Options) *Store {
	if backend == nil {
		backend = store.Nop{}
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = 0.3
	}
	if opts.MaxSimilar <= 0 {
		opts.MaxSimilar = 5
	}
	if opts.Backend == "" {
		opts.Backend = "none"
	}

	log := zap.L().With(zap.String("backend", opts.Backend))

	rec, err := backend.Load(ctx)
	switch {
	case err != nil:
		log.Warn("memory: load failed, starting fresh", zap.Error(err))
		rec = model.NewMemoryRecord()
	case rec == nil:
		log.Info("memory: no record found, starting fresh")
		rec = model.NewMemoryRecord()
	default:
		log.Info("memory: loaded",
			zap.Int("sessions", rec.PerformanceMetrics.TotalResearchCount),
			zap.Int("history", len(rec.ResearchHistory)),
			zap.Int("industries", len(rec.IndustryPatterns)),
		)
	}

	return &Store{
		rec:     rec,
		backend: backend,
		opts:    opts,
		now:     time.Now,
	}
}

// Context returns the recall snapshot for an industry and business context.
// Unseen industries yield empty collections. The result shares no mutable
// state with the store.
func (s *Store) Context(industry, businessContext string) model.MemoryContext {
	fp := Fingerprint(businessContext)

	s.mu.Lock()
	defer s.mu.Unlock()

	mc := model.MemoryContext{
		Industry:               industry,
		IndustryPatterns:       []model.PatternBlob{},
		FrameworkBestPractices: frameworkExpertise(),
		ProvenTechniques:       provenTechniques(),
		QualityOptimization:    qualityGuidance(),
		SimilarResearch:        []model.SimilarResearch{},
		PerformanceTrend:       slices.Clone(lastN(s.rec.PerformanceMetrics.ImprovementTrend, trendRecalled)),
		AverageQuality:         s.rec.PerformanceMetrics.AverageQuality,
		TotalExperience:        s.rec.PerformanceMetrics.TotalResearchCount,
	}

	if p, ok := s.rec.IndustryPatterns[industry]; ok {
		mc.IndustryPatterns = slices.Clone(lastN(p.Patterns, industryPatternsRecalled))
		mc.IndustryConfidence = p.Confidence
	}

	// History is in recording order, so the tail of matches is the most
	// recent.
	var similar []model.SimilarResearch
	for _, h := range s.rec.ResearchHistory {
		score := Jaccard(fp, h.Fingerprint)
		if score > s.opts.SimilarityThreshold {
			similar = append(similar, model.SimilarResearch{
				SessionID:  h.SessionID,
				Industry:   h.Industry,
				Similarity: score,
				Quality:    h.Quality,
				RecordedAt: h.RecordedAt,
			})
		}
	}
	if len(similar) > 0 {
		mc.SimilarResearch = slices.Clone(lastN(similar, s.opts.MaxSimilar))
	}

	mc.OptimizationSuggestions = suggestions(s.rec, industry)
	return mc
}

// Record appends a run outcome, applies retention, and persists. A persist
// failure is logged and swallowed. It returns the updated store-wide
// metrics.
func (s *Store) Record(ctx context.Context, sum model.RunSummary) model.MemoryMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	rec := s.rec
	successful := sum.Technique.CompletedFields > 0 && sum.Quality > successThreshold

	rec.ResearchHistory = append(rec.ResearchHistory, model.HistoryEntry{
		SessionID:   sum.SessionID,
		Industry:    sum.Industry,
		Quality:     sum.Quality,
		Confidence:  sum.Confidence,
		Successful:  successful,
		Fingerprint: slices.Clone(sum.Fingerprint),
		RecordedAt:  now,
	})

	fw := sum.Framework
	fw.SessionID = sum.SessionID
	fw.RecordedAt = now
	rec.FrameworkImprovements = append(rec.FrameworkImprovements, fw)

	tech := sum.Technique
	tech.SessionID = sum.SessionID
	tech.Industry = sum.Industry
	tech.RecordedAt = now
	rec.TechniqueRefinements = append(rec.TechniqueRefinements, tech)

	rec.QualityInsights = append(rec.QualityInsights, model.QualityInsight{
		SessionID:  sum.SessionID,
		Industry:   sum.Industry,
		Quality:    sum.Quality,
		Confidence: sum.Confidence,
		Successful: successful,
		RecordedAt: now,
	})

	// Only runs that completed an analysis field contribute patterns.
	if sum.Technique.CompletedFields > 0 {
		ip, ok := rec.IndustryPatterns[sum.Industry]
		if !ok {
			ip = &model.IndustryPatterns{}
			rec.IndustryPatterns[sum.Industry] = ip
		}
		blob := sum.Patterns
		blob.QualityAchieved = sum.Quality
		blob.RecordedAt = now
		ip.Patterns = append(ip.Patterns, blob)
		ip.Confidence++
	}

	m := &rec.PerformanceMetrics
	count := m.TotalResearchCount + 1
	m.AverageQuality = (m.AverageQuality*float64(m.TotalResearchCount) + sum.Quality) / float64(count)
	m.TotalResearchCount = count
	m.ImprovementTrend = append(m.ImprovementTrend, model.TrendPoint{Quality: sum.Quality, RecordedAt: now})
	m.ImprovementTrend = keepLast(m.ImprovementTrend, trendKept)

	s.applyRetention()
	rec.UpdatedAt = now

	if err := s.backend.Save(ctx, rec); err != nil {
		zap.L().Error("memory: persist failed",
			zap.String("backend", s.opts.Backend),
			zap.String("session_id", sum.SessionID),
			zap.Error(err),
		)
	} else {
		zap.L().Debug("memory: saved",
			zap.String("session_id", sum.SessionID),
			zap.Int("sessions", m.TotalResearchCount),
		)
	}

	out := *m
	out.ImprovementTrend = slices.Clone(m.ImprovementTrend)
	return out
}

// applyRetention bounds history and pattern growth. Counters are not reset.
// Callers hold s.mu.
func (s *Store) applyRetention() {
	rec := s.rec
	if n := s.opts.MaxHistory; n > 0 {
		rec.ResearchHistory = keepLast(rec.ResearchHistory, n)
		rec.FrameworkImprovements = keepLast(rec.FrameworkImprovements, n)
		rec.TechniqueRefinements = keepLast(rec.TechniqueRefinements, n)
		rec.QualityInsights = keepLast(rec.QualityInsights, n)
	}
	if n := s.opts.MaxPatternsPerIndustry; n > 0 {
		for _, ip := range rec.IndustryPatterns {
			ip.Patterns = keepLast(ip.Patterns, n)
		}
	}
}

// Stats summarizes the store.
func (s *Store) Stats() model.MemoryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := model.MemoryStats{
		Backend:            s.opts.Backend,
		TotalResearchCount: s.rec.PerformanceMetrics.TotalResearchCount,
		AverageQuality:     s.rec.PerformanceMetrics.AverageQuality,
		HistoryLength:      len(s.rec.ResearchHistory),
		Industries:         make(map[string]model.IndustryStat, len(s.rec.IndustryPatterns)),
		UpdatedAt:          s.rec.UpdatedAt,
	}
	for name, ip := range s.rec.IndustryPatterns {
		st.Industries[name] = model.IndustryStat{Confidence: ip.Confidence, Patterns: len(ip.Patterns)}
	}
	return st
}

// Industries returns the industries on record, sorted.
func (s *Store) Industries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.rec.IndustryPatterns))
	for name := range s.rec.IndustryPatterns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Close flushes the record and closes the backend.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Save(ctx, s.rec); err != nil {
		zap.L().Error("memory: final flush failed", zap.String("backend", s.opts.Backend), zap.Error(err))
	}
	return s.backend.Close()
}

// lastN returns the tail of xs with at most n elements. It aliases xs.
func lastN[T any](xs []T, n int) []T {
	if n <= 0 || len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

// keepLast trims xs to its last n elements into a fresh backing array so
// the dropped prefix can be collected.
func keepLast[T any](xs []T, n int) []T {
	if len(xs) <= n {
		return xs
	}
	return slices.Clone(xs[len(xs)-n:])
}
