package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/icp-research/internal/model"
	"github.com/sells-group/icp-research/internal/store"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Load(ctx context.Context) (*model.MemoryRecord, error) {
	args := m.Called(ctx)
	rec, _ := args.Get(0).(*model.MemoryRecord)
	return rec, args.Error(1)
}

func (m *mockBackend) Save(ctx context.Context, rec *model.MemoryRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockBackend) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockBackend) Close() error                      { return m.Called().Error(0) }

func summary(session, industry, businessContext string, quality float64) model.RunSummary {
	return model.RunSummary{
		SessionID:   session,
		Industry:    industry,
		Quality:     quality,
		Confidence:  0.85,
		Framework:   model.FrameworkPerformance{PsychologicalDepth: true, Synthesis: true},
		Technique:   model.TechniqueRefinement{CompletedFields: 5, TotalSeconds: 12.5},
		Patterns:    model.PatternBlob{CommonArchetypes: []string{"sage"}},
		Fingerprint: Fingerprint(businessContext),
	}
}

func newFileStore(t *testing.T, path string, opts Options) *Store {
	t.Helper()
	backend := store.NewFile(path)
	require.NoError(t, backend.Migrate(context.Background()))
	opts.Backend = "file"
	return Open(context.Background(), backend, opts)
}

func TestContext_EmptyStore(t *testing.T) {
	s := Open(context.Background(), nil, Options{})

	mc := s.Context("technology", "b2b saas for dentists")
	assert.Equal(t, "technology", mc.Industry)
	assert.Empty(t, mc.IndustryPatterns)
	assert.Empty(t, mc.SimilarResearch)
	assert.Zero(t, mc.IndustryConfidence)
	assert.Zero(t, mc.TotalExperience)
	assert.False(t, mc.HasLearnedData())
	assert.NotEmpty(t, mc.ProvenTechniques)
	assert.NotEmpty(t, mc.FrameworkBestPractices.ProvenAnalysisSequences)
	assert.NotEmpty(t, mc.QualityOptimization.HighQualityIndicators)
	assert.Contains(t, mc.OptimizationSuggestions, "No prior technology research on record; establish a baseline profile")
}

func TestRecordThenRecall(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, nil, Options{})

	first := "independent financial advisors stuck in commission models"
	second := "independent financial advisors stuck in commission based models"
	require.Greater(t, Similarity(first, second), 0.3)

	m := s.Record(ctx, summary("research_1", "financial_services", first, 0.9))
	assert.Equal(t, 1, m.TotalResearchCount)
	assert.InDelta(t, 0.9, m.AverageQuality, 0.0001)

	mc := s.Context("financial_services", second)
	assert.True(t, mc.HasLearnedData())
	assert.Equal(t, 1, mc.IndustryConfidence)
	require.Len(t, mc.IndustryPatterns, 1)
	assert.Equal(t, []string{"sage"}, mc.IndustryPatterns[0].CommonArchetypes)
	assert.InDelta(t, 0.9, mc.IndustryPatterns[0].QualityAchieved, 0.0001)
	require.Len(t, mc.SimilarResearch, 1)
	assert.Equal(t, "financial_services", mc.SimilarResearch[0].Industry)
	assert.Equal(t, "research_1", mc.SimilarResearch[0].SessionID)
	assert.Greater(t, mc.SimilarResearch[0].Similarity, 0.3)
	assert.Contains(t, mc.OptimizationSuggestions, "Apply proven successful patterns from similar research")

	// Unrelated text is not recalled.
	mc = s.Context("financial_services", "organic dog treats subscription box")
	assert.Empty(t, mc.SimilarResearch)
}

func TestContext_SnapshotIsolated(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, nil, Options{})
	s.Record(ctx, summary("research_1", "technology", "saas", 0.9))

	mc := s.Context("technology", "saas")
	mc.IndustryPatterns[0].CommonArchetypes = nil
	mc.IndustryPatterns = append(mc.IndustryPatterns, model.PatternBlob{})

	again := s.Context("technology", "saas")
	assert.Len(t, again.IndustryPatterns, 1)
}

func TestContext_RecallsLastFiveMatches(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, nil, Options{})
	text := "yoga studio owners in denver"
	for i := range 7 {
		s.Record(ctx, summary(fmt.Sprintf("research_%d", i), "wellness_health", text, 0.85))
	}
	// One unrelated run at the end is not recalled.
	s.Record(ctx, summary("research_other", "technology", "kubernetes consultancy", 0.85))

	mc := s.Context("wellness_health", text)
	require.Len(t, mc.SimilarResearch, 5)
	assert.Equal(t, "research_2", mc.SimilarResearch[0].SessionID)
	assert.Equal(t, "research_6", mc.SimilarResearch[4].SessionID)
	assert.Len(t, mc.IndustryPatterns, 3)
	assert.Equal(t, 7, mc.IndustryConfidence)
	assert.Len(t, mc.PerformanceTrend, 5)
	assert.Equal(t, 8, mc.TotalExperience)
}

func TestRecord_ConcurrentNoLostUpdates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agent_memory.json")
	s := newFileStore(t, path, Options{})

	const runs = 40
	var wg sync.WaitGroup
	for i := range runs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Record(ctx, summary(fmt.Sprintf("research_%d", i), "financial_services", "financial advisors", 0.8))
		}(i)
	}
	wg.Wait()

	st := s.Stats()
	assert.Equal(t, runs, st.Industries["financial_services"].Confidence)
	assert.Equal(t, runs, st.TotalResearchCount)
	assert.Equal(t, runs, st.HistoryLength)

	// The persisted document reflects every update as well.
	reloaded := newFileStore(t, path, Options{})
	assert.Equal(t, runs, reloaded.Stats().Industries["financial_services"].Confidence)
}

func TestRecord_TwoConcurrentRuns(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, nil, Options{})

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Record(ctx, summary(id, "education", "online course creators", 0.82))
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, s.Stats().Industries["education"].Confidence)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agent_memory.json")
	s := newFileStore(t, path, Options{})

	industries := []string{"technology", "technology", "education", "general", "technology"}
	for i, ind := range industries {
		s.Record(ctx, summary(fmt.Sprintf("research_%d", i), ind, "context "+ind, 0.8+float64(i)/100))
	}
	before := s.Stats()
	require.NoError(t, s.Close(ctx))

	reloaded := newFileStore(t, path, Options{})
	after := reloaded.Stats()
	assert.Equal(t, before.Industries, after.Industries)
	assert.Equal(t, before.HistoryLength, after.HistoryLength)
	assert.Equal(t, before.TotalResearchCount, after.TotalResearchCount)
	assert.InDelta(t, before.AverageQuality, after.AverageQuality, 0.0001)
	assert.Equal(t, []string{"education", "general", "technology"}, reloaded.Industries())
}

func TestOpen_CorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent_memory.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{ not json"), 0o644))

	s := newFileStore(t, path, Options{})
	st := s.Stats()
	assert.Zero(t, st.TotalResearchCount)
	assert.Empty(t, st.Industries)

	// The next record overwrites the corrupt document.
	s.Record(context.Background(), summary("research_1", "general", "plumbers", 0.8))
	reloaded := newFileStore(t, path, Options{})
	assert.Equal(t, 1, reloaded.Stats().TotalResearchCount)
}

func TestOpen_LoadErrorStartsFresh(t *testing.T) {
	b := &mockBackend{}
	b.On("Load", mock.Anything).Return(nil, errors.New("permission denied"))

	s := Open(context.Background(), b, Options{Backend: "mock"})
	assert.Zero(t, s.Stats().TotalResearchCount)
	assert.Equal(t, "mock", s.Stats().Backend)
	b.AssertExpectations(t)
}

func TestRecord_PersistFailureSwallowed(t *testing.T) {
	b := &mockBackend{}
	b.On("Load", mock.Anything).Return(nil, nil)
	b.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	s := Open(context.Background(), b, Options{Backend: "mock"})
	m := s.Record(context.Background(), summary("research_1", "technology", "saas", 0.9))

	assert.Equal(t, 1, m.TotalResearchCount)
	assert.Equal(t, 1, s.Stats().Industries["technology"].Confidence)
	b.AssertNumberOfCalls(t, "Save", 1)
}

func TestClose_FlushesAndCloses(t *testing.T) {
	b := &mockBackend{}
	b.On("Load", mock.Anything).Return(nil, nil)
	b.On("Save", mock.Anything, mock.Anything).Return(errors.New("gone"))
	b.On("Close").Return(nil)

	s := Open(context.Background(), b, Options{})
	require.NoError(t, s.Close(context.Background()))
	b.AssertExpectations(t)
}

func TestRetention(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, nil, Options{MaxHistory: 3, MaxPatternsPerIndustry: 2})

	for i := range 5 {
		s.Record(ctx, summary(fmt.Sprintf("research_%d", i), "real_estate", "realtors", 0.8))
	}

	st := s.Stats()
	assert.Equal(t, 3, st.HistoryLength)
	assert.Equal(t, 2, st.Industries["real_estate"].Patterns)
	// Counters survive retention.
	assert.Equal(t, 5, st.Industries["real_estate"].Confidence)
	assert.Equal(t, 5, st.TotalResearchCount)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.rec.FrameworkImprovements, 3)
	assert.Len(t, s.rec.TechniqueRefinements, 3)
	assert.Len(t, s.rec.QualityInsights, 3)
	assert.Equal(t, "research_2", s.rec.ResearchHistory[0].SessionID)
}

func TestImprovementTrendCapped(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, nil, Options{})
	var m model.MemoryMetrics
	for i := range 25 {
		m = s.Record(ctx, summary(fmt.Sprintf("r%d", i), "general", "x", 0.8))
	}
	assert.Len(t, m.ImprovementTrend, 20)
	assert.Equal(t, 25, m.TotalResearchCount)
}

func TestRecord_RunningAverage(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, nil, Options{})
	s.Record(ctx, summary("a", "general", "x", 0.8))
	m := s.Record(ctx, summary("b", "general", "x", 0.9))
	assert.InDelta(t, 0.85, m.AverageQuality, 0.0001)
}

func TestOptimizationSuggestions_Trend(t *testing.T) {
	ctx := context.Background()

	improving := Open(ctx, nil, Options{})
	improving.Record(ctx, summary("a", "general", "x", 0.80))
	improving.Record(ctx, summary("b", "general", "x", 0.90))
	assert.Contains(t, improving.Context("general", "x").OptimizationSuggestions,
		"Continue current approach - quality is improving")

	flat := Open(ctx, nil, Options{})
	flat.Record(ctx, summary("a", "general", "x", 0.90))
	flat.Record(ctx, summary("b", "general", "x", 0.85))
	assert.Contains(t, flat.Context("general", "x").OptimizationSuggestions,
		"Consider adjusting strategy - quality plateau detected")
}

func TestRecord_NoRawBusinessText(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agent_memory.json")
	s := newFileStore(t, path, Options{})

	secret := "Zanzibar pickleball franchise for retired dentists"
	s.Record(ctx, summary("research_1", "general", secret, 0.9))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Zanzibar")
	assert.NotContains(t, string(data), "pickleball")

	var rec model.MemoryRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.NotEmpty(t, rec.ResearchHistory[0].Fingerprint)
}

func TestRecord_SuccessFlag(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, nil, Options{})
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	s.Record(ctx, summary("low", "general", "x", 0.65))
	s.Record(ctx, summary("high", "general", "x", 0.85))

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.False(t, s.rec.ResearchHistory[0].Successful)
	assert.True(t, s.rec.ResearchHistory[1].Successful)
	assert.Equal(t, "high", s.rec.FrameworkImprovements[1].SessionID)
	assert.Equal(t, 2026, s.rec.UpdatedAt.Year())
}

func TestRecord_ZeroContentIsNotLearned(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, nil, Options{})

	empty := summary("empty", "financial_services", "financial advisors", 0.9)
	empty.Technique.CompletedFields = 0
	s.Record(ctx, empty)

	assert.Empty(t, s.Stats().Industries)
	mc := s.Context("financial_services", "financial advisors")
	assert.Empty(t, mc.IndustryPatterns)
	assert.Zero(t, mc.IndustryConfidence)
	assert.NotContains(t, mc.OptimizationSuggestions, "Apply proven successful patterns from similar research")

	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.rec.ResearchHistory, 1)
	assert.False(t, s.rec.ResearchHistory[0].Successful)
	assert.False(t, s.rec.QualityInsights[0].Successful)
}
