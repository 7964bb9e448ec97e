package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusNotStarted, "not_started"},
		{RunStatusRunning, "running"},
		{RunStatusCompleted, "completed"},
		{RunStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestNewResearchStateDefaults(t *testing.T) {
	t.Parallel()

	s := NewResearchState("coaching for dentists", "", "")
	assert.Equal(t, DefaultResearchType, s.ResearchType)
	assert.Equal(t, OutputFullJSON, s.OutputFormat)
	assert.Equal(t, RunStatusNotStarted, s.Status)
	assert.NotNil(t, s.ProcessingTimes)

	s = NewResearchState("x", "quick", OutputCampaignReady)
	assert.Equal(t, "quick", s.ResearchType)
	assert.Equal(t, OutputCampaignReady, s.OutputFormat)
}

func TestAnalysisFieldAccess(t *testing.T) {
	t.Parallel()

	s := NewResearchState("ctx", "", "")
	for _, f := range AnalysisFields {
		_, ok := s.Analysis(f)
		assert.False(t, ok, f)
		assert.False(t, s.Has(f), f)
		assert.True(t, IsAnalysisField(f), f)
	}

	assert.False(t, IsAnalysisField(FieldSessionID))
	assert.False(t, s.SetAnalysis(FieldSessionID, "x"))

	require.True(t, s.SetAnalysis(FieldSynthesisResults, "campaign plan"))
	text, ok := s.Analysis(FieldSynthesisResults)
	assert.True(t, ok)
	assert.Equal(t, "campaign plan", text)
	require.NotNil(t, s.SynthesisResults)
	assert.Equal(t, "campaign plan", *s.SynthesisResults)
}

func TestCompletedExcludesErrorMarkers(t *testing.T) {
	t.Parallel()

	s := NewResearchState("ctx", "", "")
	s.SetAnalysis(FieldPsychologicalAnalysis, "deep profile")
	s.SetAnalysis(FieldConversionIntelligence, ErrorMarker("conversion_intelligence", errors.New("timeout")))
	s.SetAnalysis(FieldCompetitorAnalysis, "   ")

	assert.True(t, s.Completed(FieldPsychologicalAnalysis))
	assert.False(t, s.Completed(FieldConversionIntelligence))
	assert.True(t, s.Has(FieldConversionIntelligence))
	assert.False(t, s.Completed(FieldCompetitorAnalysis))
	assert.Equal(t, 1, s.CompletedCount())

	assert.Equal(t, "deep profile", s.Text(FieldPsychologicalAnalysis))
	assert.Equal(t, "", s.Text(FieldConversionIntelligence))
	assert.Equal(t, NotCompleted, s.Display(FieldConversionIntelligence))
	assert.Equal(t, NotCompleted, s.Display(FieldSynthesisResults))
}

func TestErrorMarker(t *testing.T) {
	t.Parallel()

	m := ErrorMarker("synthesis", errors.New("no provider configured"))
	assert.Equal(t, "Error in synthesis: no provider configured", m)
	assert.False(t, IsCompletedText(m))
}

func TestHasScalarFields(t *testing.T) {
	t.Parallel()

	s := NewResearchState("  ", "", "")
	assert.False(t, s.Has(FieldBusinessContext))
	assert.False(t, s.Has(FieldMemoryContext))

	s.BusinessContext = "ctx"
	s.IndustryContext = "general"
	s.SessionID = "research_1"
	s.MemoryContext = &MemoryContext{}
	assert.True(t, s.Has(FieldBusinessContext))
	assert.True(t, s.Has(FieldIndustryContext))
	assert.True(t, s.Has(FieldSessionID))
	assert.True(t, s.Has(FieldMemoryContext))
}

func TestTokenUsage(t *testing.T) {
	t.Parallel()

	var u TokenUsage
	u.Add(100, 50)
	u.Add(10, 5)
	assert.Equal(t, int64(110), u.InputTokens)
	assert.Equal(t, int64(55), u.OutputTokens)
	assert.Equal(t, int64(165), u.Total())
	assert.Equal(t, 2, u.Calls)

	u.AddCost(0.25)
	u.AddCost(0.5)
	assert.InDelta(t, 0.75, u.EstimatedCostUSD, 1e-9)
}

func TestStateJSONShape(t *testing.T) {
	t.Parallel()

	s := NewResearchState("ctx", "", "")
	s.SetAnalysis(FieldPsychologicalAnalysis, "profile")
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "profile", raw["psychological_analysis"])
	// Absent analysis fields are present as null.
	v, ok := raw["synthesis_results"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, "not_started", raw["status"])
}

func TestMemoryContextHasLearnedData(t *testing.T) {
	t.Parallel()

	var nilCtx *MemoryContext
	assert.False(t, nilCtx.HasLearnedData())

	c := &MemoryContext{ProvenTechniques: []string{"static"}}
	assert.False(t, c.HasLearnedData())

	c.TotalExperience = 1
	assert.True(t, c.HasLearnedData())
}

func TestMemoryRecordNormalize(t *testing.T) {
	t.Parallel()

	r := &MemoryRecord{IndustryPatterns: map[string]*IndustryPatterns{"technology": nil}}
	r.Normalize()
	assert.Equal(t, MemoryRecordVersion, r.Version)
	require.NotNil(t, r.IndustryPatterns["technology"])

	r = &MemoryRecord{}
	r.Normalize()
	assert.NotNil(t, r.IndustryPatterns)
}

func TestValidOutputFormat(t *testing.T) {
	t.Parallel()

	for _, f := range []string{"", OutputFullJSON, OutputPsychologyReport, OutputCampaignReady} {
		assert.True(t, ValidOutputFormat(f), f)
	}
	assert.False(t, ValidOutputFormat("pdf"))
	assert.False(t, ValidOutputFormat("FULL_JSON"))
}
