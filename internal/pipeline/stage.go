package pipeline

import (
	"context"
	"slices"

	"github.com/sells-group/icp-research/internal/model"
)

// Stage names.
const (
	StageSetGoal                     = "set_goal"
	StagePsychologicalAnalysis       = "psychological_analysis"
	StageConversionIntelligence      = "conversion_intelligence"
	StageCompetitorDiscovery         = "competitor_discovery"
	StagePsychologicalInterviews     = "psychological_interviews"
	StageSalesIntelligenceInterviews = "sales_intelligence_interviews"
	StageSynthesis                   = "synthesis"
	StageScoreAndLearn               = "score_and_learn"
	StageFormat                      = "format"
)

// Handler runs one stage against the shared state. Returning an error
// hands classification to the interpreter.
type Handler func(ctx context.Context, d *Deps, s *model.ResearchState) error

// Stage describes one step of the research pipeline. Requires lists the
// fields that must be present before the stage runs; Writes lists the
// fields it populates. When a degradable error occurs the interpreter
// writes an error marker into the first analysis field in Writes.
type Stage struct {
	Name     string
	Requires []model.Field
	Writes   []model.Field
	Run      Handler
}

// output returns the analysis field that receives the error marker.
func (st Stage) output() (model.Field, bool) {
	for _, f := range st.Writes {
		if model.IsAnalysisField(f) {
			return f, true
		}
	}
	return "", false
}

// initialFields are populated before the first stage runs.
var initialFields = []model.Field{model.FieldBusinessContext}

var registry = map[string]Stage{
	StageSetGoal: {
		Name:     StageSetGoal,
		Requires: []model.Field{model.FieldBusinessContext},
		Writes: []model.Field{
			model.FieldResearchGoal,
			model.FieldIndustryContext,
			model.FieldSessionID,
			model.FieldMemoryContext,
		},
		Run: setGoal,
	},
	StagePsychologicalAnalysis: {
		Name: StagePsychologicalAnalysis,
		Requires: []model.Field{
			model.FieldBusinessContext,
			model.FieldIndustryContext,
			model.FieldMemoryContext,
		},
		Writes: []model.Field{model.FieldPsychologicalAnalysis},
		Run:    psychologicalAnalysis,
	},
	StageConversionIntelligence: {
		Name: StageConversionIntelligence,
		Requires: []model.Field{
			model.FieldBusinessContext,
			model.FieldIndustryContext,
			model.FieldPsychologicalAnalysis,
		},
		Writes: []model.Field{model.FieldConversionIntelligence},
		Run:    conversionIntelligence,
	},
	StageCompetitorDiscovery: {
		Name:     StageCompetitorDiscovery,
		Requires: []model.Field{model.FieldBusinessContext, model.FieldIndustryContext},
		Writes:   []model.Field{model.FieldCompetitorAnalysis},
		Run:      competitorDiscovery,
	},
	StagePsychologicalInterviews: {
		Name:     StagePsychologicalInterviews,
		Requires: []model.Field{model.FieldPsychologicalAnalysis},
		Writes:   []model.Field{model.FieldPsychologicalInterviews},
		Run:      psychologicalInterviews,
	},
	StageSalesIntelligenceInterviews: {
		Name:     StageSalesIntelligenceInterviews,
		Requires: []model.Field{model.FieldPsychologicalAnalysis},
		Writes:   []model.Field{model.FieldSalesIntelligenceInterviews},
		Run:      salesIntelligenceInterviews,
	},
	StageSynthesis: {
		Name:     StageSynthesis,
		Requires: []model.Field{model.FieldBusinessContext},
		Writes:   []model.Field{model.FieldSynthesisResults},
		Run:      synthesis,
	},
	StageScoreAndLearn: {
		Name: StageScoreAndLearn,
		Requires: []model.Field{
			model.FieldIndustryContext,
			model.FieldSessionID,
			model.FieldMemoryContext,
		},
		Writes: []model.Field{
			model.FieldQualityScore,
			model.FieldConfidenceScore,
			model.FieldLearningInsights,
		},
		Run: scoreAndLearn,
	},
	StageFormat: {
		Name:     StageFormat,
		Requires: []model.Field{model.FieldSessionID, model.FieldIndustryContext},
		Writes:   []model.Field{model.FieldFormattedReport},
		Run:      format,
	},
}

// StageNames returns every registered stage name in sorted order.
func StageNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the registered stage with the given name.
func Lookup(name string) (Stage, bool) {
	st, ok := registry[name]
	return st, ok
}
