package model

import (
	"fmt"
	"strings"
)

// RunStatus represents the current state of a research run.
type RunStatus string

const (
	RunStatusNotStarted RunStatus = "not_started"
	RunStatusRunning    RunStatus = "running"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// StageStatus represents the outcome of a single pipeline stage.
type StageStatus string

const (
	StageStatusComplete StageStatus = "complete"
	StageStatusDegraded StageStatus = "degraded"
	StageStatusFailed   StageStatus = "failed"
)

// Output formats accepted on a research request.
const (
	OutputFullJSON         = "full_json"
	OutputPsychologyReport = "psychology_report"
	OutputCampaignReady    = "campaign_ready"
)

// ValidOutputFormat reports whether f is an accepted output format. The
// empty string selects the default.
func ValidOutputFormat(f string) bool {
	switch f {
	case "", OutputFullJSON, OutputPsychologyReport, OutputCampaignReady:
		return true
	}
	return false
}

// DefaultResearchType is applied when a request omits research_type.
const DefaultResearchType = "comprehensive"

// ErrorPrefix marks an analysis field written by a stage that failed.
// Fields carrying it count as not completed.
const ErrorPrefix = "Error in "

// NotCompleted is the placeholder rendered for absent or failed fields.
const NotCompleted = "Not completed"

// Field names a slot on ResearchState that stages read or write.
type Field string

const (
	FieldBusinessContext             Field = "business_context"
	FieldResearchGoal                Field = "research_goal"
	FieldIndustryContext             Field = "industry_context"
	FieldSessionID                   Field = "session_id"
	FieldMemoryContext               Field = "memory_context"
	FieldPsychologicalAnalysis       Field = "psychological_analysis"
	FieldConversionIntelligence      Field = "conversion_intelligence"
	FieldCompetitorAnalysis          Field = "competitor_analysis"
	FieldPsychologicalInterviews     Field = "psychological_interviews"
	FieldSalesIntelligenceInterviews Field = "sales_intelligence_interviews"
	FieldSynthesisResults            Field = "synthesis_results"
	FieldQualityScore                Field = "quality_score"
	FieldConfidenceScore             Field = "confidence_score"
	FieldLearningInsights            Field = "learning_insights"
	FieldFormattedReport             Field = "formatted_report"
)

// AnalysisFields lists the LLM-produced text fields in report order.
var AnalysisFields = []Field{
	FieldPsychologicalAnalysis,
	FieldConversionIntelligence,
	FieldCompetitorAnalysis,
	FieldPsychologicalInterviews,
	FieldSalesIntelligenceInterviews,
	FieldSynthesisResults,
}

// StageResult records the outcome and timing of one executed stage.
type StageResult struct {
	Name    string      `json:"name"`
	Status  StageStatus `json:"status"`
	Seconds float64     `json:"seconds"`
	Error   string      `json:"error,omitempty"`
}

// TokenUsage sums LLM token consumption across a run.
type TokenUsage struct {
	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	Calls            int     `json:"calls"`
	SearchQueries    int     `json:"search_queries"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// Add accumulates one call's usage.
func (u *TokenUsage) Add(input, output int64) {
	u.InputTokens += input
	u.OutputTokens += output
	u.Calls++
}

// AddCost accumulates estimated spend in US dollars.
func (u *TokenUsage) AddCost(usd float64) {
	u.EstimatedCostUSD += usd
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

// PerformanceMetrics is the per-run view of store-wide performance,
// written by score_and_learn.
type PerformanceMetrics struct {
	CurrentQuality       float64 `json:"current_quality"`
	SessionCount         int     `json:"session_count"`
	AverageQuality       float64 `json:"average_quality"`
	ImprovementAvailable bool    `json:"improvement_available"`
}

// VoiceOfCustomer holds the phrase lexicon surfaced in reports.
type VoiceOfCustomer struct {
	PainLanguage           []string `json:"pain_language"`
	DesireLanguage         []string `json:"desire_language"`
	TransformationLanguage []string `json:"transformation_language"`
}

// ResearchState is the record threaded through every pipeline stage.
type ResearchState struct {
	BusinessContext string `json:"business_context"`
	ResearchType    string `json:"research_type"`
	OutputFormat    string `json:"output_format"`

	ResearchGoal    string `json:"research_goal,omitempty"`
	IndustryContext string `json:"industry_context,omitempty"`
	SessionID       string `json:"session_id,omitempty"`

	PsychologicalAnalysis       *string `json:"psychological_analysis"`
	ConversionIntelligence      *string `json:"conversion_intelligence"`
	CompetitorAnalysis          *string `json:"competitor_analysis"`
	PsychologicalInterviews     *string `json:"psychological_interviews"`
	SalesIntelligenceInterviews *string `json:"sales_intelligence_interviews"`
	SynthesisResults            *string `json:"synthesis_results"`

	QualityScore    float64 `json:"quality_score"`
	ConfidenceScore float64 `json:"confidence_score"`

	MemoryContext           *MemoryContext      `json:"memory_context,omitempty"`
	OptimizationSuggestions []string            `json:"optimization_suggestions,omitempty"`
	LearningInsights        []string            `json:"learning_insights,omitempty"`
	PerformanceMetrics      *PerformanceMetrics `json:"performance_metrics,omitempty"`
	VoiceOfCustomer         *VoiceOfCustomer    `json:"voice_of_customer,omitempty"`

	ProcessingTimes map[string]float64 `json:"processing_times"`
	Stages          []StageResult      `json:"stages"`
	TokenUsage      TokenUsage         `json:"token_usage"`
	Status          RunStatus          `json:"status"`
	CurrentStage    string             `json:"current_stage,omitempty"`

	PsychologyReport string `json:"psychology_report,omitempty"`
	CampaignInsights string `json:"campaign_insights,omitempty"`
	FormattedReport  string `json:"formatted_report,omitempty"`
	ExecutiveSummary string `json:"executive_summary,omitempty"`
}

// NewResearchState builds the initial state for a request, applying the
// research_type and output_format defaults.
func NewResearchState(businessContext, researchType, outputFormat string) *ResearchState {
	if researchType == "" {
		researchType = DefaultResearchType
	}
	if outputFormat == "" {
		outputFormat = OutputFullJSON
	}
	return &ResearchState{
		BusinessContext: businessContext,
		ResearchType:    researchType,
		OutputFormat:    outputFormat,
		ProcessingTimes: make(map[string]float64),
		Status:          RunStatusNotStarted,
	}
}

func (s *ResearchState) analysisSlot(f Field) **string {
	switch f {
	case FieldPsychologicalAnalysis:
		return &s.PsychologicalAnalysis
	case FieldConversionIntelligence:
		return &s.ConversionIntelligence
	case FieldCompetitorAnalysis:
		return &s.CompetitorAnalysis
	case FieldPsychologicalInterviews:
		return &s.PsychologicalInterviews
	case FieldSalesIntelligenceInterviews:
		return &s.SalesIntelligenceInterviews
	case FieldSynthesisResults:
		return &s.SynthesisResults
	default:
		return nil
	}
}

// IsAnalysisField reports whether f is one of the LLM-produced text fields.
func IsAnalysisField(f Field) bool {
	return (&ResearchState{}).analysisSlot(f) != nil
}

// Analysis returns the raw value of an analysis field. The second result is
// false when the field is absent.
func (s *ResearchState) Analysis(f Field) (string, bool) {
	slot := s.analysisSlot(f)
	if slot == nil || *slot == nil {
		return "", false
	}
	return **slot, true
}

// SetAnalysis writes an analysis field. It returns false if f is not an
// analysis field.
func (s *ResearchState) SetAnalysis(f Field, text string) bool {
	slot := s.analysisSlot(f)
	if slot == nil {
		return false
	}
	*slot = &text
	return true
}

// Has reports whether a field has been populated. Error-marked analysis
// fields count as present; use Completed to exclude them.
func (s *ResearchState) Has(f Field) bool {
	switch f {
	case FieldBusinessContext:
		return strings.TrimSpace(s.BusinessContext) != ""
	case FieldResearchGoal:
		return s.ResearchGoal != ""
	case FieldIndustryContext:
		return s.IndustryContext != ""
	case FieldSessionID:
		return s.SessionID != ""
	case FieldMemoryContext:
		return s.MemoryContext != nil
	case FieldQualityScore, FieldConfidenceScore:
		return s.QualityScore > 0
	case FieldLearningInsights:
		return s.LearningInsights != nil
	case FieldFormattedReport:
		return s.FormattedReport != ""
	}
	_, ok := s.Analysis(f)
	return ok
}

// Completed reports whether an analysis field holds non-empty text that is
// not an error marker.
func (s *ResearchState) Completed(f Field) bool {
	text, ok := s.Analysis(f)
	return ok && IsCompletedText(text)
}

// CompletedCount returns how many analysis fields are completed.
func (s *ResearchState) CompletedCount() int {
	n := 0
	for _, f := range AnalysisFields {
		if s.Completed(f) {
			n++
		}
	}
	return n
}

// Text returns the completed text of an analysis field, or "" when the field
// is absent or error-marked.
func (s *ResearchState) Text(f Field) string {
	if !s.Completed(f) {
		return ""
	}
	text, _ := s.Analysis(f)
	return text
}

// Display returns the completed text of a field, or NotCompleted.
func (s *ResearchState) Display(f Field) string {
	if text := s.Text(f); text != "" {
		return text
	}
	return NotCompleted
}

// TotalSeconds sums the recorded stage timings.
func (s *ResearchState) TotalSeconds() float64 {
	var total float64
	for _, st := range s.Stages {
		total += st.Seconds
	}
	return total
}

// IsCompletedText reports whether text is usable analysis output.
func IsCompletedText(text string) bool {
	return strings.TrimSpace(text) != "" && !strings.HasPrefix(text, ErrorPrefix)
}

// ErrorMarker builds the text written into a field whose stage failed.
func ErrorMarker(stage string, err error) string {
	return fmt.Sprintf("%s%s: %v", ErrorPrefix, stage, err)
}
