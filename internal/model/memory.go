package model

import "time"

// MemoryRecordVersion is the schema version written with every record.
const MemoryRecordVersion = 1

// PatternBlob captures industry-level psychological patterns observed in one
// run. It never carries business-specific text.
type PatternBlob struct {
	CommonArchetypes      []string  `json:"common_archetypes"`
	TypicalPainCategories []string  `json:"typical_pain_categories"`
	DecisionMakingStyles  []string  `json:"decision_making_styles"`
	LanguagePatternTypes  []string  `json:"language_pattern_types"`
	QualityAchieved       float64   `json:"quality_achieved"`
	RecordedAt            time.Time `json:"recorded_at"`
}

// IndustryPatterns accumulates pattern blobs for one industry. Confidence
// counts recorded runs and is never reduced by retention.
type IndustryPatterns struct {
	Patterns   []PatternBlob `json:"patterns"`
	Confidence int           `json:"confidence"`
}

// FrameworkPerformance records which analysis frameworks produced usable
// output in a run.
type FrameworkPerformance struct {
	SessionID              string    `json:"session_id"`
	PsychologicalDepth     bool      `json:"psychological_depth"`
	ConversionIntelligence bool      `json:"conversion_intelligence"`
	CompetitivePositioning bool      `json:"competitive_positioning"`
	InterviewSimulation    bool      `json:"interview_simulation"`
	SalesIntelligence      bool      `json:"sales_intelligence"`
	Synthesis              bool      `json:"synthesis"`
	MemoryApplied          bool      `json:"memory_applied"`
	RecordedAt             time.Time `json:"recorded_at"`
}

// TechniqueRefinement records how the stage sequence behaved in a run.
type TechniqueRefinement struct {
	SessionID       string    `json:"session_id"`
	Industry        string    `json:"industry"`
	DegradedStages  []string  `json:"degraded_stages"`
	CompletedFields int       `json:"completed_fields"`
	TotalSeconds    float64   `json:"total_seconds"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// QualityInsight records the scores of a run.
type QualityInsight struct {
	SessionID  string    `json:"session_id"`
	Industry   string    `json:"industry"`
	Quality    float64   `json:"quality"`
	Confidence float64   `json:"confidence"`
	Successful bool      `json:"successful"`
	RecordedAt time.Time `json:"recorded_at"`
}

// HistoryEntry is one run in the research history. Fingerprint holds hashed
// tokens of the business context so similar research can be recalled
// without retaining the text itself.
type HistoryEntry struct {
	SessionID   string    `json:"session_id"`
	Industry    string    `json:"industry"`
	Quality     float64   `json:"quality"`
	Confidence  float64   `json:"confidence"`
	Successful  bool      `json:"successful"`
	Fingerprint []uint64  `json:"fingerprint"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// TrendPoint is one quality observation in the improvement trend.
type TrendPoint struct {
	Quality    float64   `json:"quality"`
	RecordedAt time.Time `json:"recorded_at"`
}

// MemoryMetrics tracks store-wide performance.
type MemoryMetrics struct {
	TotalResearchCount int          `json:"total_research_count"`
	AverageQuality     float64      `json:"average_quality"`
	ImprovementTrend   []TrendPoint `json:"improvement_trend"`
}

// MemoryRecord is the persisted learning/memory document.
type MemoryRecord struct {
	Version               int                          `json:"version"`
	IndustryPatterns      map[string]*IndustryPatterns `json:"industry_patterns"`
	FrameworkImprovements []FrameworkPerformance       `json:"framework_improvements"`
	TechniqueRefinements  []TechniqueRefinement        `json:"technique_refinements"`
	QualityInsights       []QualityInsight             `json:"quality_insights"`
	ResearchHistory       []HistoryEntry               `json:"research_history"`
	PerformanceMetrics    MemoryMetrics                `json:"performance_metrics"`
	UpdatedAt             time.Time                    `json:"updated_at"`
}

// NewMemoryRecord returns an empty record.
func NewMemoryRecord() *MemoryRecord {
	return &MemoryRecord{
		Version:          MemoryRecordVersion,
		IndustryPatterns: make(map[string]*IndustryPatterns),
	}
}

// Normalize fills nil collections left by older or partial documents.
func (r *MemoryRecord) Normalize() {
	if r.Version == 0 {
		r.Version = MemoryRecordVersion
	}
	if r.IndustryPatterns == nil {
		r.IndustryPatterns = make(map[string]*IndustryPatterns)
	}
	for k, v := range r.IndustryPatterns {
		if v == nil {
			r.IndustryPatterns[k] = &IndustryPatterns{}
		}
	}
}

// RunSummary is what a completed run reports to the memory store. It
// carries no raw business-context text.
type RunSummary struct {
	SessionID   string               `json:"session_id"`
	Industry    string               `json:"industry"`
	Quality     float64              `json:"quality"`
	Confidence  float64              `json:"confidence"`
	Framework   FrameworkPerformance `json:"framework"`
	Technique   TechniqueRefinement  `json:"technique"`
	Patterns    PatternBlob          `json:"patterns"`
	Fingerprint []uint64             `json:"fingerprint"`
}

// FrameworkExpertise is the static best-practice guidance shared across
// industries.
type FrameworkExpertise struct {
	ProvenAnalysisSequences []string `json:"proven_analysis_sequences"`
	DepthTechniques         []string `json:"depth_techniques"`
	QualityDrivers          []string `json:"quality_drivers"`
}

// QualityGuidance lists what distinguishes strong research output.
type QualityGuidance struct {
	HighQualityIndicators []string `json:"high_quality_indicators"`
	CommonQualityIssues   []string `json:"common_quality_issues"`
}

// SimilarResearch is a recalled prior run whose business context overlaps
// the current one.
type SimilarResearch struct {
	SessionID  string    `json:"session_id"`
	Industry   string    `json:"industry"`
	Similarity float64   `json:"similarity"`
	Quality    float64   `json:"quality"`
	RecordedAt time.Time `json:"recorded_at"`
}

// MemoryContext is the snapshot a run reads from the memory store at start.
type MemoryContext struct {
	Industry                string             `json:"industry"`
	IndustryPatterns        []PatternBlob      `json:"industry_patterns"`
	IndustryConfidence      int                `json:"industry_confidence"`
	FrameworkBestPractices  FrameworkExpertise `json:"framework_best_practices"`
	ProvenTechniques        []string           `json:"proven_techniques"`
	QualityOptimization     QualityGuidance    `json:"quality_optimization"`
	SimilarResearch         []SimilarResearch  `json:"similar_research"`
	PerformanceTrend        []TrendPoint       `json:"performance_trend"`
	AverageQuality          float64            `json:"average_quality"`
	TotalExperience         int                `json:"total_experience"`
	OptimizationSuggestions []string           `json:"optimization_suggestions"`
}

// HasLearnedData reports whether the snapshot carries anything learned from
// prior runs. The static guidance lists do not count.
func (c *MemoryContext) HasLearnedData() bool {
	if c == nil {
		return false
	}
	return len(c.IndustryPatterns) > 0 || len(c.SimilarResearch) > 0 || c.TotalExperience > 0
}

// IndustryStat summarizes one industry in MemoryStats.
type IndustryStat struct {
	Confidence int `json:"confidence"`
	Patterns   int `json:"patterns"`
}

// MemoryStats summarizes the memory store for the CLI and HTTP surfaces.
type MemoryStats struct {
	Backend            string                  `json:"backend"`
	TotalResearchCount int                     `json:"total_research_count"`
	AverageQuality     float64                 `json:"average_quality"`
	HistoryLength      int                     `json:"history_length"`
	Industries         map[string]IndustryStat `json:"industries"`
	UpdatedAt          time.Time               `json:"updated_at"`
}
