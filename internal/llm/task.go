// Package llm routes research prompts to a model provider. Each task type
// maps to a static configuration entry; the gateway picks a provider,
// bounds every attempt with a timeout, retries transient failures once and
// falls back to the other provider when the first cannot answer.
package llm

// TaskType names a kind of completion the pipeline asks for.
type TaskType string

// Task types issued by the research stages.
const (
	TaskPsychologicalAnalysis  TaskType = "psychological_analysis"
	TaskConversionIntelligence TaskType = "conversion_intelligence"
	TaskCompetitorAnalysis     TaskType = "competitor_analysis"
	TaskInterviewSimulation    TaskType = "interview_simulation"
	TaskSalesInterview         TaskType = "sales_interview"
	TaskSynthesis              TaskType = "synthesis"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Tier selects a model within a provider's lineup.
type Tier string

// Model tiers.
const (
	// TierDeep is the strongest analysis model.
	TierDeep Tier = "deep"
	// TierFast is the cheaper model for summarizing supplied context.
	TierFast Tier = "fast"
	// TierCreative favors fluent dialogue for simulated interviews.
	TierCreative Tier = "creative"
)

// TaskConfig is one row of the task table.
type TaskConfig struct {
	Preferred   string
	Tier        Tier
	Temperature float64
	MaxTokens   int64
}

// Analysis runs at low temperature on the preferred Anthropic model;
// interview simulation prefers the OpenAI mini model at a higher
// temperature for varied personas.
var taskTable = map[TaskType]TaskConfig{
	TaskPsychologicalAnalysis:  {Preferred: ProviderAnthropic, Tier: TierDeep, Temperature: 0.3, MaxTokens: 4000},
	TaskConversionIntelligence: {Preferred: ProviderAnthropic, Tier: TierDeep, Temperature: 0.3, MaxTokens: 4000},
	TaskCompetitorAnalysis:     {Preferred: ProviderAnthropic, Tier: TierFast, Temperature: 0.3, MaxTokens: 3000},
	TaskInterviewSimulation:    {Preferred: ProviderOpenAI, Tier: TierCreative, Temperature: 0.7, MaxTokens: 4000},
	TaskSalesInterview:         {Preferred: ProviderOpenAI, Tier: TierCreative, Temperature: 0.7, MaxTokens: 4000},
	TaskSynthesis:              {Preferred: ProviderAnthropic, Tier: TierDeep, Temperature: 0.3, MaxTokens: 4000},
}

// Lookup returns the static configuration for task.
func Lookup(task TaskType) (TaskConfig, bool) {
	tc, ok := taskTable[task]
	return tc, ok
}

// Tasks lists every known task type.
func Tasks() []TaskType {
	return []TaskType{
		TaskPsychologicalAnalysis,
		TaskConversionIntelligence,
		TaskCompetitorAnalysis,
		TaskInterviewSimulation,
		TaskSalesInterview,
		TaskSynthesis,
	}
}
