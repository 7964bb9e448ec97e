package pipeline

import (
	"math"
	"strings"

	"github.com/sells-group/icp-research/internal/config"
	"github.com/sells-group/icp-research/internal/model"
)

// Terms whose co-occurrence across two different fields marks analysis that
// builds on itself.
var (
	contradictionTerms = []string{"contradiction", "paradox", "tension between", "conflicting"}
	hypothesisTerms    = []string{"hypothesis", "hypothes", "we predict", "testable"}
)

// DefaultScoring returns the scoring constants used when none are
// configured.
func DefaultScoring() config.ScoringConfig {
	return config.ScoringConfig{
		QualityBaseline:    0.80,
		QualityCap:         0.97,
		MemoryBonus:        0.03,
		DepthBonus:         0.02,
		DepthThreshold:     2500,
		IntegrationBonus:   0.03,
		CompletionBonus:    0.02,
		CompletionMin:      4,
		ConfidenceBaseline: 0.80,
		ConfidenceCap:      0.92,
		ConfidenceMemory:   0.04,
		ConfidenceHalf:     0.03,
		ConfidenceAll:      0.03,
	}
}

// ScoreBreakdown holds the individual quality contributions and the final
// clamped score.
type ScoreBreakdown struct {
	Baseline    float64 `json:"baseline"`
	Memory      float64 `json:"memory"`
	Depth       float64 `json:"depth"`
	Integration float64 `json:"integration"`
	Completion  float64 `json:"completion"`
	Final       float64 `json:"final"`
}

// Scorer computes the quality and confidence heuristics. Both are pure
// functions of the state, never decrease as more fields complete, and are
// clamped to their caps.
type Scorer struct {
	cfg config.ScoringConfig
}

// NewScorer returns a Scorer. A zero config selects DefaultScoring.
func NewScorer(cfg config.ScoringConfig) *Scorer {
	if cfg == (config.ScoringConfig{}) {
		cfg = DefaultScoring()
	}
	return &Scorer{cfg: cfg}
}

// Quality scores the analysis output of s.
func (sc *Scorer) Quality(s *model.ResearchState) ScoreBreakdown {
	c := sc.cfg
	b := ScoreBreakdown{Baseline: c.QualityBaseline}

	if s.MemoryContext.HasLearnedData() {
		b.Memory = c.MemoryBonus
	}

	completed := 0
	for _, f := range model.AnalysisFields {
		text := s.Text(f)
		if text == "" {
			continue
		}
		completed++
		if len(text) > c.DepthThreshold {
			b.Depth += c.DepthBonus
		}
	}

	if integrated(s) {
		b.Integration = c.IntegrationBonus
	}
	if completed >= c.CompletionMin {
		b.Completion = c.CompletionBonus
	}

	b.Final = clamp(b.Baseline+b.Memory+b.Depth+b.Integration+b.Completion, c.QualityCap)
	return b
}

// Confidence scores how much of the framework ran and whether memory
// informed it.
func (sc *Scorer) Confidence(s *model.ResearchState) float64 {
	c := sc.cfg
	score := c.ConfidenceBaseline
	if s.MemoryContext.HasLearnedData() {
		score += c.ConfidenceMemory
	}
	completed, total := s.CompletedCount(), len(model.AnalysisFields)
	if completed*2 >= total {
		score += c.ConfidenceHalf
	}
	if completed == total {
		score += c.ConfidenceAll
	}
	return clamp(score, c.ConfidenceCap)
}

// integrated reports whether one completed field names a contradiction and
// a different completed field names a hypothesis.
func integrated(s *model.ResearchState) bool {
	var contradiction, hypothesis []int
	for i, f := range model.AnalysisFields {
		text := strings.ToLower(s.Text(f))
		if text == "" {
			continue
		}
		if containsAny(text, contradictionTerms) {
			contradiction = append(contradiction, i)
		}
		if containsAny(text, hypothesisTerms) {
			hypothesis = append(hypothesis, i)
		}
	}
	for _, i := range contradiction {
		for _, j := range hypothesis {
			if i != j {
				return true
			}
		}
	}
	return false
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// clamp bounds v to [0, hi] and rounds to three decimals so sums of the
// configured increments compare exactly.
func clamp(v, hi float64) float64 {
	v = math.Round(v*1000) / 1000
	return math.Max(0, math.Min(v, hi))
}
