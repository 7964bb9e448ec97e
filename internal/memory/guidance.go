package memory

import (
	"fmt"

	"github.com/sells-group/icp-research/internal/model"
)

func frameworkExpertise() model.FrameworkExpertise {
	return model.FrameworkExpertise{
		ProvenAnalysisSequences: []string{
			"Start with Jungian archetypes for identity foundation",
			"Apply LAB profiles for communication preferences",
			"Use JTBD for purchase psychology",
			"Layer cognitive biases for decision shortcuts",
		},
		DepthTechniques: []string{
			"Contradiction testing for insight validation",
			"Multi-layer pain analysis (surface, hidden, denied)",
			"Voice authenticity validation through pattern matching",
		},
		QualityDrivers: []string{
			"Specific examples increase authenticity",
			"Emotional language captures real voice",
			"Industry-specific terminology builds credibility",
		},
	}
}

func provenTechniques() []string {
	return []string{
		"Identity contradiction analysis reveals core psychology",
		"Pain archaeology uncovers deeper motivations",
		"Voice pattern mapping ensures authentic language",
		"Framework triangulation validates insights",
	}
}

func qualityGuidance() model.QualityGuidance {
	return model.QualityGuidance{
		HighQualityIndicators: []string{
			"Client reaction: 'How did you know that?'",
			"Specific voice examples that feel real",
			"Insights that connect multiple frameworks",
			"Actionable recommendations with psychology backing",
		},
		CommonQualityIssues: []string{
			"Generic insights that could apply to anyone",
			"AI-sounding language patterns",
			"Surface-level analysis without depth",
			"Recommendations without psychological foundation",
		},
	}
}

// suggestions derives optimization hints from the record. Callers hold the
// store lock.
func suggestions(rec *model.MemoryRecord, industry string) []string {
	var out []string

	total := 0
	for _, p := range rec.IndustryPatterns {
		total += len(p.Patterns)
	}
	if total > 0 {
		out = append(out, "Apply proven successful patterns from similar research")
	}

	if p, ok := rec.IndustryPatterns[industry]; !ok || p.Confidence == 0 {
		out = append(out, fmt.Sprintf("No prior %s research on record; establish a baseline profile", industry))
	}

	trend := lastN(rec.PerformanceMetrics.ImprovementTrend, 3)
	if len(trend) >= 2 {
		if trend[len(trend)-1].Quality > trend[0].Quality {
			out = append(out, "Continue current approach - quality is improving")
		} else {
			out = append(out, "Consider adjusting strategy - quality plateau detected")
		}
	}
	return out
}
