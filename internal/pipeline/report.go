package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/icp-research/internal/model"
)

var sectionTitles = map[model.Field]string{
	model.FieldPsychologicalAnalysis:       "Psychological Profile",
	model.FieldConversionIntelligence:      "Conversion Intelligence",
	model.FieldCompetitorAnalysis:          "Competitive Positioning",
	model.FieldPsychologicalInterviews:     "Psychological Interviews",
	model.FieldSalesIntelligenceInterviews: "Sales Intelligence Interviews",
	model.FieldSynthesisResults:            "Campaign Synthesis",
}

// RenderReport builds the full markdown report for a research state.
// Missing or failed sections read "Not completed". It does not modify s.
func RenderReport(s *model.ResearchState) string {
	if s == nil {
		return ""
	}
	var b strings.Builder

	b.WriteString("# Customer Psychology Research Report\n")
	if s.ResearchGoal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", s.ResearchGoal)
	}
	b.WriteString("\n")

	b.WriteString("## Executive Summary\n")
	b.WriteString(RenderExecutiveSummary(s))
	b.WriteString("\n")

	for _, f := range model.AnalysisFields {
		fmt.Fprintf(&b, "## %s\n", sectionTitles[f])
		b.WriteString(s.Display(f))
		b.WriteString("\n\n")
	}

	if voc := s.VoiceOfCustomer; voc != nil {
		writeVoiceOfCustomer(&b, voc)
	}

	b.WriteString("## Learning Insights\n")
	if len(s.LearningInsights) == 0 {
		b.WriteString("No learning insights recorded.\n")
	}
	for _, insight := range s.LearningInsights {
		fmt.Fprintf(&b, "- %s\n", insight)
	}
	b.WriteString("\n")

	writeMetrics(&b, s)
	return b.String()
}

// RenderExecutiveSummary summarizes identifiers, scores, completion and
// timing.
func RenderExecutiveSummary(s *model.ResearchState) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "- Session ID: %s\n", orNA(s.SessionID))
	fmt.Fprintf(&b, "- Industry: %s\n", orNA(s.IndustryContext))
	fmt.Fprintf(&b, "- Research type: %s\n", orNA(s.ResearchType))
	fmt.Fprintf(&b, "- Quality score: %.1f%%\n", s.QualityScore*100)
	fmt.Fprintf(&b, "- Confidence score: %.1f%%\n", s.ConfidenceScore*100)
	fmt.Fprintf(&b, "- Sections completed: %d/%d\n", s.CompletedCount(), len(model.AnalysisFields))
	fmt.Fprintf(&b, "- Total processing time: %.2fs\n", totalSeconds(s))
	return b.String()
}

// RenderPsychologyReport builds the psychology-focused report returned for
// the psychology_report output format.
func RenderPsychologyReport(s *model.ResearchState) string {
	if s == nil {
		return ""
	}
	var b strings.Builder

	b.WriteString("# Deep Customer Psychology Intelligence Report\n\n")
	b.WriteString("## Executive Summary\n")
	b.WriteString(RenderExecutiveSummary(s))
	b.WriteString("\n")

	if s.ResearchGoal != "" {
		fmt.Fprintf(&b, "## Research Goal\n%s\n\n", s.ResearchGoal)
	}

	b.WriteString("## Psychological Profile\n")
	b.WriteString(s.Display(model.FieldPsychologicalAnalysis))
	b.WriteString("\n\n")

	if voc := s.VoiceOfCustomer; voc != nil {
		writeVoiceOfCustomer(&b, voc)
	}

	b.WriteString("## Campaign Psychology\n")
	b.WriteString(s.Display(model.FieldSynthesisResults))
	b.WriteString("\n\n")

	b.WriteString("## Intelligence Insights\n")
	b.WriteString("### Learning & Memory Applied\n")
	for _, insight := range s.LearningInsights {
		fmt.Fprintf(&b, "- %s\n", insight)
	}
	if pm := s.PerformanceMetrics; pm != nil {
		b.WriteString("\n### Performance Metrics\n")
		fmt.Fprintf(&b, "- Current session quality: %.1f%%\n", pm.CurrentQuality*100)
		fmt.Fprintf(&b, "- Average quality (all sessions): %.1f%%\n", pm.AverageQuality*100)
		fmt.Fprintf(&b, "- Total research sessions: %d\n", pm.SessionCount)
		fmt.Fprintf(&b, "- Improvement opportunity: %s\n", improvementLabel(pm.ImprovementAvailable))
	}
	if mc := s.MemoryContext; mc != nil {
		b.WriteString("\n### Memory Context Used\n")
		fmt.Fprintf(&b, "- Similar research sessions: %d\n", len(mc.SimilarResearch))
		fmt.Fprintf(&b, "- Industry patterns applied: %d\n", len(mc.IndustryPatterns))
		fmt.Fprintf(&b, "- Optimization suggestions: %d\n", len(s.OptimizationSuggestions))
	}
	return b.String()
}

// RenderCampaignInsights returns the synthesis followed by the memory and
// performance context, for the campaign_ready output format.
func RenderCampaignInsights(s *model.ResearchState) string {
	if s == nil {
		return ""
	}
	var b strings.Builder

	b.WriteString(s.Display(model.FieldSynthesisResults))
	b.WriteString("\n\n## Memory & Learning Enhancements\n\n")

	b.WriteString("### Applied Intelligence\n")
	applied := false
	if s.MemoryContext.HasLearnedData() {
		b.WriteString("- Applied proven patterns from similar research\n")
		applied = true
	}
	for _, sug := range s.OptimizationSuggestions {
		fmt.Fprintf(&b, "- %s\n", sug)
		applied = true
	}
	if !applied {
		b.WriteString("- No prior research on record\n")
	}

	b.WriteString("\n### Performance Context\n")
	fmt.Fprintf(&b, "- Quality achievement: %.1f%%\n", s.QualityScore*100)
	fmt.Fprintf(&b, "- Confidence level: %.1f%%\n", s.ConfidenceScore*100)
	if pm := s.PerformanceMetrics; pm != nil {
		fmt.Fprintf(&b, "- Research experience: %d total sessions\n", pm.SessionCount)
	}
	fmt.Fprintf(&b, "- Industry expertise: %s\n", orNA(s.IndustryContext))
	return b.String()
}

func writeVoiceOfCustomer(b *strings.Builder, voc *model.VoiceOfCustomer) {
	b.WriteString("## Voice of Customer\n")
	fmt.Fprintf(b, "- Pain language: %s\n", joinOrNone(voc.PainLanguage))
	fmt.Fprintf(b, "- Desire language: %s\n", joinOrNone(voc.DesireLanguage))
	fmt.Fprintf(b, "- Transformation language: %s\n", joinOrNone(voc.TransformationLanguage))
	b.WriteString("\n")
}

func writeMetrics(b *strings.Builder, s *model.ResearchState) {
	b.WriteString("## Metrics\n")

	b.WriteString("### Stage Timings\n")
	if len(s.Stages) > 0 {
		for _, st := range s.Stages {
			fmt.Fprintf(b, "- %s: %s (%.2fs)\n", st.Name, st.Status, st.Seconds)
		}
	} else if len(s.ProcessingTimes) > 0 {
		names := make([]string, 0, len(s.ProcessingTimes))
		for name := range s.ProcessingTimes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(b, "- %s: %.2fs\n", name, s.ProcessingTimes[name])
		}
	} else {
		b.WriteString("- No stages recorded\n")
	}

	completed, total := s.CompletedCount(), len(model.AnalysisFields)
	fmt.Fprintf(b, "\n- Completion ratio: %d/%d (%.0f%%)\n", completed, total, float64(completed)/float64(total)*100)

	if mc := s.MemoryContext; mc != nil {
		fmt.Fprintf(b, "- Memory patterns: %d (industry confidence %d)\n", len(mc.IndustryPatterns), mc.IndustryConfidence)
		fmt.Fprintf(b, "- Similar research recalled: %d\n", len(mc.SimilarResearch))
	} else {
		b.WriteString("- Memory patterns: 0\n")
	}
	fmt.Fprintf(b, "- Token usage: %d input, %d output (%d calls)\n",
		s.TokenUsage.InputTokens, s.TokenUsage.OutputTokens, s.TokenUsage.Calls)
	fmt.Fprintf(b, "- Web searches: %d\n", s.TokenUsage.SearchQueries)
	fmt.Fprintf(b, "- Estimated cost: $%.4f\n", s.TokenUsage.EstimatedCostUSD)
}

func totalSeconds(s *model.ResearchState) float64 {
	if len(s.Stages) > 0 {
		return s.TotalSeconds()
	}
	var total float64
	for _, secs := range s.ProcessingTimes {
		total += secs
	}
	return total
}

func improvementLabel(available bool) string {
	if available {
		return "Available"
	}
	return "Optimized"
}

func orNA(v string) string {
	if v == "" {
		return "n/a"
	}
	return v
}
