package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/icp-research/internal/industry"
	"github.com/sells-group/icp-research/internal/llm"
	"github.com/sells-group/icp-research/internal/model"
	"github.com/sells-group/icp-research/internal/prompts"
)

const researchGoal = "Conduct comprehensive ICP research with deep psychological profiling, " +
	"conversion intelligence and campaign-ready synthesis"

// sessionPrefix prefixes generated session IDs.
const sessionPrefix = "research_"

func setGoal(_ context.Context, d *Deps, s *model.ResearchState) error {
	s.ResearchGoal = researchGoal
	s.IndustryContext = industry.Classify(s.BusinessContext)
	if s.SessionID == "" {
		s.SessionID = sessionPrefix + uuid.NewString()
	}

	mc := d.Memory.Context(s.IndustryContext, s.BusinessContext)
	s.MemoryContext = &mc
	s.OptimizationSuggestions = slices.Clone(mc.OptimizationSuggestions)

	zap.L().Info("pipeline: research goal set",
		zap.String("session_id", s.SessionID),
		zap.String("industry", s.IndustryContext),
		zap.Int("similar_research", len(mc.SimilarResearch)),
		zap.Int("industry_patterns", len(mc.IndustryPatterns)),
		zap.Int("suggestions", len(s.OptimizationSuggestions)),
	)
	return nil
}

func psychologicalAnalysis(ctx context.Context, d *Deps, s *model.ResearchState) error {
	return analyze(ctx, d, s, model.FieldPsychologicalAnalysis, llm.TaskPsychologicalAnalysis, prompts.PsychologicalAnalysis, map[string]any{
		"business_context":         s.BusinessContext,
		"industry":                 s.IndustryContext,
		"learning_context":         learningContext(s.MemoryContext),
		"industry_patterns":        industryPatterns(s.MemoryContext, s.IndustryContext),
		"optimization_suggestions": bulletList(s.OptimizationSuggestions, "None yet."),
	})
}

func conversionIntelligence(ctx context.Context, d *Deps, s *model.ResearchState) error {
	return analyze(ctx, d, s, model.FieldConversionIntelligence, llm.TaskConversionIntelligence, prompts.ConversionIntelligence, map[string]any{
		"business_context":       s.BusinessContext,
		"industry":               s.IndustryContext,
		"psychological_analysis": s.Display(model.FieldPsychologicalAnalysis),
	})
}

func psychologicalInterviews(ctx context.Context, d *Deps, s *model.ResearchState) error {
	return analyze(ctx, d, s, model.FieldPsychologicalInterviews, llm.TaskInterviewSimulation, prompts.PsychologicalInterviews, map[string]any{
		"psychological_analysis":  s.Display(model.FieldPsychologicalAnalysis),
		"conversion_intelligence": s.Display(model.FieldConversionIntelligence),
	})
}

func salesIntelligenceInterviews(ctx context.Context, d *Deps, s *model.ResearchState) error {
	return analyze(ctx, d, s, model.FieldSalesIntelligenceInterviews, llm.TaskSalesInterview, prompts.SalesIntelligenceInterviews, map[string]any{
		"psychological_analysis": s.Display(model.FieldPsychologicalAnalysis),
	})
}

// synthesis only includes the competitor section when competitor discovery
// produced usable text.
func synthesis(ctx context.Context, d *Deps, s *model.ResearchState) error {
	return analyze(ctx, d, s, model.FieldSynthesisResults, llm.TaskSynthesis, prompts.Synthesis, map[string]any{
		"business_context":              s.BusinessContext,
		"psychological_analysis":        s.Display(model.FieldPsychologicalAnalysis),
		"conversion_intelligence":       s.Display(model.FieldConversionIntelligence),
		"psychological_interviews":      s.Display(model.FieldPsychologicalInterviews),
		"sales_intelligence_interviews": s.Display(model.FieldSalesIntelligenceInterviews),
		"competitor_analysis":           s.Text(model.FieldCompetitorAnalysis),
	})
}

func format(_ context.Context, _ *Deps, s *model.ResearchState) error {
	s.FormattedReport = RenderReport(s)
	s.ExecutiveSummary = RenderExecutiveSummary(s)
	switch s.OutputFormat {
	case model.OutputPsychologyReport:
		s.PsychologyReport = RenderPsychologyReport(s)
	case model.OutputCampaignReady:
		s.CampaignInsights = RenderCampaignInsights(s)
	}
	return nil
}

// analyze renders a prompt, calls the gateway and stores the answer in
// field. Template errors and gateway errors are returned unwrapped so the
// interpreter can classify them.
func analyze(ctx context.Context, d *Deps, s *model.ResearchState, field model.Field, task llm.TaskType, tmpl string, vars map[string]any) error {
	prompt, err := d.Prompts.Render(tmpl, vars)
	if err != nil {
		return err
	}
	text, err := complete(ctx, d, s, task, prompt)
	if err != nil {
		return err
	}
	s.SetAnalysis(field, text)
	return nil
}

func complete(ctx context.Context, d *Deps, s *model.ResearchState, task llm.TaskType, prompt string) (string, error) {
	c, err := d.LLM.Complete(ctx, task, prompt)
	if err != nil {
		return "", err
	}
	s.TokenUsage.Add(c.InputTokens, c.OutputTokens)
	s.TokenUsage.AddCost(d.Cost.Completion(c.Model, c.InputTokens, c.OutputTokens))
	return c.Text, nil
}

// learningContext summarizes the store-wide guidance and recalled runs for
// the analysis prompt.
func learningContext(mc *model.MemoryContext) string {
	if mc == nil {
		return "No learning context available."
	}
	var b strings.Builder
	b.WriteString("Proven techniques:\n")
	b.WriteString(bulletList(mc.ProvenTechniques, "None recorded."))
	b.WriteString("\nDepth techniques:\n")
	b.WriteString(bulletList(mc.FrameworkBestPractices.DepthTechniques, "None recorded."))
	b.WriteString("\nQuality drivers:\n")
	b.WriteString(bulletList(mc.FrameworkBestPractices.QualityDrivers, "None recorded."))
	if mc.TotalExperience > 0 {
		fmt.Fprintf(&b, "\nPrior sessions: %d (average quality %.1f%%)", mc.TotalExperience, mc.AverageQuality*100)
	}
	if len(mc.SimilarResearch) > 0 {
		b.WriteString("\nSimilar prior research:\n")
		for _, r := range mc.SimilarResearch {
			fmt.Fprintf(&b, "- %s research, similarity %.2f, quality %.1f%%\n", r.Industry, r.Similarity, r.Quality*100)
		}
	}
	return strings.TrimSpace(b.String())
}

func industryPatterns(mc *model.MemoryContext, industryTag string) string {
	if mc == nil || len(mc.IndustryPatterns) == 0 {
		return fmt.Sprintf("No prior patterns recorded for %s.", industryTag)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d prior %s sessions on record.\n", mc.IndustryConfidence, industryTag)
	for _, p := range mc.IndustryPatterns {
		fmt.Fprintf(&b, "- archetypes: %s; pain categories: %s; decision styles: %s; language: %s (quality %.1f%%)\n",
			joinOrNone(p.CommonArchetypes),
			joinOrNone(p.TypicalPainCategories),
			joinOrNone(p.DecisionMakingStyles),
			joinOrNone(p.LanguagePatternTypes),
			p.QualityAchieved*100,
		)
	}
	return strings.TrimSpace(b.String())
}

func bulletList(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	var b strings.Builder
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
