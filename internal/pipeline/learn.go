package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/icp-research/internal/memory"
	"github.com/sells-group/icp-research/internal/model"
)

// improvementCeiling is the quality below which a run reports room for
// improvement.
const improvementCeiling = 0.9

// scoreAndLearn scores the run, records its summary in the memory store when
// it produced content and derives the learning insights. It never fails: the memory store logs and
// swallows its own persistence errors.
func scoreAndLearn(ctx context.Context, d *Deps, s *model.ResearchState) error {
	breakdown := d.scorer.Quality(s)
	s.QualityScore = breakdown.Final
	s.ConfidenceScore = d.scorer.Confidence(s)

	s.VoiceOfCustomer = extractVoiceOfCustomer(s)

	// Runs without analysis content are never learned from.
	var sessions int
	var average float64
	if s.CompletedCount() == 0 {
		st := d.Memory.Stats()
		sessions, average = st.TotalResearchCount, st.AverageQuality
		zap.L().Warn("pipeline: no analysis content, skipping memory record",
			zap.String("session_id", s.SessionID),
		)
	} else {
		metrics := d.Memory.Record(ctx, buildSummary(s))
		sessions, average = metrics.TotalResearchCount, metrics.AverageQuality
	}

	s.LearningInsights = learningInsights(s)
	s.PerformanceMetrics = &model.PerformanceMetrics{
		CurrentQuality:       s.QualityScore,
		SessionCount:         sessions,
		AverageQuality:       average,
		ImprovementAvailable: s.QualityScore < improvementCeiling,
	}

	zap.L().Info("pipeline: research scored",
		zap.String("session_id", s.SessionID),
		zap.Float64("quality", s.QualityScore),
		zap.Float64("confidence", s.ConfidenceScore),
		zap.Float64("depth_bonus", breakdown.Depth),
		zap.Float64("integration_bonus", breakdown.Integration),
		zap.Int("session_count", sessions),
	)
	return nil
}

// buildSummary assembles what the memory store keeps about a run. The
// business context contributes only its token fingerprint.
func buildSummary(s *model.ResearchState) model.RunSummary {
	return model.RunSummary{
		SessionID:  s.SessionID,
		Industry:   s.IndustryContext,
		Quality:    s.QualityScore,
		Confidence: s.ConfidenceScore,
		Framework: model.FrameworkPerformance{
			PsychologicalDepth:     s.Completed(model.FieldPsychologicalAnalysis),
			ConversionIntelligence: s.Completed(model.FieldConversionIntelligence),
			CompetitivePositioning: s.Completed(model.FieldCompetitorAnalysis),
			InterviewSimulation:    s.Completed(model.FieldPsychologicalInterviews),
			SalesIntelligence:      s.Completed(model.FieldSalesIntelligenceInterviews),
			Synthesis:              s.Completed(model.FieldSynthesisResults),
			MemoryApplied:          s.MemoryContext.HasLearnedData(),
		},
		Technique: model.TechniqueRefinement{
			DegradedStages:  degradedStages(s),
			CompletedFields: s.CompletedCount(),
			TotalSeconds:    s.TotalSeconds(),
		},
		Patterns:    extractPatterns(s, s.VoiceOfCustomer),
		Fingerprint: memory.Fingerprint(s.BusinessContext),
	}
}

func learningInsights(s *model.ResearchState) []string {
	mc := s.MemoryContext
	if mc == nil {
		mc = &model.MemoryContext{}
	}
	out := []string{
		fmt.Sprintf("Quality achieved: %.1f%%", s.QualityScore*100),
		fmt.Sprintf("Confidence level: %.1f%%", s.ConfidenceScore*100),
		fmt.Sprintf("Industry expertise: %s", s.IndustryContext),
		fmt.Sprintf("Memory patterns applied: %d", len(mc.IndustryPatterns)),
		fmt.Sprintf("Similar research sessions recalled: %d", len(mc.SimilarResearch)),
		fmt.Sprintf("Analysis fields completed: %d/%d", s.CompletedCount(), len(model.AnalysisFields)),
	}

	if degraded := degradedStages(s); len(degraded) > 0 {
		out = append(out, "Degraded stages: "+strings.Join(degraded, ", "))
	}
	return out
}

func degradedStages(s *model.ResearchState) []string {
	var out []string
	for _, st := range s.Stages {
		if st.Status == model.StageStatusDegraded {
			out = append(out, st.Name)
		}
	}
	return out
}
