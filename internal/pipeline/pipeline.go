// Package pipeline runs the research stages over a shared ResearchState,
// scores the result, feeds the memory store and renders the reports.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/icp-research/internal/config"
	"github.com/sells-group/icp-research/internal/cost"
	"github.com/sells-group/icp-research/internal/llm"
	"github.com/sells-group/icp-research/internal/memory"
	"github.com/sells-group/icp-research/internal/model"
	"github.com/sells-group/icp-research/internal/prompts"
	"github.com/sells-group/icp-research/internal/search"
)

// ErrNoContent is returned when a run finishes without a single completed
// analysis field.
var ErrNoContent = eris.New("pipeline: no analysis content produced")

// StateError reports a field a stage requires that no earlier stage wrote.
type StateError struct {
	Stage string
	Field model.Field
}

func (e *StateError) Error() string {
	return fmt.Sprintf("pipeline: stage %s requires %s, which is missing", e.Stage, e.Field)
}

// StageError wraps the fatal error that stopped a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Deps are the collaborators shared by all stages. Every field is safe for
// concurrent use by independent runs.
type Deps struct {
	LLM          llm.Completer
	Prompts      *prompts.Catalog
	Memory       *memory.Store
	Searcher     search.Searcher
	Scoring      config.ScoringConfig
	SearchConfig config.SearchConfig
	Cost         *cost.Calculator

	scorer *Scorer
	now    func() time.Time
}

// Pipeline interprets an ordered list of stages.
type Pipeline struct {
	stages []Stage
	deps   *Deps
}

// New validates the stage list and builds a Pipeline. Every stage name
// must be registered and every required field must be written by an
// earlier stage.
func New(stageNames []string, deps Deps) (*Pipeline, error) {
	if deps.LLM == nil {
		return nil, eris.New("pipeline: llm gateway is required")
	}
	if len(stageNames) == 0 {
		return nil, eris.New("pipeline: no stages configured")
	}
	if deps.Prompts == nil {
		cat, err := prompts.Default()
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: load default prompts")
		}
		deps.Prompts = cat
	}
	if deps.Memory == nil {
		deps.Memory = memory.Open(context.Background(), nil, memory.Options{})
	}
	if deps.Searcher == nil {
		deps.Searcher = search.Unconfigured{}
	}
	if deps.Cost == nil {
		deps.Cost = cost.NewCalculator(cost.Rates{})
	}
	if deps.now == nil {
		deps.now = time.Now
	}
	deps.scorer = NewScorer(deps.Scoring)

	written := slices.Clone(initialFields)
	stages := make([]Stage, 0, len(stageNames))
	for _, name := range stageNames {
		st, ok := Lookup(name)
		if !ok {
			return nil, eris.Errorf("pipeline: unknown stage %q", name)
		}
		if slices.ContainsFunc(stages, func(s Stage) bool { return s.Name == name }) {
			return nil, eris.Errorf("pipeline: stage %q listed twice", name)
		}
		for _, f := range st.Requires {
			if !slices.Contains(written, f) {
				return nil, eris.Errorf("pipeline: stage %q requires %q but no earlier stage writes it", name, f)
			}
		}
		written = append(written, st.Writes...)
		stages = append(stages, st)
	}

	return &Pipeline{stages: stages, deps: &deps}, nil
}

// Stages returns the configured stage names in execution order.
func (p *Pipeline) Stages() []string {
	out := make([]string, len(p.stages))
	for i, st := range p.stages {
		out[i] = st.Name
	}
	return out
}

// Memory returns the memory store the pipeline records into.
func (p *Pipeline) Memory() *memory.Store {
	return p.deps.Memory
}

// Run executes every stage in order against s. Provider and search
// failures degrade the affected stage and the run continues. Any other
// stage error is fatal: the state is marked failed and a *StageError is
// returned. A run that completes without any analysis content returns
// ErrNoContent along with the state.
func (p *Pipeline) Run(ctx context.Context, s *model.ResearchState) (*model.ResearchState, error) {
	if s == nil {
		return nil, eris.New("pipeline: nil state")
	}
	if s.ProcessingTimes == nil {
		s.ProcessingTimes = make(map[string]float64)
	}
	s.Status = model.RunStatusRunning

	log := zap.L().With(zap.String("research_type", s.ResearchType), zap.String("output_format", s.OutputFormat))
	log.Info("pipeline: starting research", zap.Int("stages", len(p.stages)))

	tagged := false
	for _, st := range p.stages {
		s.CurrentStage = st.Name
		if !tagged && s.SessionID != "" {
			log = log.With(zap.String("session_id", s.SessionID))
			tagged = true
		}

		if err := ctx.Err(); err != nil {
			return s, p.fail(log, s, st.Name, 0, err)
		}

		for _, f := range st.Requires {
			if !s.Has(f) {
				log.Error("pipeline: required field missing",
					zap.String("stage", st.Name),
					zap.String("field", string(f)),
				)
				return s, p.fail(log, s, st.Name, 0, &StateError{Stage: st.Name, Field: f})
			}
		}

		start := time.Now()
		err := st.Run(ctx, p.deps, s)
		elapsed := time.Since(start)
		secs := elapsed.Seconds()
		s.ProcessingTimes[st.Name] = secs

		switch {
		case err == nil:
			s.Stages = append(s.Stages, model.StageResult{Name: st.Name, Status: model.StageStatusComplete, Seconds: secs})
			log.Info("pipeline: stage complete",
				zap.String("stage", st.Name),
				zap.Int64("duration_ms", elapsed.Milliseconds()),
			)
		case ctx.Err() == nil && degradable(err):
			if f, ok := st.output(); ok && !s.Completed(f) {
				s.SetAnalysis(f, model.ErrorMarker(st.Name, err))
			}
			s.Stages = append(s.Stages, model.StageResult{
				Name:    st.Name,
				Status:  model.StageStatusDegraded,
				Seconds: secs,
				Error:   err.Error(),
			})
			log.Warn("pipeline: stage degraded",
				zap.String("stage", st.Name),
				zap.Int64("duration_ms", elapsed.Milliseconds()),
				zap.Error(err),
			)
		default:
			return s, p.fail(log, s, st.Name, secs, err)
		}
	}

	s.Status = model.RunStatusCompleted
	s.CurrentStage = ""

	completed := s.CompletedCount()
	log.Info("pipeline: research complete",
		zap.Int("completed_fields", completed),
		zap.Float64("quality", s.QualityScore),
		zap.Float64("total_seconds", s.TotalSeconds()),
		zap.Int64("tokens", s.TokenUsage.Total()),
	)

	if completed == 0 && p.producesAnalysis() {
		return s, ErrNoContent
	}
	return s, nil
}

func (p *Pipeline) fail(log *zap.Logger, s *model.ResearchState, stage string, secs float64, err error) error {
	s.Status = model.RunStatusFailed
	s.Stages = append(s.Stages, model.StageResult{
		Name:    stage,
		Status:  model.StageStatusFailed,
		Seconds: secs,
		Error:   err.Error(),
	})
	log.Error("pipeline: stage failed",
		zap.String("stage", stage),
		zap.Float64("seconds", secs),
		zap.Error(err),
	)
	return &StageError{Stage: stage, Err: err}
}

func (p *Pipeline) producesAnalysis() bool {
	for _, st := range p.stages {
		if _, ok := st.output(); ok {
			return true
		}
	}
	return false
}

// degradable reports whether err came from an external collaborator
// rather than a defect in the pipeline itself.
func degradable(err error) bool {
	var perr *llm.ProviderError
	return errors.As(err, &perr) || errors.Is(err, search.ErrNotConfigured)
}
