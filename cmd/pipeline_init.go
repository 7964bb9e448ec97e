package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/icp-research/internal/config"
	"github.com/sells-group/icp-research/internal/cost"
	"github.com/sells-group/icp-research/internal/llm"
	"github.com/sells-group/icp-research/internal/memory"
	"github.com/sells-group/icp-research/internal/pipeline"
	"github.com/sells-group/icp-research/internal/prompts"
	"github.com/sells-group/icp-research/internal/search"
	"github.com/sells-group/icp-research/internal/store"
)

const closeTimeout = 10 * time.Second

// pipelineEnv holds the memory store and pipeline shared by the research
// and serve commands.
type pipelineEnv struct {
	Memory   *memory.Store
	Pipeline *pipeline.Pipeline
	Gateway  *llm.Gateway
}

// Close flushes memory and releases its backend.
func (pe *pipelineEnv) Close() {
	if pe.Memory == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := pe.Memory.Close(ctx); err != nil {
		zap.L().Warn("close memory backend", zap.Error(err))
	}
}

// openMemory opens the configured backend and loads the learning record.
// A backend that cannot be opened or migrated is logged and replaced by an
// in-process store so research keeps running without persistence.
func openMemory(ctx context.Context, c *config.Config) *memory.Store {
	driver := c.Memory.Driver
	backend, err := store.Open(ctx, c.Memory)
	if err != nil {
		zap.L().Error("memory backend unavailable, continuing without persistence",
			zap.String("driver", driver),
			zap.Error(err),
		)
		backend, driver = store.Nop{}, "none"
	}
	return memory.Open(ctx, backend, memory.Options{
		Backend:                driver,
		MaxHistory:             c.Memory.MaxHistory,
		MaxPatternsPerIndustry: c.Memory.MaxPatternsPerIndustry,
		SimilarityThreshold:    c.Memory.SimilarityThreshold,
		MaxSimilar:             c.Memory.MaxSimilar,
	})
}

// initPipeline validates cfg for mode, opens memory, builds the provider
// gateway and search client, and assembles the pipeline. Callers should
// defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	catalog, err := prompts.Load(cfg.Prompts.Path)
	if err != nil {
		return nil, err
	}

	mem := openMemory(ctx, cfg)
	env := &pipelineEnv{Memory: mem}

	gw := llm.NewFromConfig(cfg)
	if !gw.Configured() {
		zap.L().Warn("no llm provider key set, analysis stages will degrade")
	}
	env.Gateway = gw

	searcher := search.NewFromConfig(cfg.Perplexity, cfg.Search)

	p, err := pipeline.New(cfg.Pipeline.Stages, pipeline.Deps{
		LLM:          gw,
		Prompts:      catalog,
		Memory:       mem,
		Searcher:     searcher,
		Scoring:      cfg.Scoring,
		SearchConfig: cfg.Search,
		Cost:         cost.NewCalculator(cfg.Pricing),
	})
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "build pipeline")
	}
	env.Pipeline = p

	zap.L().Info("pipeline ready",
		zap.Strings("stages", p.Stages()),
		zap.String("memory_driver", cfg.Memory.Driver),
	)

	return env, nil
}
