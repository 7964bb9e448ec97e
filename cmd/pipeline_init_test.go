//go:build !integration

package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/icp-research/internal/config"
	"github.com/sells-group/icp-research/internal/industry"
	"github.com/sells-group/icp-research/internal/model"
	"github.com/sells-group/icp-research/internal/pipeline"
)

func testConfig(driver, path string) *config.Config {
	return &config.Config{
		Memory:   config.MemoryConfig{Driver: driver, Path: path},
		Pipeline: config.PipelineConfig{Stages: config.DefaultStages},
		Server:   config.ServerConfig{Port: 8080},
		Log:      config.LogConfig{Level: "error"},
	}
}

func TestPipelineEnv_Close_Nil(t *testing.T) {
	pe := &pipelineEnv{}
	assert.NotPanics(t, func() {
		pe.Close()
	})
}

func TestInitPipeline_NoProviders(t *testing.T) {
	cfg = testConfig("none", "")

	env, err := initPipeline(context.Background(), "research")
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, config.DefaultStages, env.Pipeline.Stages())
	assert.False(t, env.Gateway.Configured())
	assert.Equal(t, "none", env.Memory.Stats().Backend)

	// Every analysis stage degrades without providers, so the run yields no content.
	s, err := env.Pipeline.Run(context.Background(), model.NewResearchState("boutique yoga studios", "", ""))
	assert.True(t, errors.Is(err, pipeline.ErrNoContent))
	require.NotNil(t, s)
	assert.Equal(t, model.RunStatusCompleted, s.Status)
	assert.Equal(t, industry.WellnessHealth, s.IndustryContext)
}

func TestInitPipeline_FailsOnBadDriver(t *testing.T) {
	cfg = testConfig("mongo", "")

	env, err := initPipeline(context.Background(), "research")
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported memory driver")
}

func TestInitPipeline_FailsOnUnknownStage(t *testing.T) {
	cfg = testConfig("none", "")
	cfg.Pipeline.Stages = []string{"set_goal", "astrology"}

	env, err := initPipeline(context.Background(), "research")
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown stage "astrology"`)
}

func TestInitPipeline_FailsOnMissingPromptFile(t *testing.T) {
	cfg = testConfig("none", "")
	cfg.Prompts.Path = filepath.Join(t.TempDir(), "missing.yaml")

	env, err := initPipeline(context.Background(), "research")
	assert.Nil(t, env)
	assert.Error(t, err)
}

func TestOpenMemory_FilePersistsOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent_memory.json")
	c := testConfig("file", path)

	env := &pipelineEnv{Memory: openMemory(context.Background(), c)}
	assert.Equal(t, "file", env.Memory.Stats().Backend)
	env.Close()

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenMemory_UnavailableBackendFallsBack(t *testing.T) {
	// A regular file where the memory directory should be makes the
	// backend's migration fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	cfg = testConfig("file", filepath.Join(blocker, "memory", "agent_memory.json"))

	env, err := initPipeline(context.Background(), "serve")
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, "none", env.Memory.Stats().Backend)
	assert.NotNil(t, env.Pipeline)
}
