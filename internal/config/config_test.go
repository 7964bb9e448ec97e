package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Memory.Driver)
	assert.Equal(t, "agent_memory.json", cfg.Memory.Path)
	assert.Equal(t, 500, cfg.Memory.MaxHistory)
	assert.Equal(t, 50, cfg.Memory.MaxPatternsPerIndustry)
	assert.InDelta(t, 0.3, cfg.Memory.SimilarityThreshold, 0.001)
	assert.Equal(t, 5, cfg.Memory.MaxSimilar)
	assert.Equal(t, "year", cfg.Search.Recency)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, DefaultStages, cfg.Pipeline.Stages)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.HaikuModel)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.CreativeModel)
	assert.Equal(t, "sonar", cfg.Perplexity.Model)
	assert.Equal(t, 2, cfg.LLM.RetryAttempts)
	assert.InDelta(t, 0.80, cfg.Scoring.QualityBaseline, 0.001)
	assert.InDelta(t, 0.97, cfg.Scoring.QualityCap, 0.001)
	assert.InDelta(t, 0.92, cfg.Scoring.ConfidenceCap, 0.001)
	assert.Equal(t, 2500, cfg.Scoring.DepthThreshold)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
memory:
  driver: sqlite
  path: memory.db
log:
  level: debug
  format: console
server:
  port: 9090
pipeline:
  stages: [set_goal, psychological_analysis, format]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Memory.Driver)
	assert.Equal(t, "memory.db", cfg.Memory.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"set_goal", "psychological_analysis", "format"}, cfg.Pipeline.Stages)
	// Defaults still apply for unset values
	assert.Equal(t, 500, cfg.Memory.MaxHistory)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
memory:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RESEARCH_MEMORY_DRIVER", "none")
	t.Setenv("RESEARCH_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "none", cfg.Memory.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("RESEARCH_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadConventionalKeyVariables(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OPENAI_API_KEY", "sk-openai-test")
	t.Setenv("PERPLEXITY_API_KEY", "pplx-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
	assert.Equal(t, "sk-openai-test", cfg.OpenAI.Key)
	assert.Equal(t, "pplx-test", cfg.Perplexity.Key)
}

func TestLoadPrefixedKeyWins(t *testing.T) {
	chdirTemp(t)

	t.Setenv("RESEARCH_ANTHROPIC_KEY", "prefixed")
	t.Setenv("ANTHROPIC_API_KEY", "conventional")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Anthropic.Key)
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("memory: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func TestInitLoggerFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "research.log")
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json", File: path}))

	zap.L().Info("file sink check")
	_ = zap.L().Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file sink check")
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Memory.Driver = "file"
	cfg.Memory.Path = "agent_memory.json"
	cfg.Pipeline.Stages = DefaultStages
	cfg.Scoring.QualityBaseline = 0.80
	cfg.Scoring.QualityCap = 0.97
	cfg.Scoring.ConfidenceBaseline = 0.80
	cfg.Scoring.ConfidenceCap = 0.92
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateServe_ValidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 9090

	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	// The one-shot command never binds a port.
	assert.NoError(t, cfg.Validate("research"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateMemoryDriver(t *testing.T) {
	cfg := validDefaults()

	cfg.Memory.Driver = "redis"
	err := cfg.Validate("research")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported memory driver")

	cfg.Memory.Driver = "postgres"
	err = cfg.Validate("research")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "memory.database_url is required")

	cfg.Memory.DatabaseURL = "postgres://localhost/research"
	assert.NoError(t, cfg.Validate("research"))

	cfg.Memory.Driver = "sqlite"
	cfg.Memory.Path = ""
	err = cfg.Validate("research")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "memory.path is required")

	cfg.Memory.Driver = "none"
	assert.NoError(t, cfg.Validate("research"))
}

func TestValidateSearchRecency(t *testing.T) {
	cfg := validDefaults()
	cfg.Search.Recency = "year"
	assert.NoError(t, cfg.Validate("research"))

	cfg.Search.Recency = ""
	assert.NoError(t, cfg.Validate("research"))

	cfg.Search.Recency = "decade"
	err := cfg.Validate("research")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported search.recency")
}

func TestValidateStagesAndScoring(t *testing.T) {
	cfg := validDefaults()

	cfg.Pipeline.Stages = nil
	err := cfg.Validate("research")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.stages")

	cfg.Pipeline.Stages = DefaultStages
	cfg.Scoring.QualityCap = 1.0
	err = cfg.Validate("research")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "below 1.0")

	cfg.Scoring.QualityCap = 0.97
	cfg.Scoring.ConfidenceBaseline = 0.95
	err = cfg.Validate("research")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "baselines")
}
