package config

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sells-group/icp-research/internal/cost"
	"github.com/sells-group/icp-research/pkg/perplexity"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Memory     MemoryConfig     `yaml:"memory" mapstructure:"memory"`
	Prompts    PromptsConfig    `yaml:"prompts" mapstructure:"prompts"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
}

// OpenAIConfig holds settings for the OpenAI-compatible secondary provider.
type OpenAIConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	Model         string `yaml:"model" mapstructure:"model"`
	CreativeModel string `yaml:"creative_model" mapstructure:"creative_model"`
}

// PerplexityConfig holds Perplexity API settings. Perplexity backs the
// web-search collaborator used by competitor discovery.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// LLMConfig configures gateway call behavior shared by all providers.
type LLMConfig struct {
	TimeoutSecs      int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RetryAttempts    int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs   int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// SearchConfig configures the web-search collaborator.
type SearchConfig struct {
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLMins int     `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxQueries   int     `yaml:"max_queries" mapstructure:"max_queries"`
	Concurrency  int     `yaml:"concurrency" mapstructure:"concurrency"`
	Recency      string  `yaml:"recency" mapstructure:"recency"`
}

// MemoryConfig configures the learning/memory store and its backend.
type MemoryConfig struct {
	Driver                 string  `yaml:"driver" mapstructure:"driver"`
	Path                   string  `yaml:"path" mapstructure:"path"`
	DatabaseURL            string  `yaml:"database_url" mapstructure:"database_url"`
	MaxHistory             int     `yaml:"max_history" mapstructure:"max_history"`
	MaxPatternsPerIndustry int     `yaml:"max_patterns_per_industry" mapstructure:"max_patterns_per_industry"`
	SimilarityThreshold    float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	MaxSimilar             int     `yaml:"max_similar" mapstructure:"max_similar"`
	MaxConns               int32   `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns               int32   `yaml:"min_conns" mapstructure:"min_conns"`
}

// PromptsConfig points at an optional prompt catalog override file.
type PromptsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PipelineConfig configures the stage sequence.
type PipelineConfig struct {
	Stages []string `yaml:"stages" mapstructure:"stages"`
}

// ScoringConfig holds the tunable constants of the quality and confidence
// heuristics.
type ScoringConfig struct {
	QualityBaseline    float64 `yaml:"quality_baseline" mapstructure:"quality_baseline"`
	QualityCap         float64 `yaml:"quality_cap" mapstructure:"quality_cap"`
	MemoryBonus        float64 `yaml:"memory_bonus" mapstructure:"memory_bonus"`
	DepthBonus         float64 `yaml:"depth_bonus" mapstructure:"depth_bonus"`
	DepthThreshold     int     `yaml:"depth_threshold" mapstructure:"depth_threshold"`
	IntegrationBonus   float64 `yaml:"integration_bonus" mapstructure:"integration_bonus"`
	CompletionBonus    float64 `yaml:"completion_bonus" mapstructure:"completion_bonus"`
	CompletionMin      int     `yaml:"completion_min" mapstructure:"completion_min"`
	ConfidenceBaseline float64 `yaml:"confidence_baseline" mapstructure:"confidence_baseline"`
	ConfidenceCap      float64 `yaml:"confidence_cap" mapstructure:"confidence_cap"`
	ConfidenceMemory   float64 `yaml:"confidence_memory" mapstructure:"confidence_memory"`
	ConfidenceHalf     float64 `yaml:"confidence_half" mapstructure:"confidence_half"`
	ConfidenceAll      float64 `yaml:"confidence_all" mapstructure:"confidence_all"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging. File enables a rotating log file in
// addition to stderr output.
type LogConfig struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"`
	File      string `yaml:"file" mapstructure:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
}

// DefaultStages is the canonical stage sequence.
var DefaultStages = []string{
	"set_goal",
	"psychological_analysis",
	"conversion_intelligence",
	"competitor_discovery",
	"psychological_interviews",
	"sales_intelligence_interviews",
	"synthesis",
	"score_and_learn",
	"format",
}

var memoryDrivers = []string{"none", "file", "sqlite", "postgres"}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional provider variables are honored alongside the prefixed ones.
	_ = v.BindEnv("anthropic.key", "RESEARCH_ANTHROPIC_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("openai.key", "RESEARCH_OPENAI_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("perplexity.key", "RESEARCH_PERPLEXITY_KEY", "PERPLEXITY_API_KEY")
	_ = v.BindEnv("server.port", "RESEARCH_SERVER_PORT", "PORT")

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_secs", 300)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.creative_model", "gpt-4o-mini")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("llm.timeout_secs", 120)
	v.SetDefault("llm.retry_attempts", 2)
	v.SetDefault("llm.retry_backoff_ms", 1000)
	v.SetDefault("llm.breaker_threshold", 5)
	v.SetDefault("llm.breaker_reset_secs", 60)
	v.SetDefault("search.timeout_secs", 20)
	v.SetDefault("search.cache_ttl_mins", 60)
	v.SetDefault("search.rate_per_sec", 2.0)
	v.SetDefault("search.max_queries", 4)
	v.SetDefault("search.concurrency", 2)
	v.SetDefault("search.recency", "year")
	v.SetDefault("memory.driver", "file")
	v.SetDefault("memory.path", "agent_memory.json")
	v.SetDefault("memory.max_history", 500)
	v.SetDefault("memory.max_patterns_per_industry", 50)
	v.SetDefault("memory.similarity_threshold", 0.3)
	v.SetDefault("memory.max_similar", 5)
	v.SetDefault("pipeline.stages", DefaultStages)
	v.SetDefault("scoring.quality_baseline", 0.80)
	v.SetDefault("scoring.quality_cap", 0.97)
	v.SetDefault("scoring.memory_bonus", 0.03)
	v.SetDefault("scoring.depth_bonus", 0.02)
	v.SetDefault("scoring.depth_threshold", 2500)
	v.SetDefault("scoring.integration_bonus", 0.03)
	v.SetDefault("scoring.completion_bonus", 0.02)
	v.SetDefault("scoring.completion_min", 4)
	v.SetDefault("scoring.confidence_baseline", 0.80)
	v.SetDefault("scoring.confidence_cap", 0.92)
	v.SetDefault("scoring.confidence_memory", 0.04)
	v.SetDefault("scoring.confidence_half", 0.03)
	v.SetDefault("scoring.confidence_all", 0.03)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings required by the given mode are present
// and that enum-like settings hold known values. Mode is "serve" or
// "research".
func (c *Config) Validate(mode string) error {
	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			return eris.New("config: server.port must be > 0")
		}
	case "research":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}
	if !slices.Contains(memoryDrivers, c.Memory.Driver) {
		return eris.Errorf("config: unsupported memory driver %q (want one of %s)",
			c.Memory.Driver, strings.Join(memoryDrivers, ", "))
	}
	if c.Memory.Driver == "postgres" && c.Memory.DatabaseURL == "" {
		return eris.New("config: memory.database_url is required for the postgres driver")
	}
	if (c.Memory.Driver == "file" || c.Memory.Driver == "sqlite") && c.Memory.Path == "" {
		return eris.Errorf("config: memory.path is required for the %s driver", c.Memory.Driver)
	}
	if len(c.Pipeline.Stages) == 0 {
		return eris.New("config: pipeline.stages must not be empty")
	}
	if c.Search.Recency != "" && !slices.Contains(perplexity.Recencies, c.Search.Recency) {
		return eris.Errorf("config: unsupported search.recency %q (want one of %s)",
			c.Search.Recency, strings.Join(perplexity.Recencies, ", "))
	}
	if c.Scoring.QualityCap >= 1.0 || c.Scoring.ConfidenceCap >= 1.0 {
		return eris.New("config: score caps must be below 1.0")
	}
	if c.Scoring.QualityBaseline > c.Scoring.QualityCap || c.Scoring.ConfidenceBaseline > c.Scoring.ConfidenceCap {
		return eris.New("config: score baselines must not exceed their caps")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}

	if cfg.File != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotator),
			zapCfg.Level,
		)
		logger = logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}))
	}

	zap.ReplaceGlobals(logger)

	return nil
}
