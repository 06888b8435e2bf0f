package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is loaded once,
// validated before any batch is submitted, and passed into components as
// an immutable value.
type Config struct {
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Processing ProcessingConfig `yaml:"processing" mapstructure:"processing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DataConfig locates pipeline inputs and durable stage outputs.
type DataConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	TaxonomyPath string `yaml:"taxonomy_path" mapstructure:"taxonomy_path"`
}

// StoreConfig configures the batch-state registry backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ClassifierConfig holds the external classification service settings.
type ClassifierConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	Model         string  `yaml:"model" mapstructure:"model"`
	MaxTokens     int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// ProcessingConfig holds the pipeline thresholds and retry policy.
type ProcessingConfig struct {
	BatchSize          int     `yaml:"batch_size" mapstructure:"batch_size"`
	MemoryCleanupEvery int     `yaml:"memory_cleanup_every" mapstructure:"memory_cleanup_every"`
	PatternMinCount    int     `yaml:"pattern_min_count" mapstructure:"pattern_min_count"`
	PatternMinPercent  float64 `yaml:"pattern_min_percent" mapstructure:"pattern_min_percent"`
	TimeoutSecs        int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries         int     `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelaySecs     int     `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	MaxConcurrent      int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MinNarrativeLen    int     `yaml:"min_narrative_len" mapstructure:"min_narrative_len"`
	MinWords           int     `yaml:"min_words" mapstructure:"min_words"`
}

// Timeout returns the per-batch submission time budget.
func (p ProcessingConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// RetryDelay returns the fixed wait between retry attempts.
func (p ProcessingConfig) RetryDelay() time.Duration {
	return time.Duration(p.RetryDelaySecs) * time.Second
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CRIMEVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.taxonomy_path", "taxonomy.yaml")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/crimeval.db")
	v.SetDefault("classifier.model", "claude-haiku-4-5-20251001")
	v.SetDefault("classifier.max_tokens", 1024)
	v.SetDefault("classifier.rate_per_second", 5)
	v.SetDefault("processing.batch_size", 350)
	v.SetDefault("processing.memory_cleanup_every", 5)
	v.SetDefault("processing.pattern_min_count", 10)
	v.SetDefault("processing.pattern_min_percent", 5.0)
	v.SetDefault("processing.timeout_secs", 90)
	v.SetDefault("processing.max_retries", 3)
	v.SetDefault("processing.retry_delay_secs", 60)
	v.SetDefault("processing.max_concurrent", 1)
	v.SetDefault("processing.min_narrative_len", 21)
	v.SetDefault("processing.min_words", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks thresholds and retry policy. A failure here is the only
// pipeline-fatal error class: it aborts the run before any batch is
// submitted.
func (c *Config) Validate() error {
	p := c.Processing
	switch {
	case p.BatchSize <= 0:
		return eris.Errorf("config: batch_size must be positive, got %d", p.BatchSize)
	case p.MemoryCleanupEvery <= 0:
		return eris.Errorf("config: memory_cleanup_every must be positive, got %d", p.MemoryCleanupEvery)
	case p.PatternMinCount < 1:
		return eris.Errorf("config: pattern_min_count must be at least 1, got %d", p.PatternMinCount)
	case p.PatternMinPercent < 0 || p.PatternMinPercent > 100:
		return eris.Errorf("config: pattern_min_percent must be within [0,100], got %.2f", p.PatternMinPercent)
	case p.TimeoutSecs <= 0:
		return eris.Errorf("config: timeout_secs must be positive, got %d", p.TimeoutSecs)
	case p.MaxRetries < 1:
		return eris.Errorf("config: max_retries must be at least 1, got %d", p.MaxRetries)
	case p.RetryDelaySecs < 0:
		return eris.Errorf("config: retry_delay_secs must not be negative, got %d", p.RetryDelaySecs)
	case p.MaxConcurrent < 1:
		return eris.Errorf("config: max_concurrent must be at least 1, got %d", p.MaxConcurrent)
	case p.MinNarrativeLen < 0:
		return eris.Errorf("config: min_narrative_len must not be negative, got %d", p.MinNarrativeLen)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	return nil
}

// RequireClassifierKey enforces credentials for stages that call the
// external service. Missing credentials abort before submission.
func (c *Config) RequireClassifierKey() error {
	if c.Classifier.Key == "" {
		return eris.New("config: classifier key missing (set CRIMEVAL_CLASSIFIER_KEY)")
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
	zap.ReplaceGlobals(logger)

	return nil
}
