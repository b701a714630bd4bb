package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meridian-sourcing/procure-cli/internal/engine"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig       `yaml:"store" mapstructure:"store"`
	Server ServerConfig      `yaml:"server" mapstructure:"server"`
	Log    LogConfig         `yaml:"log" mapstructure:"log"`
	Rules  engine.RuleConfig `yaml:"rules" mapstructure:"rules"`
	Queue  QueueConfig       `yaml:"queue" mapstructure:"queue"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int     `yaml:"port" mapstructure:"port"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst          int     `yaml:"burst" mapstructure:"burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// QueueConfig configures the verification queue.
type QueueConfig struct {
	Limit int `yaml:"limit" mapstructure:"limit"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROCURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "procure.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.requests_per_sec", 20)
	v.SetDefault("server.burst", 40)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("queue.limit", 10)

	rules := engine.DefaultRuleConfig()
	v.SetDefault("rules.compression_threshold", rules.CompressionThreshold)
	v.SetDefault("rules.excerpt_limit", rules.ExcerptLimit)
	v.SetDefault("rules.compression_severity", string(rules.CompressionSeverity))
	v.SetDefault("rules.absence_severity", string(rules.AbsenceSeverity))
	v.SetDefault("rules.misalignment_severity", string(rules.MisalignmentSeverity))
	v.SetDefault("rules.contradiction_severity", string(rules.ContradictionSeverity))
	v.SetDefault("rules.zero_landfill_phrases", rules.ZeroLandfillPhrases)
	v.SetDefault("rules.operational_detail_keywords", rules.OperationalDetailKeywords)
	v.SetDefault("rules.palm_free_phrases", rules.PalmFreePhrases)
	v.SetDefault("rules.blend_phrases", rules.BlendPhrases)

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
