package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	AI         AIConfig         `yaml:"ai" mapstructure:"ai"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
}

// EngineConfig controls slicing of large runs.
type EngineConfig struct {
	SliceSize           int `yaml:"slice_size" mapstructure:"slice_size"`
	LargeInputThreshold int `yaml:"large_input_threshold" mapstructure:"large_input_threshold"`
}

// ClassifierConfig selects the rule set and optional threshold overrides.
// A zero threshold keeps the rule file's value.
type ClassifierConfig struct {
	RulesPath       string `yaml:"rules_path" mapstructure:"rules_path"`
	AgentThreshold  int    `yaml:"agent_threshold" mapstructure:"agent_threshold"`
	VendorThreshold int    `yaml:"vendor_threshold" mapstructure:"vendor_threshold"`
	SoldPath        string `yaml:"sold_path" mapstructure:"sold_path"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AIConfig configures the optional model-assisted classification pass.
type AIConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	Key               string  `yaml:"key" mapstructure:"key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Model             string  `yaml:"model" mapstructure:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
	BreakerThreshold  int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	MaxUploadMB    int64    `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ExportConfig controls CSV output.
type ExportConfig struct {
	ChangedOnly bool `yaml:"changed_only" mapstructure:"changed_only"`
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
	v.SetEnvPrefix("CRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("engine.slice_size", 1000)
	v.SetDefault("engine.large_input_threshold", 2000)
	v.SetDefault("classifier.rules_path", "")
	v.SetDefault("classifier.agent_threshold", 0)
	v.SetDefault("classifier.vendor_threshold", 0)
	v.SetDefault("classifier.sold_path", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "crm-cleanup.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", "claude-haiku-4-5-20251001")
	v.SetDefault("ai.timeout_secs", 20)
	v.SetDefault("ai.max_attempts", 3)
	v.SetDefault("ai.requests_per_second", 2.0)
	v.SetDefault("ai.concurrency", 4)
	v.SetDefault("ai.breaker_threshold", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 50)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("export.changed_only", false)

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

// Validate checks the settings a command needs before it starts work.
// mode is the command name: "run" or "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite", "none":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, none", c.Store.Driver))
	}
	if c.Engine.SliceSize <= 0 {
		problems = append(problems, "engine.slice_size must be positive")
	}
	if c.AI.Enabled && c.AI.Key == "" {
		problems = append(problems, "ai.key is required when ai.enabled is set")
	}
	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
		if c.Server.MaxUploadMB <= 0 {
			problems = append(problems, "server.max_upload_mb must be positive")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
