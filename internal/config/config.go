package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Bundle    BundleConfig    `yaml:"bundle" mapstructure:"bundle"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Dataset   DatasetConfig   `yaml:"dataset" mapstructure:"dataset"`
	Prompts   PromptsConfig   `yaml:"prompts" mapstructure:"prompts"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GeminiConfig holds the primary model settings.
type GeminiConfig struct {
	APIKey        string `yaml:"api_key" mapstructure:"api_key"`
	Model         string `yaml:"model" mapstructure:"model"`
	ThinkingLevel string `yaml:"thinking_level" mapstructure:"thinking_level"`
}

// BundleConfig holds the reconciliation bundle model settings. Key and model
// fall back to the primary ones when unset.
type BundleConfig struct {
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	Model    string `yaml:"model" mapstructure:"model"`
	Fallback bool   `yaml:"fallback" mapstructure:"fallback"`
}

// AnthropicConfig holds the Claude credential, used when a claude model is
// selected.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// LLMConfig tunes the shared client guardrails.
type LLMConfig struct {
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// DatasetConfig points at the dataset directory.
type DatasetConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// PromptsConfig points at the prompt template overrides.
type PromptsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the findings archive backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("ASKTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("gemini.model", "gemini-3-flash-preview")
	v.SetDefault("llm.timeout_secs", 60)
	v.SetDefault("dataset.dir", "dataset")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "asktra.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
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

	applyEnvFallbacks(v, &cfg)

	return &cfg, nil
}

// applyEnvFallbacks honors the conventional unprefixed variables used by
// hosted-model SDKs. Explicit config always wins; the model fallback only
// replaces the built-in default, never a value the user provided.
func applyEnvFallbacks(v *viper.Viper, cfg *Config) {
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
	}
	if !v.IsSet("gemini.model") {
		if m := os.Getenv("GEMINI_MODEL"); m != "" {
			cfg.Gemini.Model = m
		}
	}
	if cfg.Gemini.ThinkingLevel == "" {
		cfg.Gemini.ThinkingLevel = os.Getenv("GEMINI_THINKING_LEVEL")
	}
	if cfg.Bundle.APIKey == "" {
		cfg.Bundle.APIKey = os.Getenv("GEMINI_BUNDLE_API_KEY")
	}
	if cfg.Bundle.Model == "" {
		cfg.Bundle.Model = os.Getenv("GEMINI_BUNDLE_MODEL")
	}
	if cfg.Anthropic.APIKey == "" {
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
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
