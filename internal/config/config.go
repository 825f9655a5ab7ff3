package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/fx"
)

// Config holds all configuration from environment variables.
type Config struct {
	Token   string `envconfig:"TELEGRAM_API_TOKEN" required:"true"`
	APIKey  string `envconfig:"OPENROUTER_API_KEY" required:"true"`
	BaseURL string `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
	Model   string `envconfig:"OPENROUTER_MODEL" default:"google/gemini-2.5-flash-image"`

	// Optional Postgres DSN; empty means the in-memory session store.
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`

	// How long an uploaded image waits for an instruction before it is
	// evicted. Zero disables eviction.
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"1h"`

	EditTimeout     time.Duration `envconfig:"EDIT_TIMEOUT" default:"120s"`
	DownloadTimeout time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"30s"`
	MaxAttempts     int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`

	// Port for the health/metrics endpoint.
	Port int `envconfig:"PORT" default:"3000"`

	// Path to config.toml file
	ConfigFile string `envconfig:"CONFIG_FILE" default:"config.toml"`

	// Prompts loaded from config.toml
	Prompts Prompts
}

// Prompts holds the edit directive loaded from config.toml.
type Prompts struct {
	// Directive is prefixed to every edit instruction. An explicitly
	// empty value in config.toml disables the prefix.
	Directive string `toml:"directive"`
}

// FileConfig represents the structure of config.toml.
type FileConfig struct {
	Prompts Prompts `toml:"prompts"`
}

// DefaultPrompts provides the fallback directive if config.toml is not found.
var DefaultPrompts = Prompts{
	Directive: `You are a precise image editor. Apply exactly the requested change and nothing else.

RULES:
1. Make ONLY the change the user asked for.
2. Preserve the original formatting, colors, layout, quality and resolution.
3. Match the style of the surrounding content so the edit looks natural.
4. Do not add watermarks, signatures, or any extra elements.`,
}

// LoadEnv loads the configuration from environment variables.
func (c Config) LoadEnv() (Config, error) {
	cfg := c

	if err := envconfig.Process("", &cfg); err != nil {
		return c, err
	}

	return cfg, nil
}

// LoadFile loads the directive from the config.toml file. A missing
// file falls back to the compiled-in default; a present file is taken
// verbatim, so a deployment can disable the directive by setting it
// to an empty string.
func (c *Config) LoadFile() error {
	configPath := c.ConfigFile
	if !filepath.IsAbs(configPath) {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			// Try executable directory
			execPath, err := os.Executable()
			if err == nil {
				execDir := filepath.Dir(execPath)
				configPath = filepath.Join(execDir, c.ConfigFile)
			}
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		c.Prompts = DefaultPrompts
		return nil
	}

	var fileConfig FileConfig
	if _, err := toml.DecodeFile(configPath, &fileConfig); err != nil {
		return err
	}

	c.Prompts = fileConfig.Prompts

	return nil
}

func NewConfig() (*Config, error) {
	var cfg Config
	loadedCfg, err := cfg.LoadEnv()
	if err != nil {
		return nil, err
	}

	if err := loadedCfg.LoadFile(); err != nil {
		return nil, err
	}

	return &loadedCfg, nil
}

func Module() fx.Option {
	return fx.Module(
		"config",
		fx.Provide(
			NewConfig,
		),
	)
}
