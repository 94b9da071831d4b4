package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. UBLPDF_LOGGER_LEVEL
const EnvPrefix = "UBLPDF"

// Config holds all application configuration
type Config struct {
	Convert ConvertConfig `mapstructure:"convert"`
	Server  ServerConfig  `mapstructure:"server"`
	Trust   TrustConfig   `mapstructure:"trust"`
	Logger  LoggerConfig  `mapstructure:"logger"`
}

// ConvertConfig holds batch conversion configuration
type ConvertConfig struct {
	Output           string   `mapstructure:"output"`
	Extensions       []string `mapstructure:"extensions"`
	NoEmbedded       bool     `mapstructure:"no_embedded"`
	Workers          int      `mapstructure:"workers"`
	ValidateEmbedded bool     `mapstructure:"validate_embedded"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	Debug        bool          `mapstructure:"debug"`
}

// TrustConfig holds signature verification configuration
type TrustConfig struct {
	CAFile string `mapstructure:"ca_file"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// New returns a viper instance with defaults and environment overrides set
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("convert.output", "")
	v.SetDefault("convert.extensions", []string{"xml", "ubl"})
	v.SetDefault("convert.no_embedded", false)
	v.SetDefault("convert.workers", runtime.NumCPU())
	v.SetDefault("convert.validate_embedded", false)

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_body_bytes", 32<<20)
	v.SetDefault("server.debug", false)

	v.SetDefault("trust.ca_file", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stderr")
}

// Load reads the optional config file into v and returns the validated configuration.
// The file type is taken from its extension.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Convert.Extensions = normalizeExtensions(cfg.Convert.Extensions)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// normalizeExtensions lower-cases extensions, drops leading dots and splits
// comma-joined entries coming from a single env value
func normalizeExtensions(exts []string) []string {
	var out []string
	for _, e := range exts {
		for _, part := range strings.Split(e, ",") {
			part = strings.ToLower(strings.TrimLeft(strings.TrimSpace(part), "."))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Convert.Workers < 1 {
		return errors.New("convert.workers must be at least 1")
	}
	if len(c.Convert.Extensions) == 0 {
		return errors.New("convert.extensions must not be empty")
	}
	if c.Server.MaxBodyBytes < 1 {
		return errors.New("server.max_body_bytes must be positive")
	}
	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}
	return nil
}
