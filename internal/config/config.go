// Package config loads the nanoquery CLI settings from defaults, an optional
// YAML file and NANOQUERY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/arthur-debert/nanoquery/nanoquery/query"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "NANOQUERY"

// ConfigEnv names an explicit config file, overriding the search paths
const ConfigEnv = EnvPrefix + "_CONFIG"

// SearchPaths are the directories searched for nanoquery.yaml
var SearchPaths = []string{".", "$HOME/.nanoquery", "/etc/nanoquery"}

type Config struct {
	Schema     []string         `mapstructure:"schema"`
	LogLevel   string           `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat  string           `mapstructure:"log_format" validate:"oneof=text json"`
	LogFile    string           `mapstructure:"log_file"`
	Format     string           `mapstructure:"format" validate:"oneof=json yaml table"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Strict     bool             `mapstructure:"strict"`
}

type PaginationConfig struct {
	Policy string `mapstructure:"policy" validate:"oneof=reject clamp"`
}

// PaginationPolicy converts the configured policy name
func (c *Config) PaginationPolicy() query.Policy {
	p, _ := query.ParsePolicy(c.Pagination.Policy)
	return p
}

// New returns a viper instance with defaults and environment bindings.
// Callers may bind command line flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("schema", []string{})
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_file", "")
	v.SetDefault("format", "json")
	v.SetDefault("pagination.policy", "reject")
	v.SetDefault("strict", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file, unmarshals and validates the settings.
// configFile may be empty; then NANOQUERY_CONFIG and the search paths are tried,
// and a missing file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile == "" {
		configFile = os.Getenv(ConfigEnv)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("nanoquery")
		v.SetConfigType("yaml")
		for _, p := range SearchPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment", "paths", SearchPaths)
	} else {
		slog.Debug("configuration loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.Format = strings.ToLower(cfg.Format)
	cfg.Pagination.Policy = strings.ToLower(cfg.Pagination.Policy)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", key(fe.Namespace()), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// key maps a struct namespace such as Config.Pagination.Policy to its config key
func key(namespace string) string {
	switch strings.TrimPrefix(namespace, "Config.") {
	case "LogLevel":
		return "log_level"
	case "LogFormat":
		return "log_format"
	case "Format":
		return "format"
	case "Pagination.Policy":
		return "pagination.policy"
	default:
		return namespace
	}
}
