package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SCRY"

// defaults are applied before any file or environment value.
var defaults = map[string]any{
	"server.port":                  8080,
	"server.log_level":             "info",
	"server.shutdown_timeout":      10 * time.Second,
	"database.url":                 "",
	"database.max_open_conns":      10,
	"database.conn_max_lifetime":   30 * time.Minute,
	"local.driver":                 "sqlite",
	"local.path":                   "scry-progress.db",
	"sync.enabled":                 true,
	"sync.interval":                30 * time.Second,
	"sync.collection_timeout":      10 * time.Second,
	"sync.max_retries":             3,
	"sync.retry_base_delay":        200 * time.Millisecond,
	"sync.conflict_policy":         "latest",
	"progress.timezone":            "UTC",
	"progress.max_quiz_attempts":   50,
	"progress.min_ease_factor":     1.3,
	"progress.initial_ease_factor": 2.5,
	"progress.max_interval":        36500,
	"auth.jwt_secret":              "",
	"auth.token_lifetime":          time.Hour,
}

// Load reads configuration from the working directory. See LoadFile.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration in increasing order of precedence: defaults,
// the YAML file at path (or ./config.yaml when path is empty and the file
// exists), variables from ./.env, and SCRY_ environment variables such as
// SCRY_SERVER_PORT or SCRY_SYNC_INTERVAL.
func LoadFile(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Location resolves the configured timezone.
func (c ProgressConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
