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

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "GAUGE"

var defaults = map[string]any{
	"server.port":             8080,
	"server.log_level":        "info",
	"server.shutdown_timeout": "15s",

	"database.max_open_conns":    10,
	"database.max_idle_conns":    5,
	"database.conn_max_lifetime": "5m",

	"auth.admin_role": "admin",
	"auth.issuer":     "",

	"diagnostic.max_questions":       30,
	"diagnostic.precision_threshold": 0.3,
	"diagnostic.time_limit":          "60m",
	"diagnostic.inactivity_grace":    "5m",
	"diagnostic.exposure_cap":        0.25,
	"diagnostic.critical_floor":      0.0,

	"diagnostic.estimator.theta_min":      -4.0,
	"diagnostic.estimator.theta_max":      4.0,
	"diagnostic.estimator.initial_points": 41,
	"diagnostic.estimator.max_iterations": 6,
	"diagnostic.estimator.tolerance":      1e-4,
	"diagnostic.estimator.prior_sd":       1.0,

	"analysis.target_ability": 0.5,
	"analysis.weak_margin":    0.5,
	"analysis.strong_margin":  0.5,

	"planning.difficulty_margin":    0.5,
	"planning.coverage_weight":      0.7,
	"planning.proximity_weight":     0.3,
	"planning.fallback_offset":      0.5,
	"planning.fallback_hours":       4.0,
	"planning.study_hours_per_week": 10.0,
	"planning.reassess_after":       "672h",

	"mastery.threshold": 2,
	"mastery.location":  "UTC",

	"reminder.first_days":   7,
	"reminder.second_days":  3,
	"reminder.final_days":   1,
	"reminder.overdue_days": 0,
	"reminder.concurrency":  4,

	"catalog.seed_file": "",
}

// Keys without a default still need binding so that environment values reach
// Unmarshal.
var requiredKeys = []string{
	"database.url",
	"auth.jwt_secret",
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from config files. A local .env file is loaded first when present.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given YAML file instead of
// searching the working directory. An empty path falls back to the search.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
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
	for _, key := range requiredKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and the cross-field rules that tags cannot express.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if _, err := cfg.Reminder.TierConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Mastery.Location); err != nil {
		return fmt.Errorf("configuration validation failed: mastery location: %w", err)
	}
	return nil
}
