// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like ENGINE_APPROVE_BELOW
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, optional
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the first location that has one, so workers and
// tests behave the same regardless of working directory.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in all string settings.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		if val, ok := v.Get(key).(string); ok && strings.Contains(val, "${") {
			v.Set(key, os.ExpandEnv(val))
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "advisor-manager"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 20
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	applyEngineDefaults(&cfg.Engine)
}

// applyEngineDefaults fills in the documented stable defaults for every
// engine tuning parameter that was left unset.
func applyEngineDefaults(e *EngineConfig) {
	if e.ApproveBelow == 0 {
		e.ApproveBelow = 0.15
	}
	if e.RejectAtOrAbove == 0 {
		e.RejectAtOrAbove = 0.40
	}
	if e.TopK == 0 {
		e.TopK = 5
	}
	if e.SampleCount == 0 {
		e.SampleCount = 200
	}
	if e.SignificanceThreshold == 0 {
		e.SignificanceThreshold = 0.005
	}
	if e.MaxQuestions == 0 {
		e.MaxQuestions = 7
	}
	if e.MaxDocuments == 0 {
		e.MaxDocuments = 6
	}
	if e.MaxActions == 0 {
		e.MaxActions = 6
	}
	if e.DecayFactor == 0 {
		e.DecayFactor = 0.7
	}
	// ProjectionFloor default stays 0: never project below zero, nothing more.
}

func validateConfig(cfg *Config) error {
	if cfg.Engine.ApproveBelow >= cfg.Engine.RejectAtOrAbove {
		return fmt.Errorf("engine.approve_below (%v) must be < engine.reject_at_or_above (%v)",
			cfg.Engine.ApproveBelow, cfg.Engine.RejectAtOrAbove)
	}
	if cfg.Engine.DecayFactor <= 0 || cfg.Engine.DecayFactor >= 1 {
		return fmt.Errorf("engine.decay_factor (%v) must be in (0,1)", cfg.Engine.DecayFactor)
	}
	if cfg.Engine.SampleCount < 10 {
		return fmt.Errorf("engine.sample_count (%d) too small for a stable local fit", cfg.Engine.SampleCount)
	}
	return nil
}
