// Package config provides configuration loading for the guardrail engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches standard locations for
// guardrail.yaml/.yml. An explicit YAML extension is required so the search
// never matches the binary itself.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file in any standard location. Set name/type without
		// search paths so ReadInConfig returns ConfigFileNotFoundError,
		// which callers handle gracefully.
		viper.SetConfigName("guardrail")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: GUARDRAIL_STORAGE_BACKEND
	viper.SetEnvPrefix("GUARDRAIL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for guardrail.yaml or .yml.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".guardrail"),
		"/etc/guardrail",
	}
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "guardrail"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds all config keys for environment variable support.
// Example: GUARDRAIL_STORAGE_PATH overrides storage.path.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("storage.backend")
	_ = viper.BindEnv("storage.path")
	_ = viper.BindEnv("log_level")
	_ = viper.BindEnv("tenant")
	_ = viper.BindEnv("audit.log_evaluations")
	_ = viper.BindEnv("evaluation.cache_size")
	_ = viper.BindEnv("telemetry.tracing")
}

// LoadConfig reads the configuration file, applies environment overrides
// and defaults, validates, and returns the Config.
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars and defaults only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the loaded configuration file, or an
// empty string when running on env vars and defaults only.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
