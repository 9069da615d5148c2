package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for sessionguard.yaml/.yml
// in standard locations. The search requires an explicit YAML extension to
// avoid matching the binary itself.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found; ReadInConfig will return
		// ConfigFileNotFoundError, which callers handle gracefully.
		viper.SetConfigName("sessionguard")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: SESSIONGUARD_SERVER_BASE_URL
	viper.SetEnvPrefix("SESSIONGUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a sessionguard config file
// with an explicit YAML extension.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".sessionguard"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "sessionguard"))
		}
	} else {
		paths = append(paths, "/etc/sessionguard")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths returns the first sessionguard.yaml or .yml found in
// the given directories, or empty string.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "sessionguard"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds all config keys for environment variable support.
// Example: SESSIONGUARD_SERVER_BASE_URL overrides server.base_url
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.base_url")
	_ = viper.BindEnv("server.http_timeout")
	_ = viper.BindEnv("server.log_level")

	_ = viper.BindEnv("session.status_interval")
	_ = viper.BindEnv("session.tick_interval")
	_ = viper.BindEnv("session.auto_extend")

	_ = viper.BindEnv("persistence.path")

	_ = viper.BindEnv("telemetry.trace_enabled")
	_ = viper.BindEnv("telemetry.metrics_addr")
}

// LoadConfig reads the configuration file, applies environment overrides and
// defaults, validates, and returns the Config.
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: run on env vars and defaults alone.
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

// ConfigFileUsed returns the path to the configuration file that was loaded,
// or an empty string when running on environment variables only.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
