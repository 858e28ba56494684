package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/disco/terminald/pkg/types"
)

// EnvPrefix is the prefix for environment variable overrides. Each field's
// envconfig tag is also honored without the prefix, so LOG_LEVEL and
// TERMINALD_LOG_LEVEL both work.
const EnvPrefix = "TERMINALD"

// envVarPattern matches ${VAR_NAME} and ${VAR_NAME:-default}
var envVarPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)(:-([^}]*))?\}`)

// interpolateEnvVars replaces ${VAR} and ${VAR:-default} placeholders in the
// raw config file before it is parsed.
func interpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) >= 4 && parts[3] != "" {
			defaultValue = parts[3]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// validateFilePath checks the config file path and extension
func validateFilePath(path string) error {
	if path == "" {
		return types.NewError(types.ErrCodeInvalidArgument, "configuration file path cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return types.NewError(types.ErrCodeInvalidArgument,
			"configuration file must have .yaml or .yml extension, got: "+ext)
	}

	return nil
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides, in that order of increasing precedence. An empty
// path skips the file step.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := validateFilePath(path); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, types.WrapError(types.ErrCodeInternal, "failed to read configuration file", err)
		}

		interpolated := interpolateEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
			return nil, types.WrapError(types.ErrCodeInvalidArgument, "failed to parse configuration file "+path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, types.WrapError(types.ErrCodeInvalidArgument, "failed to apply environment overrides", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
