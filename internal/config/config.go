package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := newViper(configPath)

	// Read configuration
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

// newViper configures search paths and environment overrides
func newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/pii-redactor/")
	v.AddConfigPath("$HOME/.pii-redactor/")

	// Environment variable overrides, e.g. PII_SERVER_PORT
	v.SetEnvPrefix("PII")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Env lookups only apply to keys viper already knows about
	for _, key := range []string{
		"server.port",
		"redaction.enabled",
		"redaction.max_file_mb",
		"sessions.backend",
		"sessions.redis_url",
		"audit.backend",
		"audit.database_url",
		"logging.level",
		"logging.format",
	} {
		_ = v.BindEnv(key)
	}

	// Use specific config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	return v
}

// decode unmarshals on top of the defaults and validates the result
func decode(v *viper.Viper) (*Config, error) {
	cfg := GetDefaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Redaction.MaxFileMB <= 0 {
		return fmt.Errorf("invalid max_file_mb: %d", config.Redaction.MaxFileMB)
	}

	if config.Redaction.WorkerCount <= 0 {
		return fmt.Errorf("invalid worker_count: %d", config.Redaction.WorkerCount)
	}

	for i, rule := range config.Redaction.CustomRules {
		if rule.Name == "" || rule.Pattern == "" {
			return fmt.Errorf("custom rule %d: name and pattern are required", i)
		}
	}

	if config.Sessions.Backend != "memory" && config.Sessions.Backend != "redis" {
		return fmt.Errorf("invalid sessions backend: %s (must be memory or redis)", config.Sessions.Backend)
	}

	if config.Sessions.TTL <= 0 {
		return fmt.Errorf("invalid sessions ttl: %s", config.Sessions.TTL)
	}

	if config.Sessions.CleanupInterval <= 0 {
		return fmt.Errorf("invalid sessions cleanup_interval: %s", config.Sessions.CleanupInterval)
	}

	switch config.Audit.Backend {
	case "none", "file":
	case "postgres":
		if config.Audit.DatabaseURL == "" {
			return fmt.Errorf("audit backend postgres requires database_url")
		}
	default:
		return fmt.Errorf("invalid audit backend: %s (must be none, file, or postgres)", config.Audit.Backend)
	}

	if config.RateLimit.Enabled && config.RateLimit.RequestsPerMin <= 0 {
		return fmt.Errorf("invalid requests_per_min: %d", config.RateLimit.RequestsPerMin)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	return nil
}

// Watch re-reads the configuration file whenever it changes and hands every
// valid version to callback. Invalid versions are passed to onError.
func Watch(configPath string, callback func(*Config), onError func(error)) error {
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("%s: %w", e.Name, err))
			}
			return
		}
		callback(cfg)
	})
	v.WatchConfig()

	return nil
}

// rulesFile is the on-disk shape of a rules file
type rulesFile struct {
	Rules []RuleConfig `yaml:"rules"`
}

// LoadRulesFile reads additional detection rules from a YAML file
func LoadRulesFile(path string) ([]RuleConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	for i, rule := range file.Rules {
		if rule.Name == "" || rule.Pattern == "" {
			return nil, fmt.Errorf("rules file %s: rule %d needs name and pattern", path, i)
		}
	}

	return file.Rules, nil
}
