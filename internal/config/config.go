// Package config loads runtime configuration from .stagegate/config.yaml.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the runtime configuration from .stagegate/config.yaml.
// Credential-bearing fields support ${VAR} environment interpolation so
// secrets stay out of the file.
type Config struct {
	LogLevel     string        `yaml:"log_level"`
	Budget       int           `yaml:"budget"`
	RegistryPath string        `yaml:"registry_path"`
	Store        StoreConfig   `yaml:"store"`
	NATS         NATSConfig    `yaml:"nats"`
	Redis        RedisConfig   `yaml:"redis"`
	HTTP         HTTPConfig    `yaml:"http"`
	Notify       NotifyConfig  `yaml:"notify"`
	History      HistoryConfig `yaml:"history"`
	Invoker      InvokerConfig `yaml:"invoker"`
}

// InvokerConfig defines the command the job service runs per producer
// invocation. Stage jobs are disabled when no command is configured.
type InvokerConfig struct {
	Command string `yaml:"command"`
	Dir     string `yaml:"dir"`
}

// StoreConfig selects the artifact store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "dir", "bolt", "memory"
	Path    string `yaml:"path"`
}

// NATSConfig defines the job service connection.
type NATSConfig struct {
	URL           string `yaml:"url"`
	Subject       string `yaml:"subject"`
	ResultSubject string `yaml:"result_subject"`
	Queue         string `yaml:"queue"`
}

// RedisConfig defines the event stream sink.
type RedisConfig struct {
	Addr   string `yaml:"addr"`
	Stream string `yaml:"stream"`
	MaxLen int64  `yaml:"max_len"`
}

// HTTPConfig defines the inspection server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// NotifyConfig defines halt notification channels.
type NotifyConfig struct {
	GitHub  GitHubConfig  `yaml:"github"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// GitHubConfig holds issue notifier settings.
type GitHubConfig struct {
	Token  string   `yaml:"token"`
	Repo   string   `yaml:"repo"`
	Labels []string `yaml:"labels"`
}

// WebhookConfig holds webhook notifier settings.
type WebhookConfig struct {
	URL            string   `yaml:"url"`
	AllowedDomains []string `yaml:"allowed_domains"`
}

// HistoryConfig defines event history settings.
type HistoryConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Budget:   3,
		Store: StoreConfig{
			Backend: "dir",
			Path:    ".",
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			Subject:       "stagegate.jobs",
			ResultSubject: "stagegate.results",
			Queue:         "stagegate",
		},
		Redis: RedisConfig{
			Stream: "stagegate:events",
			MaxLen: 10000,
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:8470",
		},
		History: HistoryConfig{
			MaxEntries: 10000,
		},
	}
}

// LoadConfig reads and parses a runtime config YAML file. Environment
// variables referenced as ${VAR} are interpolated before parsing.
// Returns default config if the file doesn't exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	interpolated := interpolateEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolateEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func interpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match // Leave unresolved if not set.
	})
}
