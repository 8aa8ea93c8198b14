package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort           = 6971
	DefaultHost           = "127.0.0.1"
	DefaultConfigFilename = "config.json"
	DefaultYAMLFilename   = "config.yaml"

	DefaultRetryMax     = 2
	DefaultRetryDelayMS = 150

	DefaultSystemPromptFormat = "merge"
)

// ValidSystemPromptFormats are the accepted values for SystemPrompt.Format.
var ValidSystemPromptFormats = []string{"merge", "assistant_acknowledgment", "simple_prepend"}

type SystemPromptConfig struct {
	Default string `json:"default,omitempty" yaml:"default,omitempty"`
	Format  string `json:"format,omitempty" yaml:"format,omitempty"`
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// IsEnabled treats an absent value as enabled.
func (s SystemPromptConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type RetryConfig struct {
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	DelayMS    int `json:"delay_ms,omitempty" yaml:"delay_ms,omitempty"`
}

type DiscoveryConfig struct {
	EnableProbes bool `json:"enable_probes,omitempty" yaml:"enable_probes,omitempty"`
}

type ToolProviderConfig struct {
	CatalogPath string `json:"catalog_path,omitempty" yaml:"catalog_path,omitempty"`
}

type Config struct {
	Host          string             `json:"host,omitempty" yaml:"host,omitempty"`
	Port          int                `json:"port,omitempty" yaml:"port,omitempty"`
	OllamaBaseURL string             `json:"ollama_base_url,omitempty" yaml:"ollama_base_url,omitempty"`
	DefaultModel  string             `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	FallbackModel string             `json:"fallback_model,omitempty" yaml:"fallback_model,omitempty"`
	SystemPrompt  SystemPromptConfig `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	Retry         RetryConfig        `json:"retry,omitempty" yaml:"retry,omitempty"`
	Discovery     DiscoveryConfig    `json:"discovery,omitempty" yaml:"discovery,omitempty"`
	ToolProvider  ToolProviderConfig `json:"tool_provider,omitempty" yaml:"tool_provider,omitempty"`
}

type Manager struct {
	baseDir     string
	configValue atomic.Value
	logger      *slog.Logger
}

func NewManager(baseDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Load reads config.json or config.yaml from the base directory, JSON
// taking precedence when both exist. Invalid field values are replaced
// with safe defaults and logged rather than returned as errors.
func (m *Manager) Load() (*Config, error) {
	var cfg Config

	jsonPath := filepath.Join(m.baseDir, DefaultConfigFilename)
	yamlPath := filepath.Join(m.baseDir, DefaultYAMLFilename)

	switch {
	case fileExists(jsonPath):
		data, err := os.ReadFile(jsonPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	case fileExists(yamlPath):
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	default:
		return nil, fmt.Errorf("no config file found in %s", m.baseDir)
	}

	m.applyDefaults(&cfg)
	m.configValue.Store(&cfg)

	return &cfg, nil
}

func (m *Manager) Get() *Config {
	if v := m.configValue.Load(); v != nil {
		return v.(*Config)
	}

	cfg, err := m.Load()
	if err != nil {
		cfg = &Config{}
		m.applyDefaults(cfg)
		m.configValue.Store(cfg)
	}

	return cfg
}

func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.baseDir, DefaultConfigFilename), data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	m.applyDefaults(cfg)
	m.configValue.Store(cfg)

	return nil
}

func (m *Manager) GetPath() string {
	return filepath.Join(m.baseDir, DefaultConfigFilename)
}

func (m *Manager) Exists() bool {
	return fileExists(filepath.Join(m.baseDir, DefaultConfigFilename)) ||
		fileExists(filepath.Join(m.baseDir, DefaultYAMLFilename))
}

func (m *Manager) applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}

	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = DefaultRetryMax
	}

	if cfg.Retry.DelayMS == 0 {
		cfg.Retry.DelayMS = DefaultRetryDelayMS
	}

	if cfg.SystemPrompt.Format == "" {
		cfg.SystemPrompt.Format = DefaultSystemPromptFormat
	} else if !validFormat(cfg.SystemPrompt.Format) {
		m.logger.Warn("Invalid system prompt format, using default",
			"format", cfg.SystemPrompt.Format,
			"default", DefaultSystemPromptFormat,
		)

		cfg.SystemPrompt.Format = DefaultSystemPromptFormat
	}
}

func validFormat(format string) bool {
	for _, f := range ValidSystemPromptFormats {
		if f == format {
			return true
		}
	}

	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
