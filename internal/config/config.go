// Package config provides configuration management for the Amharic
// translator application.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"amharic-translator/internal/logger"
	"amharic-translator/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "amharic-translator-config.json"
	// EnvNLLBBaseURL is the environment variable for the NLLB server URL
	EnvNLLBBaseURL = "NLLB_BASE_URL"
	// EnvOpenAIAPIKey is the environment variable name for OpenAI API key
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	// EnvOpenAIBaseURL is the environment variable name for OpenAI base URL
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"

	// DefaultListenAddr is the default web server bind address
	DefaultListenAddr = ":8080"
	// DefaultBackend is the default translation backend
	DefaultBackend = "nllb"
	// DefaultNLLBBaseURL is the default NLLB inference server URL
	DefaultNLLBBaseURL = "http://localhost:8000"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultOpenAIModel is the default model for the chat backend
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultSourceLanguage and DefaultTargetLanguage are BCP-47 tags
	DefaultSourceLanguage = "en"
	DefaultTargetLanguage = "am"
	// DefaultBatchCharBudget caps characters per model call
	DefaultBatchCharBudget = 4000
	// DefaultMaxRetries bounds translation attempts per batch
	DefaultMaxRetries = 3
	// DefaultRequestTimeoutSec is the per-call backend timeout
	DefaultRequestTimeoutSec = 180
	// DefaultMaxUploadBytes limits uploaded PDF size (50 MB)
	DefaultMaxUploadBytes = 50 * 1024 * 1024
	// DefaultJobTTLMinutes is how long finished jobs are retained
	DefaultJobTTLMinutes = 60
)

// Manager manages application configuration
type Manager struct {
	configPath string
	config     *types.Config
}

// NewManager creates a new Manager with the specified config path.
// If configPath is empty, it uses the default path in the user's home directory.
func NewManager(configPath string) (*Manager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "amharic-translator", DefaultConfigFileName)
	}

	return &Manager{
		configPath: configPath,
		config:     defaultConfig(),
	}, nil
}

// defaultConfig returns a Config with default values
func defaultConfig() *types.Config {
	return &types.Config{
		ListenAddr:        DefaultListenAddr,
		Backend:           DefaultBackend,
		SourceLanguage:    DefaultSourceLanguage,
		TargetLanguage:    DefaultTargetLanguage,
		NLLBBaseURL:       DefaultNLLBBaseURL,
		OpenAIBaseURL:     DefaultOpenAIBaseURL,
		OpenAIModel:       DefaultOpenAIModel,
		BatchCharBudget:   DefaultBatchCharBudget,
		MaxRetries:        DefaultMaxRetries,
		RequestTimeoutSec: DefaultRequestTimeoutSec,
		MaxUploadBytes:    DefaultMaxUploadBytes,
		JobTTLMinutes:     DefaultJobTTLMinutes,
		LogLevel:          "info",
	}
}

// Load loads configuration from the config file.
// If the file doesn't exist, it uses default values.
// Environment variables take precedence over empty config file values.
func (m *Manager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
			m.config = defaultConfig()
		} else {
			logger.Error("failed to read config file", err, logger.String("path", m.configPath))
			return types.NewAppError(types.ErrConfig, "failed to read config file", err)
		}
	} else {
		config := &types.Config{}
		if err := json.Unmarshal(data, config); err != nil {
			logger.Warn("invalid config file format, using defaults",
				logger.String("path", m.configPath), logger.Err(err))
			m.config = defaultConfig()
		} else {
			m.config = config
		}
	}

	m.applyDefaults()
	m.applyEnv()
	return nil
}

// applyDefaults fills zero-valued fields with defaults.
func (m *Manager) applyDefaults() {
	c := m.config
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.SourceLanguage == "" {
		c.SourceLanguage = DefaultSourceLanguage
	}
	if c.TargetLanguage == "" {
		c.TargetLanguage = DefaultTargetLanguage
	}
	if c.NLLBBaseURL == "" {
		c.NLLBBaseURL = DefaultNLLBBaseURL
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = DefaultOpenAIBaseURL
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = DefaultOpenAIModel
	}
	if c.BatchCharBudget <= 0 {
		c.BatchCharBudget = DefaultBatchCharBudget
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RequestTimeoutSec <= 0 {
		c.RequestTimeoutSec = DefaultRequestTimeoutSec
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.JobTTLMinutes <= 0 {
		c.JobTTLMinutes = DefaultJobTTLMinutes
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// applyEnv lets environment variables override empty file values.
func (m *Manager) applyEnv() {
	if v := os.Getenv(EnvNLLBBaseURL); v != "" {
		m.config.NLLBBaseURL = v
	}
	if m.config.OpenAIAPIKey == "" {
		m.config.OpenAIAPIKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if v := os.Getenv(EnvOpenAIBaseURL); v != "" {
		m.config.OpenAIBaseURL = v
	}
}

// Save saves the current configuration to the config file.
func (m *Manager) Save() error {
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved", logger.String("path", m.configPath))
	return nil
}

// Validate checks that the configuration is usable for the selected backend.
func (m *Manager) Validate() error {
	c := m.config
	switch c.Backend {
	case "nllb":
		if c.NLLBBaseURL == "" {
			return types.NewAppError(types.ErrConfig, "nllb backend requires nllb_base_url", nil)
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return types.NewAppError(types.ErrConfig, "openai backend requires an API key", nil)
		}
	default:
		return types.NewAppError(types.ErrConfig, "unknown translation backend: "+c.Backend, nil)
	}
	return nil
}

// GetConfig returns the current configuration.
func (m *Manager) GetConfig() *types.Config {
	if m.config == nil {
		return defaultConfig()
	}
	return m.config
}

// SetConfig sets the entire configuration.
func (m *Manager) SetConfig(config *types.Config) {
	m.config = config
}

// GetConfigPath returns the path to the config file.
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
