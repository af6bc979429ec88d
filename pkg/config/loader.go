package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// yamlConfig represents the carebridge.yaml file structure.
type yamlConfig struct {
	Workflow WorkflowConfig `yaml:"workflow"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
//
// Steps performed:
//  1. Start from built-in defaults
//  2. Merge carebridge.yaml from configDir when present
//  3. Apply environment variables (credentials, ports, demo flags)
//  4. Validate
func Initialize(configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)

	yc := defaultYAML()
	path := filepath.Join(configDir, "carebridge.yaml")
	if data, err := os.ReadFile(path); err == nil {
		var user yamlConfig
		if err := yaml.Unmarshal(data, &user); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := mergo.Merge(&yc, user, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge configuration: %w", err)
		}
		log.Info("Loaded configuration file", "path", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := &Config{
		configDir: configDir,
		HTTPPort:  getEnv("HTTP_PORT", DefaultHTTPPort),
		Voice: VoiceConfig{
			BaseURL:         getEnv("VOICE_BASE_URL", DefaultVoiceBaseURL),
			APIKey:          os.Getenv("VOICE_API_KEY"),
			PhoneNumberID:   os.Getenv("VOICE_PHONE_NUMBER_ID"),
			AssistantID:     os.Getenv("VOICE_ASSISTANT_ID"),
			DemoMode:        getEnvBool("DEMO_MODE", true),
			DemoPhoneNumber: os.Getenv("DEMO_PHONE_NUMBER"),
			MaxCallDuration: yc.Workflow.CallTimeout,
			PollInterval:    DefaultPollInterval,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Routing: RoutingConfig{
			BaseURL:        getEnv("ROUTING_BASE_URL", DefaultRoutingBaseURL),
			Token:          os.Getenv("ROUTING_TOKEN"),
			RequestTimeout: DefaultRequestTimeout,
		},
		DocExt: DocExtConfig{
			BaseURL:        os.Getenv("DOCEXT_BASE_URL"),
			APIKey:         os.Getenv("DOCEXT_API_KEY"),
			RequestTimeout: DefaultRequestTimeout,
		},
		Proxy: ProxyConfig{
			URL: os.Getenv("PROXY_URL"),
		},
		Workflow: yc.Workflow,
		Scrape:   yc.Scrape,
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized",
		"demo_mode", cfg.Voice.DemoMode,
		"voice_enabled", cfg.Voice.Enabled(),
		"routing_enabled", cfg.Routing.Enabled(),
		"docext_enabled", cfg.DocExt.Enabled())
	return cfg, nil
}

// validate rejects configurations the engine cannot run with. Missing
// credentials for optional features are not fatal; the feature degrades.
func (c *Config) validate() error {
	if c.Workflow.ShelterRetry < 1 {
		return fmt.Errorf("workflow.shelter_retry must be >= 1, got %d", c.Workflow.ShelterRetry)
	}
	if c.Workflow.CallTimeout <= 0 {
		return fmt.Errorf("workflow.call_timeout must be positive, got %s", c.Workflow.CallTimeout)
	}
	if c.Scrape.FetchTimeout <= 0 {
		return fmt.Errorf("scrape.fetch_timeout must be positive, got %s", c.Scrape.FetchTimeout)
	}
	if c.Voice.DemoMode && c.Voice.Enabled() && c.Voice.DemoPhoneNumber == "" {
		return fmt.Errorf("DEMO_PHONE_NUMBER is required when demo mode is on and voice is configured")
	}
	for cat, cc := range c.Scrape.Categories {
		if cc.TTL < 0 {
			return fmt.Errorf("scrape ttl for %s must not be negative", cat)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("Invalid boolean environment value, using default",
			"key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return parsed
}
