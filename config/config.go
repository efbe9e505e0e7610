// Package config provides configuration loading and management for the
// threadflow engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the complete threadflow configuration
type Config struct {
	Thread  ThreadConfig  `yaml:"thread"`
	Persona PersonaConfig `yaml:"persona"`
	Events  EventsConfig  `yaml:"events"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ThreadConfig configures thread storage and windowing
type ThreadConfig struct {
	// WindowCap bounds the stored message count per thread (0 = unbounded)
	WindowCap int `yaml:"window_cap"`
}

// PersonaConfig configures the default brand-voice persona
type PersonaConfig struct {
	// Text is the persona injected into new threads (empty = no persona)
	Text string `yaml:"text"`
	// File points at a persona file that is hot-reloaded; takes precedence
	// over Text when set
	File string `yaml:"file"`
}

// EventsConfig configures the diagnostic event tap
type EventsConfig struct {
	// NATSURL is the NATS server URL (empty = events disabled)
	NATSURL string `yaml:"nats_url"`
	// SubjectPrefix overrides the default event subject prefix
	SubjectPrefix string `yaml:"subject_prefix"`
}

// MetricsConfig configures Prometheus instrumentation
type MetricsConfig struct {
	// Enabled controls whether engine collectors are registered. A pointer
	// so an explicit "enabled: false" in a config layer is distinguishable
	// from the field being absent and survives Merge.
	Enabled *bool `yaml:"enabled"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Thread: ThreadConfig{
			WindowCap: 20,
		},
		Persona: PersonaConfig{
			Text: "",
			File: "",
		},
		Events: EventsConfig{
			NATSURL:       "",
			SubjectPrefix: "threadflow.events",
		},
		Metrics: MetricsConfig{
			Enabled: boolPtr(true),
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}

// MetricsEnabled reports the effective metrics toggle; an unset field means
// the default (enabled).
func (c *Config) MetricsEnabled() bool {
	if c.Metrics.Enabled == nil {
		return true
	}
	return *c.Metrics.Enabled
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Thread.WindowCap < 0 {
		return fmt.Errorf("thread.window_cap must not be negative")
	}
	if c.Thread.WindowCap == 1 && (c.Persona.Text != "" || c.Persona.File != "") {
		return fmt.Errorf("thread.window_cap of 1 leaves no room for turns alongside a persona")
	}
	if c.Events.SubjectPrefix == "" {
		return fmt.Errorf("events.subject_prefix is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// parseFile reads a YAML file into a zero-value Config for use as a Merge
// layer: only the fields the file actually sets are non-zero, so merging it
// never re-applies defaults over an earlier layer.
func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Thread
	if other.Thread.WindowCap != 0 {
		c.Thread.WindowCap = other.Thread.WindowCap
	}

	// Persona
	if other.Persona.Text != "" {
		c.Persona.Text = other.Persona.Text
	}
	if other.Persona.File != "" {
		c.Persona.File = other.Persona.File
	}

	// Events
	if other.Events.NATSURL != "" {
		c.Events.NATSURL = other.Events.NATSURL
	}
	if other.Events.SubjectPrefix != "" {
		c.Events.SubjectPrefix = other.Events.SubjectPrefix
	}

	// Metrics
	if other.Metrics.Enabled != nil {
		c.Metrics.Enabled = other.Metrics.Enabled
	}
}
