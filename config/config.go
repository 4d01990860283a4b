// Package config loads the streambridge server configuration from a YAML
// file, layering defaults, file values and environment overrides in that
// order. It also supports hot reload of the file through Watch.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/streambridge"
	"github.com/hupe1980/streambridge/langgraph"
	"github.com/hupe1980/streambridge/logging"
)

// Environment variables recognized by Load. The LangGraph pair matches the
// names the langgraph client reads itself so that a bare client and a
// config-driven server agree on credentials.
const (
	envAPIURL    = "LANGGRAPH_API_URL"
	envAPIKey    = "LANGGRAPH_API_KEY"
	envAddr      = "STREAMBRIDGE_ADDR"
	envJWTSecret = "STREAMBRIDGE_JWT_SECRET"
	envLogLevel  = "STREAMBRIDGE_LOG_LEVEL"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, host:port.
	Addr string `yaml:"addr"`
	// JWTSecret enables bearer-token auth on the API routes when non-empty.
	JWTSecret string `yaml:"jwt_secret"`
}

// LangGraphConfig configures the upstream LangGraph deployment.
type LangGraphConfig struct {
	APIURL  string `yaml:"api_url"`
	APIKey  string `yaml:"api_key"`
	GraphID string `yaml:"graph_id"`
	// AssistantID pins the assistant directly, skipping graph resolution.
	AssistantID string `yaml:"assistant_id"`
	// MaxRetries bounds control-plane request retries. Zero removes the bound.
	MaxRetries uint `yaml:"max_retries"`
}

// ProviderConfig configures the direct model sources (openai, anthropic).
type ProviderConfig struct {
	// Model overrides the source's default model id.
	Model string `yaml:"model"`
	// Node overrides the producer tag attached to emitted events.
	Node string `yaml:"node"`
}

// BridgeConfig configures turn streaming behavior.
type BridgeConfig struct {
	// IncludeNodes selects which producer tags surface as text downstream.
	IncludeNodes []string `yaml:"include_nodes"`
	// MaxConcurrentStreams caps simultaneous turns. Zero means unlimited.
	MaxConcurrentStreams int `yaml:"max_concurrent_streams"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is json or text.
	Format string `yaml:"format"`
}

// Config is the root of the YAML configuration file.
type Config struct {
	// Source selects the upstream backend: langgraph, openai or anthropic.
	Source    string          `yaml:"source"`
	Server    ServerConfig    `yaml:"server"`
	LangGraph LangGraphConfig `yaml:"langgraph"`
	Provider  ProviderConfig  `yaml:"provider"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	return &Config{
		Source: "langgraph",
		Server: ServerConfig{
			Addr: ":8080",
		},
		LangGraph: LangGraphConfig{
			APIURL:     langgraph.DefaultAPIURL,
			GraphID:    langgraph.DefaultGraphID,
			MaxRetries: 3,
		},
		Bridge: BridgeConfig{
			IncludeNodes:         append([]string(nil), streambridge.DefaultIncludeNodes...),
			MaxConcurrentStreams: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// non-empty) and environment overrides, then validates the result. A missing
// explicit file is an error; an empty path skips the file layer entirely.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envAPIURL); v != "" {
		c.LangGraph.APIURL = v
	}
	if v := os.Getenv(envAPIKey); v != "" {
		c.LangGraph.APIKey = v
	}
	if v := os.Getenv(envAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(envJWTSecret); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	switch c.Source {
	case "langgraph", "openai", "anthropic":
	default:
		return fmt.Errorf("source must be langgraph, openai or anthropic, got %q", c.Source)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.LangGraph.APIURL == "" {
		return fmt.Errorf("langgraph.api_url must not be empty")
	}
	if c.Bridge.MaxConcurrentStreams < 0 {
		return fmt.Errorf("bridge.max_concurrent_streams must not be negative")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

// Logger constructs the configured logger. Validate must have passed.
func (c *Config) Logger() logging.Logger {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logging.LogLevelInfo
	}
	lc := logging.DefaultLoggerConfig()
	lc.Level = level
	lc.Format = c.Logging.Format
	return logging.NewLogger(lc)
}
