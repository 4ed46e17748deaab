// Package config loads the canvas-agent configuration from YAML with
// environment overrides.
package config

import "time"

// Config is the root configuration document.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Document  DocumentConfig  `yaml:"document"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the backend HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProvidersConfig holds external provider settings.
type ProvidersConfig struct {
	Google      GoogleConfig   `yaml:"google"`
	Knowledge   EndpointConfig `yaml:"knowledge"`
	Inspiration EndpointConfig `yaml:"inspiration"`
	HTTPTimeout time.Duration  `yaml:"http_timeout"`
}

// GoogleConfig configures the Gemini generation and analysis models.
//
// APIKey is overridable; when empty the built-in placeholder key is used
// so local development works out of the box. Ship a real key via
// CANVAS_AGENT_GOOGLE_API_KEY in any deployed environment.
type GoogleConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	ImageModel string `yaml:"image_model"`
	TextModel  string `yaml:"text_model"`
}

// EndpointConfig points at a lookup provider.
type EndpointConfig struct {
	BaseURL string `yaml:"base_url"`
}

// DocumentConfig selects the document store backend.
type DocumentConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`
	// Path is the SQLite database path when Backend is "sqlite".
	Path string `yaml:"path"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8787",
			ShutdownTimeout: 10 * time.Second,
		},
		Providers: ProvidersConfig{
			Google: GoogleConfig{
				BaseURL:    "https://generativelanguage.googleapis.com",
				ImageModel: "gemini-2.5-flash-image-preview",
				TextModel:  "gemini-2.0-flash",
			},
			Knowledge:   EndpointConfig{BaseURL: "https://api.duckduckgo.com"},
			Inspiration: EndpointConfig{BaseURL: "https://lexica.art"},
			HTTPTimeout: 30 * time.Second,
		},
		Document: DocumentConfig{Backend: "memory"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
	}
}
