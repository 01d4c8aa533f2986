// Package config provides configuration loading and management for kykd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete kykd configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Templates TemplatesConfig `yaml:"templates"`
	Status    StatusConfig    `yaml:"status"`
	Render    RenderConfig    `yaml:"render"`
	Session   SessionConfig   `yaml:"session"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	// Addr is the listen address (default: ":8080")
	Addr string `yaml:"addr"`
	// MaxConns caps concurrent connections (0 = unlimited)
	MaxConns int `yaml:"max_conns"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the sqlite store
type DatabaseConfig struct {
	// Path is the sqlite database file
	Path string `yaml:"path"`
	// Migrations is the directory holding migration files
	Migrations string `yaml:"migrations"`
}

// TemplatesConfig configures the template engine
type TemplatesConfig struct {
	// Dir is the template root directory
	Dir string `yaml:"dir"`
	// Page is the outer page template wrapped around every view
	Page string `yaml:"page"`
	// Watch enables live template reloading
	Watch bool `yaml:"watch"`
}

// StatusConfig configures the ordered status ladder
type StatusConfig struct {
	// Names replaces the built-in level names, lowest first. Empty keeps
	// the defaults.
	Names []string `yaml:"names"`
}

// RenderConfig configures the render dispatcher
type RenderConfig struct {
	// MaxAttempts bounds reload retries within one request
	MaxAttempts int `yaml:"max_attempts"`
	// Debug surfaces template and wiring errors instead of hiding them
	Debug bool `yaml:"debug"`
	// Styles maps style names to CSS class lists, exposed to templates
	Styles map[string]string `yaml:"styles"`
}

// SessionConfig configures the cookie session store
type SessionConfig struct {
	// CookieName is the session cookie name (default: "kyk_session")
	CookieName string `yaml:"cookie_name"`
	// MaxAge is the session lifetime
	MaxAge time.Duration `yaml:"max_age"`
	// Secure marks the cookie as HTTPS-only
	Secure bool `yaml:"secure"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:       "kyk.db",
			Migrations: "migrations",
		},
		Templates: TemplatesConfig{
			Dir:   "templates",
			Page:  "page.html",
			Watch: false,
		},
		Status: StatusConfig{
			Names: nil, // Built-in ladder
		},
		Render: RenderConfig{
			MaxAttempts: 3,
			Debug:       false,
			Styles:      nil,
		},
		Session: SessionConfig{
			CookieName: "kyk_session",
			MaxAge:     14 * 24 * time.Hour,
			Secure:     false,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Templates.Dir == "" {
		return fmt.Errorf("templates.dir is required")
	}
	if c.Templates.Page == "" {
		return fmt.Errorf("templates.page is required")
	}
	if c.Render.MaxAttempts < 1 {
		return fmt.Errorf("render.max_attempts must be at least 1")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session.cookie_name is required")
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

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.MaxConns != 0 {
		c.Server.MaxConns = other.Server.MaxConns
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}

	// Database
	if other.Database.Path != "" {
		c.Database.Path = other.Database.Path
	}
	if other.Database.Migrations != "" {
		c.Database.Migrations = other.Database.Migrations
	}

	// Templates
	if other.Templates.Dir != "" {
		c.Templates.Dir = other.Templates.Dir
	}
	if other.Templates.Page != "" {
		c.Templates.Page = other.Templates.Page
	}
	if other.Templates.Watch {
		c.Templates.Watch = true
	}

	// Status
	if len(other.Status.Names) > 0 {
		c.Status.Names = other.Status.Names
	}

	// Render
	if other.Render.MaxAttempts != 0 {
		c.Render.MaxAttempts = other.Render.MaxAttempts
	}
	if other.Render.Debug {
		c.Render.Debug = true
	}
	if len(other.Render.Styles) > 0 {
		if c.Render.Styles == nil {
			c.Render.Styles = make(map[string]string, len(other.Render.Styles))
		}
		for k, v := range other.Render.Styles {
			c.Render.Styles[k] = v
		}
	}

	// Session
	if other.Session.CookieName != "" {
		c.Session.CookieName = other.Session.CookieName
	}
	if other.Session.MaxAge != 0 {
		c.Session.MaxAge = other.Session.MaxAge
	}
	if other.Session.Secure {
		c.Session.Secure = true
	}
}
