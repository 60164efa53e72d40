// Package config provides configuration management for dsla.
//
// Configuration is layered: defaults, then the YAML config file, then
// environment variables. The store DSN has no default; Validate rejects a
// config missing it and the server refuses to start.
//
// Config file locations (priority order):
//  1. $DSLA_CONFIG
//  2. ./dsla.yaml
//  3. ~/.config/dsla/config.yaml
//  4. /etc/dsla/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dsla/internal/domain"
)

const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Load finds and loads the config file, or returns defaults if none found.
// Environment overrides are applied in both cases.
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		cfg := DefaultConfig()
		cfg.ApplyEnv(os.Getenv)
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.ApplyEnv(os.Getenv)

	return cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns defaults. The store DSN is left empty: it must come
// from the config file or DSLA_STORE_DSN.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			IdleTimeout:     Duration(60 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Store: StoreConfig{
			Driver:     DriverSQLite,
			Collection: "documents",
		},
		Identity: IdentityConfig{Schema: domain.DefaultIdentitySchema.Name},
		Tracing: TracingConfig{
			ServiceName: "dsla",
			Protocol:    "grpc",
			SampleRatio: 1.0,
		},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Version == 0 {
		c.Version = def.Version
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = def.Server.IdleTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if c.Store.Driver == "" {
		c.Store.Driver = def.Store.Driver
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = def.Tracing.ServiceName
	}
	if c.Tracing.Protocol == "" {
		c.Tracing.Protocol = def.Tracing.Protocol
	}
}

// Validate checks that the store can be located and the schema is known
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Driver {
	case DriverSQLite, DriverBadger:
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q must be %s or %s", c.Store.Driver, DriverSQLite, DriverBadger))
	}
	if strings.TrimSpace(c.Store.DSN) == "" {
		problems = append(problems, "store.dsn is required (DSLA_STORE_DSN)")
	}
	if strings.TrimSpace(c.Store.Collection) == "" {
		problems = append(problems, "store.collection is required (DSLA_STORE_COLLECTION)")
	}
	if _, err := domain.LookupIdentitySchema(c.Identity.Schema); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		problems = append(problems, "tracing.sample_ratio must be between 0 and 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// IdentitySchema resolves the configured schema
func (c *Config) IdentitySchema() (domain.IdentitySchema, error) {
	return domain.LookupIdentitySchema(c.Identity.Schema)
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	schema, _ := c.IdentitySchema()
	return fmt.Sprintf("Store: %s %s (collection %s), Identity: v%d %q, Tracing: %v",
		c.Store.Driver, c.Store.DSN, c.Store.Collection, schema.Version, schema.Field, c.Tracing.Enabled)
}
