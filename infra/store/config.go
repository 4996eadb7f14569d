package store

import (
	"fmt"

	corestore "github.com/acasal/alertd/core/store"
)

// Config selects and parameterizes the datastore backend.
type Config struct {
	// Backend is "sqlite" or "postgres".
	Backend string `json:"backend"`
	// Path is the SQLite database file; ":memory:" is accepted.
	Path string `json:"path"`
	// DSN is the Postgres connection string.
	DSN string `json:"dsn"`
	// SeedFile optionally points at a YAML file of resource reference
	// data loaded on startup.
	SeedFile string `json:"seed_file"`
}

// SetDefaults fills in values that may be omitted from the configuration.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Backend == "sqlite" && c.Path == "" {
		c.Path = "alertd.db"
	}
}

// Validate rejects incomplete backend settings.
func (c Config) Validate() error {
	switch c.Backend {
	case "sqlite":
		if c.Path == "" {
			return fmt.Errorf("store: sqlite backend requires a path")
		}
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("store: postgres backend requires a dsn")
		}
	default:
		return fmt.Errorf("store: unknown backend %q", c.Backend)
	}
	return nil
}

// New opens the configured backend.
func New(cfg Config) (corestore.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "postgres":
		return NewPostgresStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}
