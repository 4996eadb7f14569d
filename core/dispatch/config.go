package dispatch

import "fmt"

// Config holds the engine tunables.
type Config struct {
	// PersistTimeoutSeconds bounds each datastore call so processing never
	// hangs; expired calls fail with a PersistenceError.
	PersistTimeoutSeconds int `json:"persist_timeout_seconds"`
}

// SetDefaults fills in values that may be omitted from the configuration.
func (c *Config) SetDefaults() {
	if c.PersistTimeoutSeconds == 0 {
		c.PersistTimeoutSeconds = 5
	}
}

// Validate rejects nonsensical settings.
func (c Config) Validate() error {
	if c.PersistTimeoutSeconds < 0 {
		return fmt.Errorf("dispatch: persist_timeout_seconds must not be negative")
	}
	return nil
}
