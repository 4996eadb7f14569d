package config

// APIConfig controls the HTTP status API.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
	// Token guards the API with bearer authentication when non-empty.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
}
