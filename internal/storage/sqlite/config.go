package sqlite

import "fmt"

// Config holds SQLite backend configuration
type Config struct {
	DatabasePath string
}

// Validate implements storage.StoreConfig
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}
