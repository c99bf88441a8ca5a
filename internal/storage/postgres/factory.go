package postgres

import (
	"fmt"

	"eaglechat-server/internal/storage"
)

// Factory creates PostgreSQL-backed stores
type Factory struct{}

// Create implements storage.StoreFactory
func (f *Factory) Create(config storage.StoreConfig) (storage.Store, error) {
	switch c := config.(type) {
	case *Config:
		return NewAdapter(c)
	case storage.GenericConfig:
		return NewAdapter(&Config{
			Host:     c.GetString("host", "localhost"),
			Port:     c.GetInt("port", 5432),
			Database: c.GetString("database", "eaglechat"),
			Username: c.GetString("username", "eaglechat"),
			Password: c.GetString("password", ""),
			SSLMode:  c.GetString("sslmode", "disable"),
		})
	default:
		return nil, fmt.Errorf("invalid config type for PostgreSQL storage")
	}
}

func init() {
	storage.Register("postgres", &Factory{})
}
