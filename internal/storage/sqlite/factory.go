package sqlite

import (
	"fmt"

	"eaglechat-server/internal/storage"
)

// Factory creates SQLite-backed stores
type Factory struct{}

// Create implements storage.StoreFactory
func (f *Factory) Create(config storage.StoreConfig) (storage.Store, error) {
	switch c := config.(type) {
	case *Config:
		return NewAdapter(c)
	case storage.GenericConfig:
		return NewAdapter(&Config{
			DatabasePath: c.GetString("path", "eaglechat.db"),
		})
	default:
		return nil, fmt.Errorf("invalid config type for SQLite storage")
	}
}

func init() {
	storage.Register("sqlite", &Factory{})
}
