package storage

import (
	"fmt"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/config"
)

// NewStore creates a storage backend based on configuration
func NewStore(cfg *config.Config) (Store, error) {
	var storeType string
	var storeConfig StoreConfig

	switch cfg.DatabaseType {
	case "sqlite":
		storeType = "sqlite"
		storeConfig = GenericConfig{
			"path": cfg.DatabasePath,
		}

	case "postgres", "postgresql":
		storeType = "postgres"
		storeConfig = GenericConfig{
			"host":     cfg.PostgresHost,
			"port":     cfg.PostgresPort,
			"database": cfg.PostgresDB,
			"username": cfg.PostgresUser,
			"password": cfg.PostgresPassword,
			"sslmode":  cfg.PostgresSSLMode,
		}

	case "memory":
		return NewMemoryStore(), nil

	default:
		return nil, errors.ConfigError(fmt.Sprintf("unsupported database type: %s", cfg.DatabaseType))
	}

	return Create(storeType, storeConfig)
}
