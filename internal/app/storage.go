package app

import (
	"fmt"

	"eaglechat-server/internal/common/logging"
	"eaglechat-server/internal/storage"

	// Register the storage backends with the factory registry.
	_ "eaglechat-server/internal/storage/postgres"
	_ "eaglechat-server/internal/storage/sqlite"
)

func (app *App) initializeStorage() error {
	switch app.Config.DatabaseType {
	case "postgres", "postgresql":
		app.Logger.Info("Database: PostgreSQL",
			logging.Field{"host", app.Config.PostgresHost},
			logging.Field{"port", app.Config.PostgresPort},
			logging.Field{"database", app.Config.PostgresDB},
		)
	case "memory":
		app.Logger.Warn("Database: in-memory store, all data is lost on restart")
	default:
		app.Logger.Info("Database: SQLite", logging.Field{"path", app.Config.DatabasePath})
	}

	store, err := storage.NewStore(app.Config)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.Store = store
	return nil
}
