package app

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"eaglechat-server/internal/handlers"
	"eaglechat-server/internal/middleware"
	"eaglechat-server/internal/server"
)

// RunServer starts the HTTP server with all handlers configured
func (app *App) RunServer() (*server.Server, http.Handler) {
	// Initialize handlers
	h := handlers.New(
		app.Store,
		app.Vault,
		app.Providers,
		app.WordPress,
		app.RedisClient,
		app.Locks,
		app.Config,
		app.Logger,
	)

	hmacAuth := middleware.NewHMACAuth(
		app.Vault,
		app.Validator,
		app.ClockGuard,
		app.Config.SiteHashEnforced,
		app.Logger,
	)

	// Set up routes
	router := mux.NewRouter()
	rateLimiter := app.InitializeRateLimiter()
	SetupRoutes(router, h, hmacAuth.Handler, app.Auth.RequireAdmin, rateLimiter)

	// Create server
	srv := server.New(router, app.Config.Port, "", "")

	return srv, router
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown(ctx context.Context) error {
	close(app.shutdownCh)
	return nil
}
