package app

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"eaglechat-server/internal/handlers"
	"eaglechat-server/internal/middleware"
	"eaglechat-server/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes for the application. The HMAC
// middleware is applied router-wide; it decides per path whether a request
// needs a signature.
func SetupRoutes(router *mux.Router, h *handlers.Handlers, hmacAuth func(http.Handler) http.Handler, adminAuth func(http.Handler) http.Handler, rateLimiter ratelimit.Limiter) {
	// Logging first so every request is accounted for, then rate limiting,
	// then signature verification.
	router.Use(middleware.LoggingMiddleware)
	if rateLimiter != nil {
		router.Use(ratelimit.HTTPMiddleware(rateLimiter, ratelimit.IPBasedKey))
	}
	router.Use(hmacAuth)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Tenant lifecycle
	api.HandleFunc("/register", h.RegisterTenant).Methods("POST")
	api.HandleFunc("/validate", h.ValidateTenant).Methods("POST")

	// Provider key management
	api.HandleFunc("/configure-keys", h.ConfigureKeys).Methods("POST")
	api.HandleFunc("/verify-key", h.VerifyKey).Methods("POST")
	api.HandleFunc("/get-key-status", h.KeyStatus).Methods("POST")
	api.HandleFunc("/remove-key", h.RemoveKey).Methods("POST")

	// HMAC signing secret lifecycle
	api.HandleFunc("/hmac/generate", h.GenerateHMACSecret).Methods("POST")
	api.HandleFunc("/hmac/rotate", h.RotateHMACSecret).Methods("POST")
	api.HandleFunc("/hmac/delete", h.DeleteHMACSecret).Methods("POST")
	api.HandleFunc("/hmac/status", h.HMACStatus).Methods("POST")

	// Chat (signature protected)
	api.HandleFunc("/chat", h.Chat).Methods("POST")
	api.HandleFunc("/conversation-history", h.ConversationHistory).Methods("POST")
	api.HandleFunc("/models", h.Models).Methods("GET")

	// Health check (no auth required)
	api.HandleFunc("/health", h.Health).Methods("GET")

	// Admin surface, JWT protected
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(adminAuth)
	admin.HandleFunc("/reencrypt", h.ReencryptTenants).Methods("POST")
	admin.HandleFunc("/stats", h.AdminStats).Methods("GET")

	// Swagger UI (no auth required)
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
}
