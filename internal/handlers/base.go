// Package handlers implements the EagleChat HTTP API: tenant registration
// and validation, provider key management, the HMAC secret lifecycle, chat
// forwarding, conversation history, health, and the admin surface.
package handlers

import (
	"encoding/json"
	"net/http"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
	"eaglechat-server/internal/config"
	"eaglechat-server/internal/locks"
	"eaglechat-server/internal/providers"
	"eaglechat-server/internal/redis"
	"eaglechat-server/internal/storage"
	"eaglechat-server/internal/vault"
	"eaglechat-server/internal/wordpress"
)

type Handlers struct {
	store     storage.Store
	vault     *vault.Vault
	providers *providers.Service
	wordpress *wordpress.Client
	redis     *redis.Client
	locks     locks.Manager
	config    *config.Config
	logger    logging.Logger
}

// New wires the handler set. redisClient and lockManager may be nil when
// redis is not configured; secret rotation then relies on single-instance
// deployment for exclusion.
func New(store storage.Store, v *vault.Vault, providerSvc *providers.Service, wp *wordpress.Client, redisClient *redis.Client, lockManager locks.Manager, cfg *config.Config, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		store:     store,
		vault:     v,
		providers: providerSvc,
		wordpress: wp,
		redis:     redisClient,
		locks:     lockManager,
		config:    cfg,
		logger:    logger,
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", err)
	}
}

// writeError maps the error taxonomy onto an HTTP status. Internal detail
// stays in the logs; clients get the error message only.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	message := "Internal server error"
	if appErr, ok := err.(*errors.AppError); ok && status < http.StatusInternalServerError {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", err)
	}
	h.writeJSON(w, status, map[string]interface{}{"error": message})
}

func (h *Handlers) decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.ValidationError("invalid JSON request body")
	}
	return nil
}

// requireTenant validates the tenant id + API key pair every tenant-scoped
// endpoint carries.
func (h *Handlers) requireTenant(r *http.Request, tenantID, apiKey string) error {
	if tenantID == "" || apiKey == "" {
		return errors.ValidationError("tenant_id and api_key are required")
	}
	valid, err := h.store.ValidateTenant(r.Context(), tenantID, apiKey)
	if err != nil {
		return err
	}
	if !valid {
		return errors.AuthError("Invalid tenant credentials")
	}
	return nil
}
