package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
	"eaglechat-server/internal/crypto"
	"eaglechat-server/internal/storage"
)

type registrationRequest struct {
	SiteURL       string `json:"site_url"`
	AdminEmail    string `json:"admin_email"`
	CallbackToken string `json:"callback_token"`
}

type registrationResponse struct {
	Success  bool   `json:"success"`
	TenantID string `json:"tenant_id"`
	APIKey   string `json:"api_key"`
	Message  string `json:"message"`
}

// RegisterTenant registers a new WordPress tenant
// @Summary Register a new tenant
// @Description Registers a WordPress site after verifying its callback token, returning the tenant ID and API key
// @Tags tenants
// @Accept json
// @Produce json
// @Param request body registrationRequest true "Registration request"
// @Success 200 {object} registrationResponse
// @Router /api/v1/register [post]
func (h *Handlers) RegisterTenant(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.SiteURL == "" || req.AdminEmail == "" || req.CallbackToken == "" {
		h.writeError(w, errors.ValidationError("site_url, admin_email and callback_token are required"))
		return
	}

	h.logger.Info("Registration request received",
		logging.Field{Key: "site_url", Value: req.SiteURL})

	existing, err := h.store.GetTenantBySiteURL(r.Context(), req.SiteURL)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if existing != nil {
		h.writeError(w, errors.ValidationError("Site URL already registered"))
		return
	}

	existing, err = h.store.GetTenantByEmail(r.Context(), req.AdminEmail)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if existing != nil {
		h.writeError(w, errors.ValidationError("Admin email already associated with another tenant"))
		return
	}

	verified, err := h.wordpress.VerifyCallbackToken(r.Context(), req.SiteURL, req.CallbackToken)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !verified {
		h.writeError(w, errors.ValidationError("Failed to verify callback token with WordPress site"))
		return
	}

	tenantID := uuid.New().String()
	apiKey, err := crypto.GenerateSecret(32)
	if err != nil {
		h.writeError(w, err)
		return
	}

	tenant := &storage.Tenant{
		ID:         tenantID,
		APIKey:     apiKey,
		SiteURL:    req.SiteURL,
		AdminEmail: req.AdminEmail,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.store.CreateTenant(r.Context(), tenant); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Tenant registered",
		logging.Field{Key: "tenant_id", Value: tenantID},
		logging.Field{Key: "site_url", Value: req.SiteURL})

	h.writeJSON(w, http.StatusOK, registrationResponse{
		Success:  true,
		TenantID: tenantID,
		APIKey:   apiKey,
		Message:  "Tenant registered successfully",
	})
}

type validationRequest struct {
	TenantID string `json:"tenant_id"`
	APIKey   string `json:"api_key"`
}

// ValidateTenant checks a tenant id + API key pair
// @Summary Validate tenant credentials
// @Tags tenants
// @Accept json
// @Produce json
// @Param request body validationRequest true "Validation request"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/validate [post]
func (h *Handlers) ValidateTenant(w http.ResponseWriter, r *http.Request) {
	var req validationRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.requireTenant(r, req.TenantID, req.APIKey); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":   true,
		"message": "Credentials are valid",
	})
}
