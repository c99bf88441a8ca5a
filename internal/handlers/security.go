package handlers

import (
	"net/http"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
	"eaglechat-server/internal/crypto"
	"eaglechat-server/internal/vault"
)

type hmacRequest struct {
	TenantID string `json:"tenant_id"`
	APIKey   string `json:"api_key"`
	// Domain optionally binds future signed requests to this origin.
	Domain string `json:"domain,omitempty"`
}

// GenerateHMACSecret mints the tenant's request-signing secret. If a domain
// is supplied the tenant is bound to it and a site hash is derived for the
// plugin to echo back on signed requests.
// @Summary Generate a request-signing secret
// @Tags security
// @Accept json
// @Produce json
// @Param request body hmacRequest true "Secret generation request"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/hmac/generate [post]
func (h *Handlers) GenerateHMACSecret(w http.ResponseWriter, r *http.Request) {
	var req hmacRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.requireTenant(r, req.TenantID, req.APIKey); err != nil {
		h.writeError(w, err)
		return
	}

	exists, err := h.vault.HasSecret(r.Context(), req.TenantID, vault.PurposeHMAC)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if exists {
		h.writeError(w, errors.ValidationError("HMAC secret already configured; use rotate"))
		return
	}

	secret, err := h.issueSigningSecret(r, req.TenantID, req.Domain)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("HMAC secret generated",
		logging.Field{Key: "tenant_id", Value: req.TenantID})

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"hmac_secret": secret,
	})
}

// RotateHMACSecret replaces the tenant's signing secret with a fresh one.
// The old secret stops validating immediately.
// @Summary Rotate the request-signing secret
// @Tags security
// @Accept json
// @Produce json
// @Param request body hmacRequest true "Secret rotation request"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/hmac/rotate [post]
func (h *Handlers) RotateHMACSecret(w http.ResponseWriter, r *http.Request) {
	var req hmacRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.requireTenant(r, req.TenantID, req.APIKey); err != nil {
		h.writeError(w, err)
		return
	}

	exists, err := h.vault.HasSecret(r.Context(), req.TenantID, vault.PurposeHMAC)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !exists {
		h.writeError(w, errors.NotFoundError("HMAC secret"))
		return
	}

	secret, err := h.issueSigningSecret(r, req.TenantID, req.Domain)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("HMAC secret rotated",
		logging.Field{Key: "tenant_id", Value: req.TenantID})

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"hmac_secret": secret,
	})
}

// DeleteHMACSecret removes the tenant's signing secret, disabling signed
// endpoints for that tenant
// @Summary Delete the request-signing secret
// @Tags security
// @Accept json
// @Produce json
// @Param request body hmacRequest true "Secret deletion request"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/hmac/delete [post]
func (h *Handlers) DeleteHMACSecret(w http.ResponseWriter, r *http.Request) {
	var req hmacRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.requireTenant(r, req.TenantID, req.APIKey); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.vault.DeleteSecret(r.Context(), req.TenantID, vault.PurposeHMAC); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("HMAC secret deleted",
		logging.Field{Key: "tenant_id", Value: req.TenantID})

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "HMAC secret deleted",
	})
}

// HMACStatus reports whether a signing secret and domain binding are
// configured
// @Summary Get signing secret status
// @Tags security
// @Accept json
// @Produce json
// @Param request body hmacRequest true "Status request"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/hmac/status [post]
func (h *Handlers) HMACStatus(w http.ResponseWriter, r *http.Request) {
	var req hmacRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.requireTenant(r, req.TenantID, req.APIKey); err != nil {
		h.writeError(w, err)
		return
	}

	tenant, err := h.store.GetTenant(r.Context(), req.TenantID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if tenant == nil {
		h.writeError(w, errors.NotFoundError("tenant"))
		return
	}

	configured, err := h.vault.HasSecret(r.Context(), req.TenantID, vault.PurposeHMAC)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"configured": configured,
		"domain":     tenant.Domain,
	})
}

// issueSigningSecret generates, stores, and optionally domain-binds a fresh
// signing secret, returning its plaintext for one-time delivery. With a lock
// manager present, concurrent rotations for the same tenant are serialized
// across instances.
func (h *Handlers) issueSigningSecret(r *http.Request, tenantID, domain string) (string, error) {
	if h.locks != nil {
		lock, err := h.locks.AcquireRotationLock(r.Context(), tenantID)
		if err != nil {
			return "", err
		}
		defer lock.Release(r.Context())
	}

	secret, err := h.vault.RotateSecret(r.Context(), tenantID, vault.PurposeHMAC)
	if err != nil {
		return "", err
	}

	if domain != "" {
		siteHash := crypto.SiteHash(domain, tenantID, secret)
		if err := h.store.UpdateTenantDomain(r.Context(), tenantID, domain, siteHash); err != nil {
			return "", err
		}
		// The vault cache still holds the old binding; force a re-read.
		h.vault.Invalidate(tenantID, vault.PurposeHMAC)
	}

	return secret, nil
}
