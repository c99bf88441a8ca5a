package handlers

import (
	"net/http"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
	"eaglechat-server/internal/crypto"
)

type reencryptRequest struct {
	PreviousMasterKey string   `json:"previous_master_key"`
	TenantIDs         []string `json:"tenant_ids"`
}

// ReencryptTenants re-encrypts stored secrets after a master key rotation.
// Secrets are decrypted with the previous key and re-encrypted with the
// currently configured one, tenant by tenant; a tenant that fails is
// reported and skipped without touching its remaining secrets.
// @Summary Re-encrypt tenant secrets under the current master key
// @Tags admin
// @Accept json
// @Produce json
// @Param request body reencryptRequest true "Re-encryption request"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/reencrypt [post]
func (h *Handlers) ReencryptTenants(w http.ResponseWriter, r *http.Request) {
	var req reencryptRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.PreviousMasterKey == "" {
		h.writeError(w, errors.ValidationError("previous_master_key is required"))
		return
	}
	if len(req.TenantIDs) == 0 {
		h.writeError(w, errors.ValidationError("tenant_ids is required"))
		return
	}

	oldEncryptor, err := crypto.NewSecretEncryptor(req.PreviousMasterKey, h.config.VaultSalt)
	if err != nil {
		h.writeError(w, err)
		return
	}

	reencrypted := make([]string, 0, len(req.TenantIDs))
	failed := map[string]string{}
	for _, tenantID := range req.TenantIDs {
		if err := h.reencryptTenant(r, tenantID, oldEncryptor); err != nil {
			h.logger.Error("Tenant re-encryption failed", err,
				logging.Field{Key: "tenant_id", Value: tenantID})
			failed[tenantID] = "re-encryption failed"
			continue
		}
		reencrypted = append(reencrypted, tenantID)
	}

	h.logger.Info("Master key re-encryption completed",
		logging.Field{Key: "reencrypted", Value: len(reencrypted)},
		logging.Field{Key: "failed", Value: len(failed)})

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     len(failed) == 0,
		"reencrypted": reencrypted,
		"failed":      failed,
	})
}

// reencryptTenant re-encrypts one tenant's secrets, holding the distributed
// re-encryption lock when a lock manager is configured.
func (h *Handlers) reencryptTenant(r *http.Request, tenantID string, oldEncryptor *crypto.SecretEncryptor) error {
	if h.locks != nil {
		lock, err := h.locks.AcquireReencryptLock(r.Context(), tenantID)
		if err != nil {
			return err
		}
		defer lock.Release(r.Context())
	}
	return h.vault.ReencryptTenant(r.Context(), tenantID, oldEncryptor)
}

// AdminStats reports vault cache and circuit breaker state
// @Summary Operational statistics
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/stats [get]
func (h *Handlers) AdminStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"vault_cache_size": h.vault.CacheSize(),
		"circuit_breakers": h.providers.BreakerStats(),
	})
}
