package handlers

import (
	"net/http"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
	"eaglechat-server/internal/providers"
	"eaglechat-server/internal/vault"
)

type keyConfigRequest struct {
	TenantID        string `json:"tenant_id"`
	APIKey          string `json:"api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key"`
	OpenAIAPIKey    string `json:"openai_api_key"`
}

type keyValidationResult struct {
	Valid  bool   `json:"valid"`
	Stored bool   `json:"stored"`
	Error  string `json:"error,omitempty"`
}

// ConfigureKeys validates and stores provider API keys for a tenant. Keys
// are live-checked against the provider before they touch the vault; only
// keys that validate are stored.
// @Summary Configure provider API keys
// @Tags keys
// @Accept json
// @Produce json
// @Param request body keyConfigRequest true "Key configuration request"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/configure-keys [post]
func (h *Handlers) ConfigureKeys(w http.ResponseWriter, r *http.Request) {
	var req keyConfigRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.requireTenant(r, req.TenantID, req.APIKey); err != nil {
		h.writeError(w, err)
		return
	}

	candidates := map[string]string{}
	if req.AnthropicAPIKey != "" {
		candidates[providers.ProviderAnthropic] = req.AnthropicAPIKey
	}
	if req.OpenAIAPIKey != "" {
		candidates[providers.ProviderOpenAI] = req.OpenAIAPIKey
	}
	if len(candidates) == 0 {
		h.writeError(w, errors.ValidationError("no API keys provided"))
		return
	}

	results := make(map[string]keyValidationResult, len(candidates))
	anyValid := false
	for provider, key := range candidates {
		result := keyValidationResult{}
		if err := h.providers.ValidateKey(r.Context(), provider, key); err != nil {
			result.Error = err.Error()
			h.logger.Warn("Provider key validation failed",
				logging.Field{Key: "tenant_id", Value: req.TenantID},
				logging.Field{Key: "provider", Value: provider})
		} else {
			result.Valid = true
			anyValid = true
		}
		results[provider] = result
	}

	if !anyValid {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":              "API key validation failed",
			"validation_results": results,
		})
		return
	}

	for provider, key := range candidates {
		if !results[provider].Valid {
			continue
		}
		purpose, err := providers.KeyPurpose(provider)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if err := h.vault.StoreSecret(r.Context(), req.TenantID, purpose, key); err != nil {
			h.writeError(w, err)
			return
		}
		result := results[provider]
		result.Stored = true
		results[provider] = result
	}

	h.logger.Info("Provider keys configured",
		logging.Field{Key: "tenant_id", Value: req.TenantID})

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":              true,
		"message":              "API keys processed successfully",
		"anthropic_configured": h.hasKey(r, req.TenantID, vault.PurposeAnthropic),
		"openai_configured":    h.hasKey(r, req.TenantID, vault.PurposeOpenAI),
		"validation_results":   results,
	})
}

type keyVerifyRequest struct {
	TenantID string `json:"tenant_id"`
	APIKey   string `json:"api_key"`
	Provider string `json:"provider"`
}

// VerifyKey re-validates a stored provider key against the provider
// @Summary Verify a stored provider key
// @Tags keys
// @Accept json
// @Produce json
// @Param request body keyVerifyRequest true "Key verification request"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/verify-key [post]
func (h *Handlers) VerifyKey(w http.ResponseWriter, r *http.Request) {
	var req keyVerifyRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.requireTenant(r, req.TenantID, req.APIKey); err != nil {
		h.writeError(w, err)
		return
	}

	purpose, err := providers.KeyPurpose(req.Provider)
	if err != nil {
		h.writeError(w, err)
		return
	}

	secret, err := h.vault.GetSecret(r.Context(), req.TenantID, purpose)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if secret == nil {
		h.writeError(w, errors.NotFoundError("provider key"))
		return
	}

	valid := true
	message := "Key is valid"
	if err := h.providers.ValidateKey(r.Context(), req.Provider, secret.Value); err != nil {
		valid = false
		message = err.Error()
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"provider": req.Provider,
		"valid":    valid,
		"message":  message,
	})
}

type keyStatusRequest struct {
	TenantID string `json:"tenant_id"`
	APIKey   string `json:"api_key"`
}

// KeyStatus reports which providers are configured, with masked keys for
// admin display
// @Summary Get provider key status
// @Tags keys
// @Accept json
// @Produce json
// @Param request body keyStatusRequest true "Key status request"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/get-key-status [post]
func (h *Handlers) KeyStatus(w http.ResponseWriter, r *http.Request) {
	var req keyStatusRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.requireTenant(r, req.TenantID, req.APIKey); err != nil {
		h.writeError(w, err)
		return
	}

	maskedKeys := map[string]string{}
	configured := map[string]bool{}
	for provider, purpose := range map[string]vault.Purpose{
		providers.ProviderAnthropic: vault.PurposeAnthropic,
		providers.ProviderOpenAI:    vault.PurposeOpenAI,
	} {
		secret, err := h.vault.GetSecret(r.Context(), req.TenantID, purpose)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if secret == nil {
			configured[provider] = false
			continue
		}
		configured[provider] = true
		maskedKeys[provider] = providers.MaskKey(secret.Value)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":              true,
		"anthropic_configured": configured[providers.ProviderAnthropic],
		"openai_configured":    configured[providers.ProviderOpenAI],
		"masked_keys":          maskedKeys,
	})
}

type keyRemoveRequest struct {
	TenantID string `json:"tenant_id"`
	APIKey   string `json:"api_key"`
	Provider string `json:"provider"`
}

// RemoveKey deletes a stored provider key
// @Summary Remove a provider key
// @Tags keys
// @Accept json
// @Produce json
// @Param request body keyRemoveRequest true "Key removal request"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/remove-key [post]
func (h *Handlers) RemoveKey(w http.ResponseWriter, r *http.Request) {
	var req keyRemoveRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.requireTenant(r, req.TenantID, req.APIKey); err != nil {
		h.writeError(w, err)
		return
	}

	purpose, err := providers.KeyPurpose(req.Provider)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.vault.DeleteSecret(r.Context(), req.TenantID, purpose); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Provider key removed",
		logging.Field{Key: "tenant_id", Value: req.TenantID},
		logging.Field{Key: "provider", Value: req.Provider})

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Key removed",
	})
}

func (h *Handlers) hasKey(r *http.Request, tenantID string, purpose vault.Purpose) bool {
	has, err := h.vault.HasSecret(r.Context(), tenantID, purpose)
	if err != nil {
		return false
	}
	return has
}
