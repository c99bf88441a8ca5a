package handlers

import (
	"net/http"
	"time"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
	"eaglechat-server/internal/providers"
	"eaglechat-server/internal/storage"
)

// defaultHistoryLimit bounds how much stored history is replayed into the
// provider context when the request carries none.
const defaultHistoryLimit = 20

type aiConfig struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type chatRequest struct {
	TenantID  string   `json:"tenant_id"`
	APIKey    string   `json:"api_key"`
	SessionID string   `json:"session_id"`
	Message   string   `json:"message"`
	AIConfig  aiConfig `json:"ai_config"`

	// Optional history snapshot from the plugin; when absent the stored
	// transcript is used.
	ConversationHistory []storage.ConversationEntry `json:"conversation_history,omitempty"`
}

type chatResponse struct {
	Response     string `json:"response"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	TotalTokens  int    `json:"total_tokens"`
	ModelUsed    string `json:"model_used"`
	FinishReason string `json:"finish_reason"`
	SessionID    string `json:"session_id"`
}

// Chat forwards a tenant chat message to the configured AI provider. The
// route sits behind the HMAC middleware; credentials are still re-checked
// here so the handler stands on its own.
// @Summary Forward a chat message to the AI provider
// @Tags chat
// @Accept json
// @Produce json
// @Param request body chatRequest true "Chat request"
// @Success 200 {object} chatResponse
// @Router /api/v1/chat [post]
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Message == "" {
		h.writeError(w, errors.ValidationError("message is required"))
		return
	}
	if req.AIConfig.Model == "" {
		h.writeError(w, errors.ValidationError("ai_config.model is required"))
		return
	}
	if err := h.requireTenant(r, req.TenantID, req.APIKey); err != nil {
		h.writeError(w, err)
		return
	}

	history := req.ConversationHistory
	if history == nil && req.SessionID != "" {
		stored, err := h.store.GetConversation(r.Context(), req.TenantID, req.SessionID, defaultHistoryLimit)
		if err != nil {
			h.writeError(w, err)
			return
		}
		history = stored
	}

	result, err := h.providers.Chat(r.Context(), &providers.ChatRequest{
		TenantID:    req.TenantID,
		Model:       req.AIConfig.Model,
		Message:     req.Message,
		History:     history,
		Temperature: req.AIConfig.Temperature,
		MaxTokens:   req.AIConfig.MaxTokens,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	if req.SessionID != "" {
		now := time.Now().UTC()
		appendErr := h.store.AppendConversation(r.Context(), req.TenantID, req.SessionID, []storage.ConversationEntry{
			{Role: "user", Content: req.Message, CreatedAt: now},
			{Role: "assistant", Content: result.Content, CreatedAt: now},
		})
		if appendErr != nil {
			// The reply already cost tokens; losing one transcript entry is
			// not worth failing the request over.
			h.logger.Error("Failed to append conversation", appendErr,
				logging.Field{Key: "tenant_id", Value: req.TenantID},
				logging.Field{Key: "session_id", Value: req.SessionID})
		}
	}

	h.writeJSON(w, http.StatusOK, chatResponse{
		Response:     result.Content,
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		TotalTokens:  result.Usage.TotalTokens,
		ModelUsed:    req.AIConfig.Model,
		FinishReason: result.FinishReason,
		SessionID:    req.SessionID,
	})
}

// Models lists the supported model aliases
// @Summary List supported model aliases
// @Tags chat
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/models [get]
func (h *Handlers) Models(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": providers.ModelAliases(),
	})
}
