package handlers

import (
	"net/http"
	"time"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/storage"
)

type historyRequest struct {
	TenantID  string `json:"tenant_id"`
	APIKey    string `json:"api_key"`
	SessionID string `json:"session_id"`
	Limit     int    `json:"limit,omitempty"`

	// Entries, when present, are appended to the stored transcript.
	Entries []storage.ConversationEntry `json:"entries,omitempty"`
}

// ConversationHistory stores or retrieves a session transcript. With
// entries in the request it appends them; without, it returns the stored
// transcript in chronological order.
// @Summary Store or fetch conversation history
// @Tags chat
// @Accept json
// @Produce json
// @Param request body historyRequest true "History request"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/conversation-history [post]
func (h *Handlers) ConversationHistory(w http.ResponseWriter, r *http.Request) {
	var req historyRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.SessionID == "" {
		h.writeError(w, errors.ValidationError("session_id is required"))
		return
	}
	if err := h.requireTenant(r, req.TenantID, req.APIKey); err != nil {
		h.writeError(w, err)
		return
	}

	if len(req.Entries) > 0 {
		now := time.Now().UTC()
		for i := range req.Entries {
			if req.Entries[i].CreatedAt.IsZero() {
				req.Entries[i].CreatedAt = now
			}
		}
		if err := h.store.AppendConversation(r.Context(), req.TenantID, req.SessionID, req.Entries); err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"appended": len(req.Entries),
		})
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	entries, err := h.store.GetConversation(r.Context(), req.TenantID, req.SessionID, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"entries": entries,
	})
}
