package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shoptalk/shoptalk/internal/api/respond"
	"github.com/shoptalk/shoptalk/internal/bot"
)

// WebhookHandler receives inbound chat-platform calls. Whatever happens
// inside the turn, the platform gets HTTP 200 with a well-formed envelope.
type WebhookHandler struct {
	dispatcher *bot.Dispatcher
}

func NewWebhookHandler(d *bot.Dispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: d}
}

// HandleMessage handles POST /api/tenants/{tenantId}/messages.
func (h *WebhookHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenantId"]

	// A body that isn't JSON is treated like an empty payload; the
	// dispatcher answers with its "couldn't understand" fallback.
	var payload map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	resp := h.dispatcher.Handle(r.Context(), tenantID, payload)
	respond.WriteJSON(w, http.StatusOK, resp)
}
