package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shoptalk/shoptalk/internal/api/respond"
	"github.com/shoptalk/shoptalk/internal/services"
	"github.com/shoptalk/shoptalk/internal/store"
)

// HealthHandler reports service liveness plus simple tenant/session counts.
type HealthHandler struct {
	store   store.Store
	tenants *services.TenantService
	convos  *services.ConversationService
}

func NewHealthHandler(s store.Store, tenants *services.TenantService, convos *services.ConversationService) *HealthHandler {
	return &HealthHandler{store: s, tenants: tenants, convos: convos}
}

// CheckHealth handles GET /api/health. Always 200; the counts are debug
// conveniences, not part of the webhook contract.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if n, err := h.tenants.Count(r.Context()); err == nil {
		response["tenants"] = n
	} else {
		log.Warn().Err(err).Msg("tenant count failed")
	}
	if n, err := h.convos.Count(r.Context()); err == nil {
		response["activeSessions"] = n
	} else {
		log.Warn().Err(err).Msg("conversation count failed")
	}
	respond.WriteJSON(w, http.StatusOK, response)
}

// CheckStorageHealth handles GET /api/health/db.
func (h *HealthHandler) CheckStorageHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		log.Error().Err(err).Msg("storage health check failed")
		respond.WriteError(w, http.StatusServiceUnavailable, "storage unreachable")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
