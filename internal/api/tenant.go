package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shoptalk/shoptalk/internal/api/respond"
	"github.com/shoptalk/shoptalk/internal/model"
	"github.com/shoptalk/shoptalk/internal/services"
)

// TenantHandler exposes sanitized tenant metadata.
type TenantHandler struct {
	tenants *services.TenantService
}

func NewTenantHandler(t *services.TenantService) *TenantHandler {
	return &TenantHandler{tenants: t}
}

// GetTenant handles GET /api/tenants/{tenantId}. The bearer credential is
// never included in the response.
func (h *TenantHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenantId"]

	tenant, err := h.tenants.Get(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, "tenant not found")
			return
		}
		respond.WriteInternalError(w, "tenant lookup failed")
		return
	}
	respond.WriteJSON(w, http.StatusOK, tenant.Sanitized())
}
