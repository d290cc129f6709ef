package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/shoptalk/shoptalk/internal/api/respond"
	"github.com/shoptalk/shoptalk/internal/commerce"
	"github.com/shoptalk/shoptalk/internal/model"
	"github.com/shoptalk/shoptalk/internal/services"
)

// RefundHandler is the legacy non-interactive refund estimate endpoint. The
// chat flow only collects the return reason; the actual numbers come from
// here.
type RefundHandler struct {
	tenants  *services.TenantService
	commerce commerce.Factory
	log      zerolog.Logger
}

func NewRefundHandler(tenants *services.TenantService, factory commerce.Factory, log zerolog.Logger) *RefundHandler {
	return &RefundHandler{
		tenants:  tenants,
		commerce: factory,
		log:      log.With().Str("component", "refund").Logger(),
	}
}

// EstimateRefund handles POST /api/tenants/{tenantId}/orders/{orderId}/refund-estimate.
// Cancelled and unpaid orders are rejected before any calculation.
func (h *RefundHandler) EstimateRefund(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	tenant, err := h.tenants.Get(r.Context(), vars["tenantId"])
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, "tenant not found")
			return
		}
		respond.WriteInternalError(w, "tenant lookup failed")
		return
	}

	orderID, err := strconv.ParseInt(vars["orderId"], 10, 64)
	if err != nil {
		respond.WriteBadRequest(w, "orderId must be numeric")
		return
	}

	api := h.commerce(tenant.ShopDomain, tenant.AccessToken)
	order, err := api.GetOrder(r.Context(), orderID)
	if err != nil {
		h.log.Warn().Err(err).Int64("order", orderID).Msg("order fetch failed")
		respond.WriteError(w, http.StatusBadGateway, "order lookup failed")
		return
	}

	if order.CancelledAt != nil {
		respond.WriteConflict(w, "order is already cancelled")
		return
	}
	switch order.FinancialStatus {
	case "paid", "partially_refunded":
		// refundable
	case "refunded":
		respond.WriteConflict(w, "order is already refunded")
		return
	default:
		respond.WriteConflict(w, "order is not paid; nothing to refund")
		return
	}

	calc, err := api.CalculateRefund(r.Context(), orderID)
	if err != nil {
		h.log.Warn().Err(err).Int64("order", orderID).Msg("refund calculation failed")
		respond.WriteError(w, http.StatusBadGateway, "refund calculation failed")
		return
	}

	total := 0.0
	for _, tx := range calc.Transactions {
		if amt, err := strconv.ParseFloat(tx.Amount, 64); err == nil {
			total += amt
		}
	}

	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"orderId":          order.ID,
		"orderName":        order.Name,
		"currency":         calc.Currency,
		"refundableAmount": strconv.FormatFloat(total, 'f', 2, 64),
		"transactions":     calc.Transactions,
	})
}
