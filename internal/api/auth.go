package api

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/shoptalk/shoptalk/internal/api/respond"
	"github.com/shoptalk/shoptalk/internal/commerce"
	"github.com/shoptalk/shoptalk/internal/config"
	"github.com/shoptalk/shoptalk/internal/identity"
	"github.com/shoptalk/shoptalk/internal/services"
)

// AuthHandler drives the storefront OAuth connect flow.
type AuthHandler struct {
	cfg      *config.Config
	provider identity.Provider
	states   *identity.StateRegistry
	tenants  *services.TenantService
	commerce commerce.Factory
	log      zerolog.Logger
}

func NewAuthHandler(cfg *config.Config, provider identity.Provider, states *identity.StateRegistry, tenants *services.TenantService, factory commerce.Factory, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		cfg:      cfg,
		provider: provider,
		states:   states,
		tenants:  tenants,
		commerce: factory,
		log:      log.With().Str("component", "auth").Logger(),
	}
}

func (h *AuthHandler) app() identity.OAuthApp {
	return identity.OAuthApp{
		ClientID:     h.cfg.OAuthClientID,
		ClientSecret: h.cfg.OAuthClientSecret,
		Scopes:       h.cfg.OAuthScopes,
	}
}

// Start handles GET /auth/start?shop=<domain>.
func (h *AuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.OAuthConfigured() {
		respond.WriteServiceUnavailable(w, "OAuth app credentials are not configured")
		return
	}
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		respond.WriteBadRequest(w, "shop query parameter is required")
		return
	}

	state := h.states.Issue(shop)
	authURL := identity.AuthorizeURL(shop, h.app(), h.cfg.PublicBaseURL+"/auth/callback", state)

	respond.WriteJSON(w, http.StatusOK, map[string]string{
		"authUrl": authURL,
		"state":   state,
	})
}

// Callback handles GET /auth/callback?code&shop&state: validates the
// single-use state, exchanges the code for a bearer credential, fetches shop
// metadata, connects the tenant and renders the confirmation page.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.OAuthConfigured() {
		respond.WriteServiceUnavailable(w, "OAuth app credentials are not configured")
		return
	}

	q := r.URL.Query()
	code, shop, state := q.Get("code"), q.Get("shop"), q.Get("state")
	if code == "" || shop == "" || state == "" {
		respond.WriteBadRequest(w, "code, shop and state query parameters are required")
		return
	}

	boundShop, ok := h.states.Consume(state)
	if !ok || boundShop != shop {
		respond.WriteBadRequest(w, "invalid or expired state")
		return
	}

	token, err := h.provider.ExchangeCode(r.Context(), shop, code)
	if err != nil {
		h.log.Error().Err(err).Str("shop", shop).Msg("token exchange failed")
		respond.WriteError(w, http.StatusBadGateway, "token exchange with the storefront failed")
		return
	}

	in := services.ConnectInput{ShopDomain: shop, AccessToken: token.AccessToken}
	if info, err := h.commerce(shop, token.AccessToken).GetShop(r.Context()); err != nil {
		// Metadata is cosmetic; the connect proceeds with the bare domain.
		h.log.Warn().Err(err).Str("shop", shop).Msg("shop metadata fetch failed")
	} else {
		in.ShopName = info.Name
		in.Email = info.Email
		in.Currency = info.Currency
		in.Timezone = info.IanaTimezone
	}

	tenant, err := h.tenants.Connect(r.Context(), in)
	if err != nil {
		h.log.Error().Err(err).Str("shop", shop).Msg("tenant connect failed")
		respond.WriteInternalError(w, "failed to store tenant")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = connectedPage.Execute(w, map[string]string{
		"ShopName":   displayName(tenant.ShopName, shop),
		"WebhookURL": h.tenants.WebhookURL(tenant.TenantID),
		"TenantID":   tenant.TenantID,
	})
}

func displayName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

var connectedPage = template.Must(template.New("connected").Parse(`<!DOCTYPE html>
<html>
<head><title>Store connected</title></head>
<body>
  <h1>{{.ShopName}} is connected</h1>
  <p>Point your chat platform's webhook at:</p>
  <pre>{{.WebhookURL}}</pre>
  <p>Tenant ID: <code>{{.TenantID}}</code></p>
</body>
</html>
`))
