package api

import (
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/shoptalk/shoptalk/internal/api/recovery"
	"github.com/shoptalk/shoptalk/internal/bot"
	"github.com/shoptalk/shoptalk/internal/commerce"
	"github.com/shoptalk/shoptalk/internal/config"
	"github.com/shoptalk/shoptalk/internal/identity"
	"github.com/shoptalk/shoptalk/internal/services"
	"github.com/shoptalk/shoptalk/internal/store"
)

// NewRouter wires all HTTP routes on top of the given store.
func NewRouter(cfg *config.Config, st store.Store, log zerolog.Logger) *mux.Router {
	factory := commerce.NewFactory(cfg.CommerceAPIVersion, cfg.RequestTimeout)
	provider := identity.NewProvider(identity.OAuthApp{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		Scopes:       cfg.OAuthScopes,
	}, cfg.RequestTimeout)
	states := identity.NewStateRegistry(identity.DefaultStateTTL)

	return NewRouterWith(cfg, st, factory, provider, states, log)
}

// NewRouterWith is the injection point used by tests to substitute the
// commerce factory and identity provider.
func NewRouterWith(cfg *config.Config, st store.Store, factory commerce.Factory, provider identity.Provider, states *identity.StateRegistry, log zerolog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	// Domain services
	tenants := services.NewTenantService(st, cfg.PublicBaseURL, log)
	convos := services.NewConversationService(st, log)

	// Bot pipeline
	dispatcher := bot.NewDispatcher(
		tenants,
		convos,
		bot.NewClassifier(),
		bot.NewExecutor(factory, bot.NewLevenshteinMatcher(), log),
		log,
	)

	// Handlers
	webhookHandler := NewWebhookHandler(dispatcher)
	tenantHandler := NewTenantHandler(tenants)
	authHandler := NewAuthHandler(cfg, provider, states, tenants, factory, log)
	healthHandler := NewHealthHandler(st, tenants, convos)
	refundHandler := NewRefundHandler(tenants, factory, log)

	// Webhook
	router.HandleFunc("/api/tenants/{tenantId}/messages", webhookHandler.HandleMessage).Methods("POST")

	// Tenant metadata
	router.HandleFunc("/api/tenants/{tenantId}", tenantHandler.GetTenant).Methods("GET")

	// Legacy refund estimate
	router.HandleFunc("/api/tenants/{tenantId}/orders/{orderId:[0-9]+}/refund-estimate", refundHandler.EstimateRefund).Methods("POST")

	// OAuth connect flow
	router.HandleFunc("/auth/start", authHandler.Start).Methods("GET")
	router.HandleFunc("/auth/callback", authHandler.Callback).Methods("GET")

	// Health
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.HandleFunc("/api/health/db", healthHandler.CheckStorageHealth).Methods("GET")

	return router
}
