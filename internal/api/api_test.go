package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk/shoptalk/internal/commerce"
	"github.com/shoptalk/shoptalk/internal/config"
	"github.com/shoptalk/shoptalk/internal/identity"
	"github.com/shoptalk/shoptalk/internal/model"
	"github.com/shoptalk/shoptalk/internal/store"
	"github.com/shoptalk/shoptalk/internal/store/sqlite"
)

// fakeCommerce is a canned-response commerce.API double for handler tests.
type fakeCommerce struct {
	shop     *commerce.Shop
	products []commerce.Product
	orders   map[int64]*commerce.Order
	refund   *commerce.RefundCalculation
	shopErr  error
}

func (f *fakeCommerce) GetShop(ctx context.Context) (*commerce.Shop, error) {
	if f.shopErr != nil {
		return nil, f.shopErr
	}
	return f.shop, nil
}

func (f *fakeCommerce) ListProducts(ctx context.Context, limit int) ([]commerce.Product, error) {
	return f.products, nil
}

func (f *fakeCommerce) SearchProducts(ctx context.Context, title string) ([]commerce.Product, error) {
	return f.products, nil
}

func (f *fakeCommerce) ListOrdersByEmail(ctx context.Context, email string, limit int) ([]commerce.Order, error) {
	var out []commerce.Order
	for _, o := range f.orders {
		if o.Email == email {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeCommerce) GetOrder(ctx context.Context, orderID int64) (*commerce.Order, error) {
	if o, ok := f.orders[orderID]; ok {
		return o, nil
	}
	return nil, errors.New("order not found")
}

func (f *fakeCommerce) CreateDraftOrder(ctx context.Context, draft *commerce.DraftOrder) (*commerce.DraftOrder, error) {
	cp := *draft
	cp.ID = 55
	cp.Status = commerce.DraftOrderOpen
	return &cp, nil
}

func (f *fakeCommerce) GetDraftOrder(ctx context.Context, draftID int64) (*commerce.DraftOrder, error) {
	return nil, errors.New("draft not found")
}

func (f *fakeCommerce) UpdateDraftOrder(ctx context.Context, draft *commerce.DraftOrder) (*commerce.DraftOrder, error) {
	return draft, nil
}

func (f *fakeCommerce) CalculateRefund(ctx context.Context, orderID int64) (*commerce.RefundCalculation, error) {
	if f.refund == nil {
		return nil, errors.New("calculation unavailable")
	}
	return f.refund, nil
}

// fakeProvider answers the code-for-token exchange without a network.
type fakeProvider struct {
	token *identity.Token
	err   error
}

func (p *fakeProvider) ExchangeCode(ctx context.Context, shopDomain, code string) (*identity.Token, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.token, nil
}

type apiFixture struct {
	router   *mux.Router
	store    store.Store
	cfg      *config.Config
	commerce *fakeCommerce
	provider *fakeProvider
	states   *identity.StateRegistry
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)

	cfg := config.NewForTesting()
	cfg.PublicBaseURL = "https://bot.example.com"

	fc := &fakeCommerce{
		shop: &commerce.Shop{
			Name:         "Demo Shop",
			Email:        "owner@demo.com",
			Currency:     "USD",
			IanaTimezone: "America/New_York",
		},
		orders: map[int64]*commerce.Order{},
	}
	fp := &fakeProvider{token: &identity.Token{AccessToken: "shpat_abc", Scope: "read_products"}}
	states := identity.NewStateRegistry(identity.DefaultStateTTL)

	factory := func(shopDomain, accessToken string) commerce.API { return fc }
	router := NewRouterWith(cfg, st, factory, fp, states, zerolog.Nop())

	return &apiFixture{router: router, store: st, cfg: cfg, commerce: fc, provider: fp, states: states}
}

func (fx *apiFixture) createTenant(t *testing.T) *model.Tenant {
	t.Helper()
	tenant, err := fx.store.Tenants().Create(context.Background(), &model.Tenant{
		TenantID:    "t1",
		ShopDomain:  "demo.myshopify.com",
		ShopName:    "Demo Shop",
		AccessToken: "tok",
		Status:      model.TenantStatusActive,
	})
	require.NoError(t, err)
	return tenant
}

func (fx *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	fx.router.ServeHTTP(rr, req)
	return rr
}

func decodeWire(t *testing.T, rr *httptest.ResponseRecorder) model.WireResponse {
	t.Helper()
	var resp model.WireResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestWebhookGreetingReturnsEnvelope(t *testing.T) {
	fx := newAPIFixture(t)
	fx.createTenant(t)

	rr := fx.do(t, http.MethodPost, "/api/tenants/t1/messages", `{"text":"hi","visitor":{"id":"v-1"}}`)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeWire(t, rr)
	assert.Equal(t, model.WireActionReply, resp.Action)
	require.Len(t, resp.Replies, 1)
	assert.Contains(t, resp.Replies[0], "Hi there")
}

func TestWebhookUnknownTenantStillHTTP200(t *testing.T) {
	fx := newAPIFixture(t)

	rr := fx.do(t, http.MethodPost, "/api/tenants/nope/messages", `{"text":"hi"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeWire(t, rr)
	require.Len(t, resp.Replies, 1)
	assert.Contains(t, resp.Replies[0], "isn't connected yet")
}

func TestWebhookGarbageBodyStillHTTP200(t *testing.T) {
	fx := newAPIFixture(t)
	fx.createTenant(t)

	rr := fx.do(t, http.MethodPost, "/api/tenants/t1/messages", `this is not json`)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeWire(t, rr)
	require.Len(t, resp.Replies, 1)
	assert.Contains(t, resp.Replies[0], "couldn't understand")
	assert.Equal(t, []string{"Browse Deals", "Track Order", "Help"}, resp.Suggestions)
}

func TestWebhookNeedsInfoEnvelope(t *testing.T) {
	fx := newAPIFixture(t)
	fx.createTenant(t)

	rr := fx.do(t, http.MethodPost, "/api/tenants/t1/messages", `{"text":"where is my order","visitor":{"id":"v-2"}}`)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeWire(t, rr)
	assert.Equal(t, model.WireActionContext, resp.Action)
	assert.Equal(t, "email", resp.ContextID)
	require.Len(t, resp.Questions, 1)
	require.NotNil(t, resp.Questions[0].Input)
	assert.Equal(t, "email", resp.Questions[0].Input.Validate)
}

func TestGetTenantSanitized(t *testing.T) {
	fx := newAPIFixture(t)
	fx.createTenant(t)

	rr := fx.do(t, http.MethodGet, "/api/tenants/t1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "demo.myshopify.com", body["shopDomain"])
	assert.NotContains(t, body, "accessToken")
}

func TestGetTenantNotFound(t *testing.T) {
	fx := newAPIFixture(t)

	rr := fx.do(t, http.MethodGet, "/api/tenants/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuthStart(t *testing.T) {
	fx := newAPIFixture(t)

	rr := fx.do(t, http.MethodGet, "/auth/start?shop=demo.myshopify.com", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body["authUrl"], "https://demo.myshopify.com/admin/oauth/authorize")
	assert.Contains(t, body["authUrl"], "redirect_uri=https%3A%2F%2Fbot.example.com%2Fauth%2Fcallback")
	require.NotEmpty(t, body["state"])

	// The issued state is consumable exactly once for that shop.
	shop, ok := fx.states.Consume(body["state"])
	require.True(t, ok)
	assert.Equal(t, "demo.myshopify.com", shop)
}

func TestAuthStartMissingShop(t *testing.T) {
	fx := newAPIFixture(t)
	rr := fx.do(t, http.MethodGet, "/auth/start", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuthEndpointsRefuseWhenUnconfigured(t *testing.T) {
	fx := newAPIFixture(t)
	fx.cfg.OAuthClientID = ""
	fx.cfg.OAuthClientSecret = ""

	rr := fx.do(t, http.MethodGet, "/auth/start?shop=demo.myshopify.com", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = fx.do(t, http.MethodGet, "/auth/callback?code=c&shop=s&state=x", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAuthCallbackConnectsTenant(t *testing.T) {
	fx := newAPIFixture(t)
	state := fx.states.Issue("demo.myshopify.com")

	rr := fx.do(t, http.MethodGet, "/auth/callback?code=code-1&shop=demo.myshopify.com&state="+state, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "Demo Shop is connected")
	assert.Contains(t, rr.Body.String(), "/api/tenants/")

	tenant, err := fx.store.Tenants().GetByDomain(context.Background(), "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "shpat_abc", tenant.AccessToken)
	assert.Equal(t, "Demo Shop", tenant.ShopName)
	assert.Equal(t, "USD", tenant.Currency)
}

func TestAuthCallbackInvalidState(t *testing.T) {
	fx := newAPIFixture(t)

	rr := fx.do(t, http.MethodGet, "/auth/callback?code=c&shop=demo.myshopify.com&state=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// A state bound to another shop is just as invalid.
	state := fx.states.Issue("other.myshopify.com")
	rr = fx.do(t, http.MethodGet, "/auth/callback?code=c&shop=demo.myshopify.com&state="+state, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuthCallbackExchangeFailure(t *testing.T) {
	fx := newAPIFixture(t)
	fx.provider.err = errors.New("exchange refused")
	state := fx.states.Issue("demo.myshopify.com")

	rr := fx.do(t, http.MethodGet, "/auth/callback?code=c&shop=demo.myshopify.com&state="+state, "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestAuthCallbackSurvivesMetadataFailure(t *testing.T) {
	fx := newAPIFixture(t)
	fx.commerce.shopErr = errors.New("shop endpoint down")
	state := fx.states.Issue("demo.myshopify.com")

	rr := fx.do(t, http.MethodGet, "/auth/callback?code=c&shop=demo.myshopify.com&state="+state, "")
	require.Equal(t, http.StatusOK, rr.Code)

	// The connect went through with the bare domain as the display name.
	assert.Contains(t, rr.Body.String(), "demo.myshopify.com is connected")
}

func TestHealth(t *testing.T) {
	fx := newAPIFixture(t)
	fx.createTenant(t)

	rr := fx.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(1), body["tenants"])
	assert.Equal(t, float64(0), body["activeSessions"])
}

func TestStorageHealth(t *testing.T) {
	fx := newAPIFixture(t)

	rr := fx.do(t, http.MethodGet, "/api/health/db", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRefundEstimate(t *testing.T) {
	fx := newAPIFixture(t)
	fx.createTenant(t)
	fx.commerce.orders[9001] = &commerce.Order{
		ID:              9001,
		Name:            "#1001",
		FinancialStatus: "paid",
	}
	fx.commerce.refund = &commerce.RefundCalculation{
		Currency: "USD",
		Transactions: []commerce.RefundTransaction{
			{Amount: "30.00", Kind: "suggested_refund"},
			{Amount: "12.50", Kind: "suggested_refund"},
		},
	}

	rr := fx.do(t, http.MethodPost, "/api/tenants/t1/orders/9001/refund-estimate", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "#1001", body["orderName"])
	assert.Equal(t, "USD", body["currency"])
	assert.Equal(t, "42.50", body["refundableAmount"])
}

func TestRefundEstimateRejections(t *testing.T) {
	fx := newAPIFixture(t)
	fx.createTenant(t)

	cancelled := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	fx.commerce.orders[9001] = &commerce.Order{ID: 9001, FinancialStatus: "paid", CancelledAt: &cancelled}
	fx.commerce.orders[9002] = &commerce.Order{ID: 9002, FinancialStatus: "pending"}
	fx.commerce.orders[9003] = &commerce.Order{ID: 9003, FinancialStatus: "refunded"}

	rr := fx.do(t, http.MethodPost, "/api/tenants/t1/orders/9001/refund-estimate", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = fx.do(t, http.MethodPost, "/api/tenants/t1/orders/9002/refund-estimate", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = fx.do(t, http.MethodPost, "/api/tenants/t1/orders/9003/refund-estimate", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	// Route only matches numeric order ids.
	rr = fx.do(t, http.MethodPost, "/api/tenants/t1/orders/abc/refund-estimate", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = fx.do(t, http.MethodPost, "/api/tenants/nope/orders/9001/refund-estimate", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// Upstream failure surfaces as a gateway error.
	rr = fx.do(t, http.MethodPost, "/api/tenants/t1/orders/9999/refund-estimate", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
