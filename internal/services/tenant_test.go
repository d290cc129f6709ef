package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk/shoptalk/internal/model"
	"github.com/shoptalk/shoptalk/internal/store"
	"github.com/shoptalk/shoptalk/internal/store/sqlite"
)

func newTenantService(t *testing.T) (*TenantService, store.Store) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	return NewTenantService(st, "https://bot.example.com", zerolog.Nop()), st
}

func TestConnectCreatesTenant(t *testing.T) {
	svc, _ := newTenantService(t)

	tenant, err := svc.Connect(context.Background(), ConnectInput{
		ShopDomain:  "demo.myshopify.com",
		ShopName:    "Demo Shop",
		Email:       "owner@demo.com",
		AccessToken: "shpat_abc",
		Currency:    "USD",
		Timezone:    "America/New_York",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tenant.TenantID)
	assert.Equal(t, model.TenantStatusActive, tenant.Status)
	assert.Equal(t, "https://bot.example.com/api/tenants/"+tenant.TenantID+"/messages", tenant.WebhookURL)
	assert.Nil(t, tenant.ReconnectTime)

	got, err := svc.Get(context.Background(), tenant.TenantID)
	require.NoError(t, err)
	assert.Equal(t, "Demo Shop", got.ShopName)
	assert.False(t, got.CreationTime.IsZero())
}

func TestConnectValidation(t *testing.T) {
	svc, _ := newTenantService(t)

	_, err := svc.Connect(context.Background(), ConnectInput{AccessToken: "tok"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.Connect(context.Background(), ConnectInput{ShopDomain: "demo.myshopify.com"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

// A domain seen before keeps its tenant id: reconnecting replaces the
// credential and reactivates the row instead of creating a duplicate.
func TestConnectReconnectsSameDomain(t *testing.T) {
	svc, st := newTenantService(t)
	ctx := context.Background()

	first, err := svc.Connect(ctx, ConnectInput{
		ShopDomain:  "demo.myshopify.com",
		ShopName:    "Demo Shop",
		AccessToken: "shpat_old",
	})
	require.NoError(t, err)

	// Simulate a revoked install.
	first.Status = model.TenantStatusDisabled
	require.NoError(t, st.Tenants().Update(ctx, first))

	second, err := svc.Connect(ctx, ConnectInput{
		ShopDomain:  "demo.myshopify.com",
		AccessToken: "shpat_new",
		Currency:    "EUR",
	})
	require.NoError(t, err)
	assert.Equal(t, first.TenantID, second.TenantID)
	assert.Equal(t, model.TenantStatusActive, second.Status)
	assert.Equal(t, "shpat_new", second.AccessToken)
	assert.Equal(t, "EUR", second.Currency)
	// Cosmetic fields left empty in the input are preserved.
	assert.Equal(t, "Demo Shop", second.ShopName)
	require.NotNil(t, second.ReconnectTime)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLookupByDomainOnlySeesActive(t *testing.T) {
	svc, st := newTenantService(t)
	ctx := context.Background()

	tenant, err := svc.Connect(ctx, ConnectInput{ShopDomain: "demo.myshopify.com", AccessToken: "tok"})
	require.NoError(t, err)

	got, err := svc.LookupByDomain(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, tenant.TenantID, got.TenantID)

	tenant.Status = model.TenantStatusDisabled
	require.NoError(t, st.Tenants().Update(ctx, tenant))

	_, err = svc.LookupByDomain(ctx, "demo.myshopify.com")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestConversationServiceSoftFailures(t *testing.T) {
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	svc := NewConversationService(st, zerolog.Nop())
	ctx := context.Background()

	// No record yet: Load reports nil, not an error.
	assert.Nil(t, svc.Load(ctx, "t1", "u1"))

	svc.Save(ctx, &model.Conversation{
		TenantID: "t1",
		UserID:   "u1",
		Messages: []model.Message{{Role: model.RoleUser, Content: "hi"}},
		Context:  map[string]interface{}{"email": "jane@example.com"},
	})

	rec := svc.Load(ctx, "t1", "u1")
	require.NotNil(t, rec)
	assert.Equal(t, "jane@example.com", rec.Context["email"])

	n, err := svc.CountByTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, svc.Delete(ctx, "t1", "u1"))
	assert.Nil(t, svc.Load(ctx, "t1", "u1"))
}
