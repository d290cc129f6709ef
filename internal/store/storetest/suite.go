// Package storetest exercises a compliance suite against any store.Store.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shoptalk/shoptalk/internal/model"
	"github.com/shoptalk/shoptalk/internal/store"
)

// Run exercises a minimal compliance suite against a store.Store
// implementation. Implementations should provide a clean, isolated store and
// return it from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	// Unique test identifiers
	tenantID := uuid.New().String()
	domain := "suite-" + tenantID[:8] + ".example-shop.test"

	// Tenants
	ten := &model.Tenant{
		TenantID:    tenantID,
		ShopDomain:  domain,
		ShopName:    "Suite Shop",
		Email:       "owner@" + domain,
		AccessToken: "shpat_test_token",
		Currency:    "USD",
		Timezone:    "UTC",
		WebhookURL:  "https://bot.example.test/api/tenants/" + tenantID + "/messages",
	}
	created, err := s.Tenants().Create(ctx, ten)
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	if created.Status != model.TenantStatusActive {
		t.Fatalf("CreateTenant: status=%q want active", created.Status)
	}
	if created.CreationTime.IsZero() {
		t.Fatalf("CreateTenant: zero creation time")
	}

	if got, err := s.Tenants().Get(ctx, tenantID); err != nil || got.ShopDomain != domain {
		t.Fatalf("GetTenant: got=%v err=%v", got, err)
	}
	if got, err := s.Tenants().GetByDomain(ctx, domain); err != nil || got.TenantID != tenantID {
		t.Fatalf("GetTenantByDomain: got=%v err=%v", got, err)
	}
	if _, err := s.Tenants().Get(ctx, "no-such-tenant"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetTenant missing: err=%v want ErrNotFound", err)
	}

	// Reconnect-style update: new credential, disabled domain no longer resolves.
	now := time.Now().UTC()
	created.AccessToken = "shpat_rotated"
	created.Status = model.TenantStatusDisabled
	created.ReconnectTime = &now
	if err := s.Tenants().Update(ctx, created); err != nil {
		t.Fatalf("UpdateTenant: %v", err)
	}
	if _, err := s.Tenants().GetByDomain(ctx, domain); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetTenantByDomain disabled: err=%v want ErrNotFound", err)
	}
	if got, err := s.Tenants().Get(ctx, tenantID); err != nil || got.AccessToken != "shpat_rotated" || got.ReconnectTime == nil {
		t.Fatalf("GetTenant after update: got=%v err=%v", got, err)
	}

	if lst, err := s.Tenants().List(ctx); err != nil || len(lst) == 0 {
		t.Fatalf("ListTenants: n=%d err=%v", len(lst), err)
	}
	if n, err := s.Tenants().Count(ctx); err != nil || n == 0 {
		t.Fatalf("CountTenants: n=%d err=%v", n, err)
	}

	// Conversations
	userID := "visitor-" + uuid.New().String()[:8]
	conv := &model.Conversation{
		TenantID: tenantID,
		UserID:   userID,
		Messages: []model.Message{
			{Role: model.RoleUser, Content: "hi", Intent: "greeting", Timestamp: now},
			{Role: model.RoleBot, Content: "welcome", Timestamp: now},
		},
		Context: map[string]interface{}{"email": "jane@example.test"},
	}
	if err := s.Conversations().Put(ctx, conv); err != nil {
		t.Fatalf("PutConversation: %v", err)
	}
	got, err := s.Conversations().Get(ctx, tenantID, userID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[0].Intent != "greeting" {
		t.Fatalf("GetConversation: messages=%v", got.Messages)
	}
	if got.Context["email"] != "jane@example.test" {
		t.Fatalf("GetConversation: context=%v", got.Context)
	}

	// Upsert replaces content
	conv.Context["orderId"] = "1001"
	if err := s.Conversations().Put(ctx, conv); err != nil {
		t.Fatalf("PutConversation upsert: %v", err)
	}
	if got, err := s.Conversations().Get(ctx, tenantID, userID); err != nil || got.Context["orderId"] != "1001" {
		t.Fatalf("GetConversation after upsert: got=%v err=%v", got, err)
	}

	if n, err := s.Conversations().CountByTenant(ctx, tenantID); err != nil || n != 1 {
		t.Fatalf("CountByTenant: n=%d err=%v", n, err)
	}

	if _, err := s.Conversations().Get(ctx, tenantID, "nobody"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetConversation missing: err=%v want ErrNotFound", err)
	}

	if err := s.Conversations().Delete(ctx, tenantID, userID); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if err := s.Conversations().Delete(ctx, tenantID, userID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("DeleteConversation twice: err=%v want ErrNotFound", err)
	}
}
