package store

import (
	"context"

	"github.com/shoptalk/shoptalk/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (sqlite, postgres).
type Store interface {
	Tenants() Tenants
	Conversations() Conversations

	// Ping verifies backend connectivity for health checks.
	Ping(ctx context.Context) error
}

type Tenants interface {
	Create(ctx context.Context, t *model.Tenant) (*model.Tenant, error)
	Get(ctx context.Context, tenantID string) (*model.Tenant, error)
	// GetByDomain returns the active tenant for a shop domain. A domain maps
	// to at most one active tenant at a time.
	GetByDomain(ctx context.Context, shopDomain string) (*model.Tenant, error)
	Update(ctx context.Context, t *model.Tenant) error
	List(ctx context.Context) ([]*model.Tenant, error)
	Count(ctx context.Context) (int, error)
}

type Conversations interface {
	Get(ctx context.Context, tenantID, userID string) (*model.Conversation, error)
	Put(ctx context.Context, c *model.Conversation) error
	// Delete is an administrative operation; the dispatcher never deletes.
	Delete(ctx context.Context, tenantID, userID string) error
	CountByTenant(ctx context.Context, tenantID string) (int, error)
	Count(ctx context.Context) (int, error)
}
