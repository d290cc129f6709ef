// Package services orchestrates store-backed use cases for the API layer
// and the webhook dispatcher.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shoptalk/shoptalk/internal/model"
	"github.com/shoptalk/shoptalk/internal/store"
)

// TenantService is the tenant registry: id lookup, reverse domain lookup,
// and the connect/reconnect lifecycle.
type TenantService struct {
	store         store.Store
	publicBaseURL string
	log           zerolog.Logger
}

func NewTenantService(s store.Store, publicBaseURL string, log zerolog.Logger) *TenantService {
	return &TenantService{
		store:         s,
		publicBaseURL: publicBaseURL,
		log:           log.With().Str("component", "tenants").Logger(),
	}
}

// Get returns a tenant by id.
func (s *TenantService) Get(ctx context.Context, tenantID string) (*model.Tenant, error) {
	return s.store.Tenants().Get(ctx, tenantID)
}

// LookupByDomain returns the active tenant connected for a shop domain.
func (s *TenantService) LookupByDomain(ctx context.Context, shopDomain string) (*model.Tenant, error) {
	return s.store.Tenants().GetByDomain(ctx, shopDomain)
}

// List returns all tenants.
func (s *TenantService) List(ctx context.Context) ([]*model.Tenant, error) {
	return s.store.Tenants().List(ctx)
}

// Count returns the number of connected tenants.
func (s *TenantService) Count(ctx context.Context) (int, error) {
	return s.store.Tenants().Count(ctx)
}

// ConnectInput carries everything learned during the OAuth callback.
type ConnectInput struct {
	ShopDomain  string
	ShopName    string
	Email       string
	AccessToken string
	Currency    string
	Timezone    string
}

// Connect creates a tenant for a newly authorized shop, or reconnects an
// existing one: the credential is replaced, status reset to active and the
// reconnect instant stamped. Tenants are never hard-deleted, so a domain
// seen before reuses its tenant id.
func (s *TenantService) Connect(ctx context.Context, in ConnectInput) (*model.Tenant, error) {
	if in.ShopDomain == "" {
		return nil, fmt.Errorf("%w: shop domain is required", model.ErrValidation)
	}
	if in.AccessToken == "" {
		return nil, fmt.Errorf("%w: access token is required", model.ErrValidation)
	}

	existing, err := s.findByDomainAnyStatus(ctx, in.ShopDomain)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		now := time.Now().UTC()
		existing.AccessToken = in.AccessToken
		existing.Status = model.TenantStatusActive
		existing.ReconnectTime = &now
		if in.ShopName != "" {
			existing.ShopName = in.ShopName
		}
		if in.Email != "" {
			existing.Email = in.Email
		}
		if in.Currency != "" {
			existing.Currency = in.Currency
		}
		if in.Timezone != "" {
			existing.Timezone = in.Timezone
		}
		if err := s.store.Tenants().Update(ctx, existing); err != nil {
			return nil, err
		}
		s.log.Info().Str("tenant", existing.TenantID).Str("shop", in.ShopDomain).Msg("tenant reconnected")
		return existing, nil
	}

	tenantID := uuid.New().String()
	tenant := &model.Tenant{
		TenantID:    tenantID,
		ShopDomain:  in.ShopDomain,
		ShopName:    in.ShopName,
		Email:       in.Email,
		AccessToken: in.AccessToken,
		Currency:    in.Currency,
		Timezone:    in.Timezone,
		Status:      model.TenantStatusActive,
		WebhookURL:  s.WebhookURL(tenantID),
	}
	created, err := s.store.Tenants().Create(ctx, tenant)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("tenant", created.TenantID).Str("shop", in.ShopDomain).Msg("tenant connected")
	return created, nil
}

// WebhookURL is the externally visible inbound message endpoint for a
// tenant.
func (s *TenantService) WebhookURL(tenantID string) string {
	return fmt.Sprintf("%s/api/tenants/%s/messages", s.publicBaseURL, tenantID)
}

// findByDomainAnyStatus also surfaces disabled tenants so a reconnect reuses
// the row. GetByDomain only sees active tenants; the fallback scan is fine
// at single-store scale.
func (s *TenantService) findByDomainAnyStatus(ctx context.Context, shopDomain string) (*model.Tenant, error) {
	t, err := s.store.Tenants().GetByDomain(ctx, shopDomain)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	all, err := s.store.Tenants().List(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range all {
		if t.ShopDomain == shopDomain {
			return t, nil
		}
	}
	return nil, model.ErrNotFound
}
