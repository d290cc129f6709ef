package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRegistrySingleUse(t *testing.T) {
	r := NewStateRegistry(0)

	token := r.Issue("demo.myshopify.com")
	require.NotEmpty(t, token)

	shop, ok := r.Consume(token)
	require.True(t, ok)
	assert.Equal(t, "demo.myshopify.com", shop)

	// A second presentation of the same token fails.
	_, ok = r.Consume(token)
	assert.False(t, ok)
}

func TestStateRegistryUnknownToken(t *testing.T) {
	r := NewStateRegistry(0)
	_, ok := r.Consume("never-issued")
	assert.False(t, ok)
}

func TestStateRegistryExpiry(t *testing.T) {
	r := NewStateRegistry(10 * time.Minute)
	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }

	token := r.Issue("demo.myshopify.com")

	current = current.Add(11 * time.Minute)
	_, ok := r.Consume(token)
	assert.False(t, ok)
}

func TestStateRegistryPrunesExpiredOnIssue(t *testing.T) {
	r := NewStateRegistry(10 * time.Minute)
	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }

	stale := r.Issue("old.myshopify.com")
	current = current.Add(11 * time.Minute)
	r.Issue("new.myshopify.com")

	assert.NotContains(t, r.states, stale)
}

func TestStateRegistryDistinctTokensPerShop(t *testing.T) {
	r := NewStateRegistry(0)
	a := r.Issue("a.myshopify.com")
	b := r.Issue("b.myshopify.com")
	require.NotEqual(t, a, b)

	shop, ok := r.Consume(b)
	require.True(t, ok)
	assert.Equal(t, "b.myshopify.com", shop)
}
