package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeURL(t *testing.T) {
	app := OAuthApp{ClientID: "client-1", Scopes: "read_products,read_orders"}
	raw := AuthorizeURL("demo.myshopify.com", app, "https://bot.example.com/auth/callback", "state-1")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "demo.myshopify.com", u.Host)
	assert.Equal(t, "/admin/oauth/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "read_products,read_orders", q.Get("scope"))
	assert.Equal(t, "https://bot.example.com/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "state-1", q.Get("state"))
}

func TestExchangeCode(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/oauth/access_token", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Token{AccessToken: "shpat_abc", Scope: "read_products"})
	}))
	defer srv.Close()

	p := NewProvider(OAuthApp{ClientID: "client-1", ClientSecret: "secret-1"}, 5*time.Second)
	p.BaseURL = srv.URL

	tok, err := p.ExchangeCode(context.Background(), "demo.myshopify.com", "code-1")
	require.NoError(t, err)
	assert.Equal(t, "shpat_abc", tok.AccessToken)
	assert.Equal(t, "client-1", gotBody["client_id"])
	assert.Equal(t, "secret-1", gotBody["client_secret"])
	assert.Equal(t, "code-1", gotBody["code"])
}

func TestExchangeCodeRejectsEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Token{})
	}))
	defer srv.Close()

	p := NewProvider(OAuthApp{}, 5*time.Second)
	p.BaseURL = srv.URL

	_, err := p.ExchangeCode(context.Background(), "demo.myshopify.com", "code-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty access token")
}

func TestExchangeCodeNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewProvider(OAuthApp{}, 5*time.Second)
	p.BaseURL = srv.URL

	_, err := p.ExchangeCode(context.Background(), "demo.myshopify.com", "bad-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
