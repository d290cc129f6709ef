// Package identity handles the storefront OAuth handshake: authorize URL
// construction, the code-for-token exchange, and the short-lived state
// registry that ties the two together.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// Token is the bearer credential returned by the token exchange.
type Token struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// Provider exchanges an authorization code for a bearer credential.
type Provider interface {
	ExchangeCode(ctx context.Context, shopDomain, code string) (*Token, error)
}

// OAuthApp holds the registered app credentials.
type OAuthApp struct {
	ClientID     string
	ClientSecret string
	Scopes       string
}

// AuthorizeURL builds the storefront consent URL the merchant is sent to.
func AuthorizeURL(shopDomain string, app OAuthApp, redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", app.ClientID)
	q.Set("scope", app.Scopes)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shopDomain, q.Encode())
}

// HTTPProvider performs the token exchange against the storefront platform.
type HTTPProvider struct {
	app  OAuthApp
	http *resty.Client

	// BaseURL overrides the per-shop endpoint; tests point it at a local
	// server. Empty means https://{shopDomain}.
	BaseURL string
}

// NewProvider creates an HTTPProvider with a bounded request timeout.
func NewProvider(app OAuthApp, timeout time.Duration) *HTTPProvider {
	c := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &HTTPProvider{app: app, http: c}
}

// ExchangeCode posts the authorization code and returns the bearer token.
func (p *HTTPProvider) ExchangeCode(ctx context.Context, shopDomain, code string) (*Token, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://" + shopDomain
	}

	var out Token
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"client_id":     p.app.ClientID,
			"client_secret": p.app.ClientSecret,
			"code":          code,
		}).
		SetResult(&out).
		Post(base + "/admin/oauth/access_token")
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("token exchange: status %d", resp.StatusCode())
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("token exchange: empty access token")
	}
	return &out, nil
}
