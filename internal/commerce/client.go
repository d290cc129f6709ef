// Package commerce is the REST client for the storefront API (products,
// orders, draft orders). Every call carries the tenant's bearer credential
// and a bounded timeout.
package commerce

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// API is the collaborator surface consumed by the bot. Tests substitute a
// fake; production code uses Client.
type API interface {
	GetShop(ctx context.Context) (*Shop, error)
	ListProducts(ctx context.Context, limit int) ([]Product, error)
	SearchProducts(ctx context.Context, title string) ([]Product, error)
	ListOrdersByEmail(ctx context.Context, email string, limit int) ([]Order, error)
	GetOrder(ctx context.Context, orderID int64) (*Order, error)
	CreateDraftOrder(ctx context.Context, draft *DraftOrder) (*DraftOrder, error)
	GetDraftOrder(ctx context.Context, draftID int64) (*DraftOrder, error)
	UpdateDraftOrder(ctx context.Context, draft *DraftOrder) (*DraftOrder, error)
	CalculateRefund(ctx context.Context, orderID int64) (*RefundCalculation, error)
}

// Factory builds an API bound to one tenant's shop and credential.
type Factory func(shopDomain, accessToken string) API

// Client talks to one shop's admin REST API.
type Client struct {
	http    *resty.Client
	version string
}

// NewFactory returns a Factory producing clients pinned to the given API
// version and per-request timeout.
func NewFactory(version string, timeout time.Duration) Factory {
	return func(shopDomain, accessToken string) API {
		return NewClient("https://"+shopDomain, accessToken, version, timeout)
	}
}

// NewClient creates a client for baseURL. Tests point it at an httptest
// server.
func NewClient(baseURL, accessToken, version string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Shopify-Access-Token", accessToken).
		SetTimeout(timeout)

	return &Client{http: c, version: version}
}

func (c *Client) path(resource string) string {
	return fmt.Sprintf("/admin/api/%s/%s", c.version, resource)
}

// get performs a GET and decodes the enveloped result into out.
func (c *Client) get(ctx context.Context, resource string, query map[string]string, out interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out).
		Get(c.path(resource))
	if err != nil {
		return fmt.Errorf("commerce GET %s: %w", resource, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("commerce GET %s: status %d", resource, resp.StatusCode())
	}
	return nil
}

func (c *Client) GetShop(ctx context.Context) (*Shop, error) {
	var out struct {
		Shop Shop `json:"shop"`
	}
	if err := c.get(ctx, "shop.json", nil, &out); err != nil {
		return nil, err
	}
	return &out.Shop, nil
}

func (c *Client) ListProducts(ctx context.Context, limit int) ([]Product, error) {
	var out struct {
		Products []Product `json:"products"`
	}
	q := map[string]string{
		"limit":            fmt.Sprintf("%d", limit),
		"published_status": "published",
	}
	if err := c.get(ctx, "products.json", q, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) SearchProducts(ctx context.Context, title string) ([]Product, error) {
	var out struct {
		Products []Product `json:"products"`
	}
	q := map[string]string{"title": title, "limit": "20"}
	if err := c.get(ctx, "products.json", q, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) ListOrdersByEmail(ctx context.Context, email string, limit int) ([]Order, error) {
	var out struct {
		Orders []Order `json:"orders"`
	}
	q := map[string]string{
		"email":  email,
		"status": "any",
		"limit":  fmt.Sprintf("%d", limit),
	}
	if err := c.get(ctx, "orders.json", q, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	var out struct {
		Order Order `json:"order"`
	}
	if err := c.get(ctx, fmt.Sprintf("orders/%d.json", orderID), nil, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

func (c *Client) CreateDraftOrder(ctx context.Context, draft *DraftOrder) (*DraftOrder, error) {
	var out struct {
		DraftOrder DraftOrder `json:"draft_order"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"draft_order": draft}).
		SetResult(&out).
		Post(c.path("draft_orders.json"))
	if err != nil {
		return nil, fmt.Errorf("commerce create draft order: %w", err)
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("commerce create draft order: status %d", resp.StatusCode())
	}
	return &out.DraftOrder, nil
}

func (c *Client) GetDraftOrder(ctx context.Context, draftID int64) (*DraftOrder, error) {
	var out struct {
		DraftOrder DraftOrder `json:"draft_order"`
	}
	if err := c.get(ctx, fmt.Sprintf("draft_orders/%d.json", draftID), nil, &out); err != nil {
		return nil, err
	}
	return &out.DraftOrder, nil
}

func (c *Client) UpdateDraftOrder(ctx context.Context, draft *DraftOrder) (*DraftOrder, error) {
	var out struct {
		DraftOrder DraftOrder `json:"draft_order"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"draft_order": draft}).
		SetResult(&out).
		Put(c.path(fmt.Sprintf("draft_orders/%d.json", draft.ID)))
	if err != nil {
		return nil, fmt.Errorf("commerce update draft order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("commerce update draft order: status %d", resp.StatusCode())
	}
	return &out.DraftOrder, nil
}

func (c *Client) CalculateRefund(ctx context.Context, orderID int64) (*RefundCalculation, error) {
	order, err := c.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]interface{}, 0, len(order.LineItems))
	for _, li := range order.LineItems {
		items = append(items, map[string]interface{}{
			"variant_id": li.VariantID,
			"quantity":   li.Quantity,
		})
	}

	var out struct {
		Refund RefundCalculation `json:"refund"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"refund": map[string]interface{}{
				"shipping":          map[string]interface{}{"full_refund": true},
				"refund_line_items": items,
			},
		}).
		SetResult(&out).
		Post(c.path(fmt.Sprintf("orders/%d/refunds/calculate.json", orderID)))
	if err != nil {
		return nil, fmt.Errorf("commerce refund calculate: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("commerce refund calculate: status %d", resp.StatusCode())
	}
	return &out.Refund, nil
}
