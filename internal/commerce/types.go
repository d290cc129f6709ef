package commerce

import "time"

// Wire types for the storefront REST API. Only the fields the bot consumes
// are mapped; unknown fields are ignored on decode.

type Image struct {
	Src string `json:"src"`
}

type Variant struct {
	ID             int64  `json:"id"`
	ProductID      int64  `json:"product_id"`
	Title          string `json:"title"`
	Price          string `json:"price"`
	CompareAtPrice string `json:"compare_at_price"`
}

type Product struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Status   string    `json:"status"`
	Image    *Image    `json:"image"`
	Variants []Variant `json:"variants"`
}

type LineItem struct {
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	VariantID int64  `json:"variant_id"`
}

type Fulfillment struct {
	TrackingNumber  string `json:"tracking_number"`
	TrackingCompany string `json:"tracking_company"`
	TrackingURL     string `json:"tracking_url"`
}

type Order struct {
	ID                int64         `json:"id"`
	Name              string        `json:"name"`
	Email             string        `json:"email"`
	CreatedAt         time.Time     `json:"created_at"`
	CancelledAt       *time.Time    `json:"cancelled_at"`
	FulfillmentStatus *string       `json:"fulfillment_status"`
	FinancialStatus   string        `json:"financial_status"`
	TotalPrice        string        `json:"total_price"`
	Currency          string        `json:"currency"`
	LineItems         []LineItem    `json:"line_items"`
	Fulfillments      []Fulfillment `json:"fulfillments"`
}

// Draft order statuses as reported by the storefront.
const (
	DraftOrderOpen      = "open"
	DraftOrderCompleted = "completed"
)

type DraftLineItem struct {
	Title     string `json:"title,omitempty"`
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type DraftOrder struct {
	ID         int64           `json:"id"`
	Status     string          `json:"status"`
	InvoiceURL string          `json:"invoice_url"`
	Email      string          `json:"email,omitempty"`
	LineItems  []DraftLineItem `json:"line_items"`
}

type Shop struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	MyshopifyDomain string `json:"myshopify_domain"`
	Currency        string `json:"currency"`
	IanaTimezone    string `json:"iana_timezone"`
}

type RefundTransaction struct {
	Amount  string `json:"amount"`
	Kind    string `json:"kind"`
	Gateway string `json:"gateway"`
}

type RefundCalculation struct {
	Currency     string              `json:"currency"`
	Transactions []RefundTransaction `json:"transactions"`
}
