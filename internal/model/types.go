package model

import "time"

// Tenant statuses. Tenants are never hard-deleted; a revoked or broken
// install is flipped to disabled and reactivated on reconnect.
const (
	TenantStatusActive   = "active"
	TenantStatusDisabled = "disabled"
)

// Message roles within a conversation.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Tenant represents one connected storefront.
type Tenant struct {
	TenantID      string     `json:"tenantId"`
	ShopDomain    string     `json:"shopDomain"`
	ShopName      string     `json:"shopName"`
	Email         string     `json:"email"`
	AccessToken   string     `json:"accessToken,omitempty"`
	TokenExpiry   *time.Time `json:"tokenExpiry,omitempty"`
	Currency      string     `json:"currency"`
	Timezone      string     `json:"timezone"`
	Status        string     `json:"status"`
	CreationTime  time.Time  `json:"creationTime"`
	ReconnectTime *time.Time `json:"reconnectTime,omitempty"`
	WebhookURL    string     `json:"webhookUrl"`
}

// Sanitized returns a copy safe to expose over the API: the bearer
// credential is never included.
func (t *Tenant) Sanitized() *Tenant {
	out := *t
	out.AccessToken = ""
	out.TokenExpiry = nil
	return &out
}

// Message is one turn entry in a conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Intent    string    `json:"intent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PastAction records that an intent was acted on, newest last.
type PastAction struct {
	Intent    string    `json:"intent"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the persisted record of one user's dialogue with one
// tenant's bot: bounded message history plus the accumulated context map.
type Conversation struct {
	TenantID   string                 `json:"tenantId"`
	UserID     string                 `json:"userId"`
	Messages   []Message              `json:"messages"`
	Context    map[string]interface{} `json:"context"`
	UpdateTime time.Time              `json:"updateTime"`
}

// Button is a tappable action rendered by the chat platform.
type Button struct {
	Label string `json:"label"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Card is a rich product card rendered by the chat platform.
type Card struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Image    string   `json:"image,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// InputSpec hints the chat platform how to collect a prompted field.
type InputSpec struct {
	Type     string `json:"type"`
	Validate string `json:"validate,omitempty"`
}

// Question prompts the visitor for one missing field.
type Question struct {
	Name    string     `json:"name"`
	Replies []string   `json:"replies"`
	Input   *InputSpec `json:"input,omitempty"`
}

// Wire envelope actions.
const (
	WireActionReply   = "reply"
	WireActionContext = "context"
)

// WireResponse is the JSON envelope returned to the chat platform. It is
// always delivered with HTTP 200; action selects between a plain reply and
// a prompt for a missing context field.
type WireResponse struct {
	Action      string     `json:"action"`
	Replies     []string   `json:"replies,omitempty"`
	Suggestions []string   `json:"suggestions,omitempty"`
	Buttons     []Button   `json:"buttons,omitempty"`
	Cards       []Card     `json:"cards,omitempty"`
	ContextID   string     `json:"context_id,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
}
