package bot

import (
	"time"

	"github.com/shoptalk/shoptalk/internal/model"
)

// Context keys accumulated across turns.
const (
	CtxEmail           = "email"
	CtxOrderID         = "orderId"
	CtxOrderName       = "orderName"
	CtxOrderStatus     = "orderStatus"
	CtxOrderDate       = "orderDate"
	CtxCartID          = "cartId"
	CtxProductName     = "productName"
	CtxProductsViewed  = "productsViewed"
	CtxPreviousActions = "previousActions"
)

// historyLimit bounds the persisted message sequence; oldest entries are
// dropped first.
const historyLimit = 50

// Memory is one user's in-flight conversation state with one tenant's bot:
// bounded message history plus the accumulated context map.
type Memory struct {
	tenantID string
	userID   string
	messages []model.Message
	context  map[string]interface{}
}

// NewMemory creates an empty memory for a (tenant, user) pair.
func NewMemory(tenantID, userID string) *Memory {
	return &Memory{
		tenantID: tenantID,
		userID:   userID,
		context:  make(map[string]interface{}),
	}
}

// FromRecord rehydrates a memory from its persisted record.
func FromRecord(rec *model.Conversation) *Memory {
	m := NewMemory(rec.TenantID, rec.UserID)
	m.messages = append(m.messages, rec.Messages...)
	for k, v := range rec.Context {
		m.context[k] = v
	}
	return m
}

// Record snapshots the memory for persistence.
func (m *Memory) Record() *model.Conversation {
	rec := &model.Conversation{
		TenantID:   m.tenantID,
		UserID:     m.userID,
		Messages:   append([]model.Message(nil), m.messages...),
		Context:    make(map[string]interface{}, len(m.context)),
		UpdateTime: time.Now().UTC(),
	}
	for k, v := range m.context {
		rec.Context[k] = v
	}
	return rec
}

func (m *Memory) TenantID() string { return m.tenantID }
func (m *Memory) UserID() string   { return m.userID }

// AddMessage appends one turn entry, truncating history to the most recent
// historyLimit messages.
func (m *Memory) AddMessage(role, content string, intent Intent) {
	msg := model.Message{
		Role:      role,
		Content:   content,
		Intent:    string(intent),
		Timestamp: time.Now().UTC(),
	}
	m.messages = append(m.messages, msg)
	if len(m.messages) > historyLimit {
		m.messages = m.messages[len(m.messages)-historyLimit:]
	}
}

// Messages returns a copy of the message history.
func (m *Memory) Messages() []model.Message {
	return append([]model.Message(nil), m.messages...)
}

// SetContextField sets one context field. An already-known email is never
// cleared by an empty value.
func (m *Memory) SetContextField(key string, value interface{}) {
	if key == CtxEmail && isEmpty(value) && !isEmpty(m.context[CtxEmail]) {
		return
	}
	m.context[key] = value
}

// MergeContext merges a patch of fields into the context, applying the same
// email guard per field.
func (m *Memory) MergeContext(patch map[string]interface{}) {
	for k, v := range patch {
		m.SetContextField(k, v)
	}
}

// Recall returns one context field, or nil if absent.
func (m *Memory) Recall(key string) interface{} {
	return m.context[key]
}

// RecallString returns a context field as a string ("" when absent or not a
// string).
func (m *Memory) RecallString(key string) string {
	s, _ := m.context[key].(string)
	return s
}

// Context returns a snapshot copy of the context map.
func (m *Memory) Context() map[string]interface{} {
	out := make(map[string]interface{}, len(m.context))
	for k, v := range m.context {
		out[k] = v
	}
	return out
}

// AppendAction records that an intent was acted on this turn.
func (m *Memory) AppendAction(intent Intent, at time.Time) {
	actions := m.PreviousActions()
	actions = append(actions, model.PastAction{Intent: string(intent), Timestamp: at.UTC()})
	m.context[CtxPreviousActions] = actions
}

// PreviousActions decodes the action log from the context map. After a JSON
// round-trip through the store the entries arrive as generic maps, so both
// representations are handled.
func (m *Memory) PreviousActions() []model.PastAction {
	switch v := m.context[CtxPreviousActions].(type) {
	case []model.PastAction:
		return v
	case []interface{}:
		out := make([]model.PastAction, 0, len(v))
		for _, e := range v {
			entry, ok := e.(map[string]interface{})
			if !ok {
				continue
			}
			a := model.PastAction{}
			a.Intent, _ = entry["intent"].(string)
			if ts, ok := entry["timestamp"].(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
					a.Timestamp = t
				}
			}
			out = append(out, a)
		}
		return out
	default:
		return nil
	}
}

// LastAction returns the most recent acted-on intent, or nil.
func (m *Memory) LastAction() *model.PastAction {
	actions := m.PreviousActions()
	if len(actions) == 0 {
		return nil
	}
	return &actions[len(actions)-1]
}

// HasHistory reports whether this user has interacted before: a known email
// or at least one prior action.
func (m *Memory) HasHistory() bool {
	return m.RecallString(CtxEmail) != "" || len(m.PreviousActions()) > 0
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
