package bot

import "strings"

// Visitor identifies the message sender as far as the inbound payload
// allows.
type Visitor struct {
	Email string
	ID    string
	Name  string
}

// textKeys are the field names that may carry message text inside a payload
// object.
var textKeys = []string{"text", "message", "content", "body", "query"}

// containerKeys are the nested objects probed, in priority order, when the
// top level carries no text.
var containerKeys = []string{"message", "session", "data", "payload"}

// visitorKeys are the nested objects probed for sender identity.
var visitorKeys = []string{"visitor", "user", "customer", "sender", "session", "data"}

// ResolveInbound extracts message text and visitor identity from a loosely
// structured inbound payload. Known shapes are tried in priority order and
// the first non-empty text wins; a generic scan over all top-level values is
// the last resort. Empty text means the payload was not understood.
func ResolveInbound(payload map[string]interface{}) (string, Visitor) {
	visitor := resolveVisitor(payload)
	if payload == nil {
		return "", visitor
	}

	// 1. Direct top-level text field.
	if text := firstTextField(payload); text != "" {
		return text, visitor
	}

	// 2–5. Known nested containers.
	for _, key := range containerKeys {
		switch v := payload[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s, visitor
			}
		case map[string]interface{}:
			if text := firstTextField(v); text != "" {
				return text, visitor
			}
		}
	}

	// 6. Generic scan of all top-level values.
	for _, v := range payload {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s, visitor
			}
		case map[string]interface{}:
			if text := firstTextField(t); text != "" {
				return text, visitor
			}
		}
	}

	return "", visitor
}

func firstTextField(obj map[string]interface{}) string {
	for _, key := range textKeys {
		if s, ok := obj[key].(string); ok {
			if t := strings.TrimSpace(s); t != "" {
				return t
			}
		}
	}
	return ""
}

func resolveVisitor(payload map[string]interface{}) Visitor {
	var v Visitor
	if payload == nil {
		return v
	}

	fill := func(obj map[string]interface{}) {
		if v.Email == "" {
			for _, k := range []string{"email", "e-mail"} {
				if s, ok := obj[k].(string); ok && s != "" {
					v.Email = s
					break
				}
			}
		}
		if v.ID == "" {
			for _, k := range []string{"id", "userId", "user_id", "visitorId", "visitor_id"} {
				if s, ok := obj[k].(string); ok && s != "" {
					v.ID = s
					break
				}
			}
		}
		if v.Name == "" {
			for _, k := range []string{"name", "username", "displayName"} {
				if s, ok := obj[k].(string); ok && s != "" {
					v.Name = s
					break
				}
			}
		}
	}

	fill(payload)
	for _, key := range visitorKeys {
		if obj, ok := payload[key].(map[string]interface{}); ok {
			fill(obj)
		}
	}
	return v
}
