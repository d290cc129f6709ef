// Package bot implements the intent-classification, action-dispatch and
// conversation-memory loop behind the webhook.
package bot

import (
	"regexp"
	"strings"
)

// Intent labels the bot can act on.
type Intent string

const (
	IntentGreeting    Intent = "greeting"
	IntentTrackOrder  Intent = "track_order"
	IntentBrowseDeals Intent = "browse_deals"
	IntentAddCart     Intent = "add_cart"
	IntentBuyNow      Intent = "buy_now"
	IntentReturnOrder Intent = "return_order"
	IntentProductInfo Intent = "product_info"
	IntentGeneral     Intent = "general_query"
)

// IntentResult is the classifier output.
type IntentResult struct {
	Intent     Intent
	Confidence float64
}

type intentRule struct {
	intent     Intent
	confidence float64
	pattern    *regexp.Regexp
}

// classifyRules is evaluated top to bottom; the first matching pattern wins.
// The order is load-bearing: several patterns overlap ("track my return"
// matches both track_order and return_order) and callers depend on the
// earlier declaration taking priority. Reordering this table changes user-
// visible behavior; see the ordering test before touching it.
var classifyRules = []intentRule{
	{IntentGreeting, 0.95, regexp.MustCompile(`\b(hi|hiya|hello|hey|howdy|good (morning|afternoon|evening))\b|remember me`)},
	{IntentTrackOrder, 0.95, regexp.MustCompile(`track|status|where|delivery|order|shipping`)},
	{IntentBrowseDeals, 0.9, regexp.MustCompile(`deal|product|browse|show|catalog|collection`)},
	{IntentAddCart, 0.9, regexp.MustCompile(`add .*cart|add to cart|want to buy|interested`)},
	{IntentBuyNow, 0.85, regexp.MustCompile(`buy now|checkout|payment|purchase|price`)},
	{IntentReturnOrder, 0.9, regexp.MustCompile(`return|refund|cancel|damaged|wrong`)},
	{IntentProductInfo, 0.8, regexp.MustCompile(`tell|about|info|describe|spec`)},
}

// Classifier maps raw message text to an intent label plus confidence.
type Classifier struct {
	rules []intentRule
}

// NewClassifier returns the fixed-rule classifier.
func NewClassifier() *Classifier {
	return &Classifier{rules: classifyRules}
}

// Classify lower-cases the input and returns the first matching intent.
// Unmatched text yields general_query with confidence 0.5.
func (c *Classifier) Classify(text string) IntentResult {
	lower := strings.ToLower(text)
	for _, r := range c.rules {
		if r.pattern.MatchString(lower) {
			return IntentResult{Intent: r.intent, Confidence: r.confidence}
		}
	}
	return IntentResult{Intent: IntentGeneral, Confidence: 0.5}
}
