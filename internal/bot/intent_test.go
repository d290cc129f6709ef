package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBasicIntents(t *testing.T) {
	c := NewClassifier()

	cases := []struct {
		text       string
		intent     Intent
		confidence float64
	}{
		{"hi", IntentGreeting, 0.95},
		{"Hello there", IntentGreeting, 0.95},
		{"do you remember me?", IntentGreeting, 0.95},
		{"track my order", IntentTrackOrder, 0.95},
		{"where is my package", IntentTrackOrder, 0.95},
		{"show me some deals", IntentBrowseDeals, 0.9},
		{"browse the catalog", IntentBrowseDeals, 0.9},
		{"add this to cart", IntentAddCart, 0.9},
		{"I want to buy that mug", IntentAddCart, 0.9},
		{"buy now", IntentBuyNow, 0.85},
		{"take me to checkout", IntentBuyNow, 0.85},
		{"I got a damaged item", IntentReturnOrder, 0.9},
		{"I need a refund", IntentReturnOrder, 0.9},
		{"tell me more", IntentProductInfo, 0.8},
	}
	for _, tc := range cases {
		got := c.Classify(tc.text)
		assert.Equal(t, tc.intent, got.Intent, "text %q", tc.text)
		assert.Equal(t, tc.confidence, got.Confidence, "text %q", tc.text)
	}
}

// The rule table is order-sensitive: a message matching several patterns
// must resolve to the earliest declared intent.
func TestClassifyDeclarationOrderWins(t *testing.T) {
	c := NewClassifier()

	// "track my return" matches track_order and return_order; track_order is
	// declared first.
	got := c.Classify("track my return")
	assert.Equal(t, IntentTrackOrder, got.Intent)

	// "cancel my order" matches track_order (order) and return_order
	// (cancel); track_order still wins by declaration order.
	got = c.Classify("cancel my order")
	assert.Equal(t, IntentTrackOrder, got.Intent)

	// Greeting outranks everything.
	got = c.Classify("hi, where is my order?")
	assert.Equal(t, IntentGreeting, got.Intent)
}

func TestClassifyUnmatchedFallsBack(t *testing.T) {
	c := NewClassifier()

	got := c.Classify("zzz qqq blorp")
	assert.Equal(t, IntentGeneral, got.Intent)
	assert.Equal(t, 0.5, got.Confidence)

	got = c.Classify("")
	assert.Equal(t, IntentGeneral, got.Intent)
	assert.Equal(t, 0.5, got.Confidence)
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	c := NewClassifier()
	assert.Equal(t, IntentTrackOrder, c.Classify("TRACK MY ORDER").Intent)
	assert.Equal(t, IntentBrowseDeals, c.Classify("Show Me Deals").Intent)
}
