package bot

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shoptalk/shoptalk/internal/commerce"
	"github.com/shoptalk/shoptalk/internal/model"
)

// ActionResult describes the outcome of executing one intent: either a
// prompt for a missing field, or a reply with optional UI affordances plus
// context fields to persist.
type ActionResult struct {
	// NeedsInfo asks the platform to collect one field before retrying.
	NeedsInfo bool
	Field     string
	Prompt    string
	InputType string

	Message     string
	Suggestions []string
	Buttons     []model.Button
	Cards       []model.Card

	// Persist marks Data for merging into conversation context.
	Persist bool
	Data    map[string]interface{}
}

var (
	emailRx     = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	variantIDRx = regexp.MustCompile(`\b\d{10,}\b`)

	// Phrases stripped before fuzzy product matching.
	cartNoiseRx = regexp.MustCompile(`(?i)\b(add|to|the|my|cart|i|want|would|like|buy|please|im|i'm|interested|in|a|an)\b`)
)

const suggestHelp = "Help"

// Executor performs the business operation for a classified intent. It is
// stateless across calls; all cross-turn state travels through Memory.
type Executor struct {
	commerce commerce.Factory
	matcher  ProductMatcher
	log      zerolog.Logger
	now      func() time.Time
}

// NewExecutor wires the executor with its collaborators.
func NewExecutor(factory commerce.Factory, matcher ProductMatcher, log zerolog.Logger) *Executor {
	return &Executor{
		commerce: factory,
		matcher:  matcher,
		log:      log.With().Str("component", "executor").Logger(),
		now:      time.Now,
	}
}

// Execute runs the state machine for one intent.
func (e *Executor) Execute(ctx context.Context, intent Intent, message string, mem *Memory, tenant *model.Tenant) *ActionResult {
	switch intent {
	case IntentGreeting:
		return e.greet(mem)
	case IntentTrackOrder:
		return e.trackOrder(ctx, message, mem, tenant)
	case IntentBrowseDeals:
		return e.browseDeals(ctx, tenant)
	case IntentAddCart:
		return e.addToCart(ctx, message, mem, tenant)
	case IntentBuyNow:
		return e.buyNow(mem)
	case IntentReturnOrder:
		return e.returnOrder(message, mem)
	case IntentProductInfo:
		return e.productInfo(ctx, message, mem, tenant)
	default:
		return e.capabilityMenu()
	}
}

func (e *Executor) api(tenant *model.Tenant) commerce.API {
	return e.commerce(tenant.ShopDomain, tenant.AccessToken)
}

// resolveEmail looks in context first, then extracts from the message
// (writing it back as a side effect), and finally prompts for it.
func (e *Executor) resolveEmail(mem *Memory, message string) (string, *ActionResult) {
	if v := mem.RecallString(CtxEmail); v != "" {
		return v, nil
	}
	if m := emailRx.FindString(message); m != "" {
		mem.SetContextField(CtxEmail, m)
		return m, nil
	}
	return "", askForEmail()
}

func askForEmail() *ActionResult {
	return &ActionResult{
		NeedsInfo: true,
		Field:     "email",
		Prompt:    "What's the email address you used for your order?",
		InputType: "email",
	}
}

// --- greeting ---

func (e *Executor) greet(mem *Memory) *ActionResult {
	suggestions := []string{"Browse Deals", "Track Order", "Add to Cart", suggestHelp}

	if !mem.HasHistory() {
		return &ActionResult{
			Message:     "Hi there! I'm your shopping assistant. I can help you browse deals, track your orders, and manage your cart.",
			Suggestions: suggestions,
			// First contact: nothing to remember yet.
			Persist: false,
		}
	}

	followUp := "What can I help you with today?"
	if last := mem.LastAction(); last != nil {
		switch Intent(last.Intent) {
		case IntentTrackOrder:
			followUp = "Want an update on your recent order?"
		case IntentAddCart:
			followUp = "Your cart is waiting — ready to check out?"
		case IntentBrowseDeals:
			followUp = "Want to see what's new today?"
		case IntentReturnOrder:
			followUp = "Is there anything else I can sort out for you?"
		}
	}
	return &ActionResult{
		Message:     "Welcome back! " + followUp,
		Suggestions: suggestions,
		Persist:     false,
	}
}

// --- track_order ---

func (e *Executor) trackOrder(ctx context.Context, message string, mem *Memory, tenant *model.Tenant) *ActionResult {
	email, ask := e.resolveEmail(mem, message)
	if ask != nil {
		return ask
	}

	orders, err := e.api(tenant).ListOrdersByEmail(ctx, email, 5)
	if err != nil {
		e.log.Warn().Err(err).Str("tenant", tenant.TenantID).Msg("order lookup failed; treating as no data")
		orders = nil
	}
	if len(orders) == 0 {
		return &ActionResult{
			Message:     fmt.Sprintf("I couldn't find any orders for %s. If you ordered with a different email, tell me and I'll check again.", email),
			Suggestions: []string{"Browse Deals", suggestHelp},
			Persist:     true,
			Data:        map[string]interface{}{CtxEmail: email},
		}
	}

	order := mostRecentOrder(orders)
	status := fulfillmentLabel(order.FulfillmentStatus)
	payment := paymentLabel(order.FinancialStatus)
	days := elapsedDays(e.now().UTC(), order.CreatedAt)

	var b strings.Builder
	fmt.Fprintf(&b, "Order %s — %s\n", order.Name, status)
	fmt.Fprintf(&b, "Placed %s · Payment: %s\n", recencyPhrase(days), payment)
	if len(order.LineItems) > 0 {
		b.WriteString("Items:\n")
		shown := len(order.LineItems)
		if shown > 3 {
			shown = 3
		}
		for _, li := range order.LineItems[:shown] {
			fmt.Fprintf(&b, "• %d× %s\n", li.Quantity, li.Title)
		}
		if rest := len(order.LineItems) - shown; rest > 0 {
			fmt.Fprintf(&b, "…and %d more\n", rest)
		}
	}
	fmt.Fprintf(&b, "Total: %s", formatPrice(order.TotalPrice))
	if len(order.Fulfillments) > 0 && order.Fulfillments[0].TrackingNumber != "" {
		f := order.Fulfillments[0]
		fmt.Fprintf(&b, "\nTracking: %s", f.TrackingNumber)
		if f.TrackingCompany != "" {
			fmt.Fprintf(&b, " via %s", f.TrackingCompany)
		}
		if f.TrackingURL != "" {
			fmt.Fprintf(&b, "\n%s", f.TrackingURL)
		}
	}

	suggestions := []string{"Browse Deals", suggestHelp}
	if status == "Delivered" && days <= 30 {
		suggestions = append([]string{"Return Order"}, suggestions...)
	}

	return &ActionResult{
		Message:     b.String(),
		Suggestions: suggestions,
		Persist:     true,
		Data: map[string]interface{}{
			CtxEmail:       email,
			CtxOrderID:     strconv.FormatInt(order.ID, 10),
			CtxOrderName:   order.Name,
			CtxOrderStatus: status,
			CtxOrderDate:   order.CreatedAt.UTC().Format(time.RFC3339),
		},
	}
}

func mostRecentOrder(orders []commerce.Order) *commerce.Order {
	best := &orders[0]
	for i := range orders[1:] {
		if orders[i+1].CreatedAt.After(best.CreatedAt) {
			best = &orders[i+1]
		}
	}
	return best
}

func fulfillmentLabel(s *string) string {
	if s == nil {
		return "Processing"
	}
	switch *s {
	case "fulfilled":
		return "Delivered"
	case "partial":
		return "Partially Shipped"
	default:
		return "Processing"
	}
}

func paymentLabel(s string) string {
	switch s {
	case "paid":
		return "Paid"
	case "pending":
		return "Payment Pending"
	case "refunded":
		return "Refunded"
	case "partially_refunded":
		return "Partially Refunded"
	default:
		return "Payment Pending"
	}
}

func elapsedDays(now, then time.Time) int {
	d := int(now.Sub(then).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

func recencyPhrase(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatPrice(p string) string {
	return "$" + strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(p), "USD"))
}

// --- browse_deals ---

func (e *Executor) browseDeals(ctx context.Context, tenant *model.Tenant) *ActionResult {
	products, err := e.api(tenant).ListProducts(ctx, 10)
	if err != nil {
		e.log.Warn().Err(err).Str("tenant", tenant.TenantID).Msg("product listing failed; treating as no data")
		products = nil
	}
	if len(products) == 0 {
		return &ActionResult{
			Message:     "The catalog looks empty right now — check back soon!",
			Suggestions: []string{"Track Order", suggestHelp},
		}
	}

	shown := len(products)
	if shown > 5 {
		shown = 5
	}
	cards := make([]model.Card, 0, shown)
	for _, p := range products[:shown] {
		cards = append(cards, productCard(p))
	}

	return &ActionResult{
		Message:     "Here are our top picks right now:",
		Cards:       cards,
		Suggestions: []string{"Add to Cart", "Track Order", suggestHelp},
		Persist:     true,
		Data:        map[string]interface{}{CtxProductsViewed: len(products)},
	}
}

func productCard(p commerce.Product) model.Card {
	card := model.Card{Title: p.Title}
	if p.Image != nil {
		card.Image = p.Image.Src
	}
	if len(p.Variants) > 0 {
		v := p.Variants[0]
		card.Subtitle = formatPrice(v.Price)
		if pct := discountPercent(v.Price, v.CompareAtPrice); pct > 0 {
			card.Subtitle = fmt.Sprintf("%s · %d%% OFF", card.Subtitle, pct)
		}
		card.Buttons = []model.Button{
			{Label: "Add to Cart", Type: "postback", Value: fmt.Sprintf("add to cart %d", v.ID)},
			{Label: "View Details", Type: "postback", Value: "tell me about " + p.Title},
			{Label: "Buy Now", Type: "postback", Value: "buy now"},
		}
	}
	return card
}

// discountPercent returns round((compare-price)/compare*100), or 0 when the
// compare-at price doesn't exceed the price.
func discountPercent(price, compareAt string) int {
	p, err1 := strconv.ParseFloat(strings.TrimSpace(price), 64)
	c, err2 := strconv.ParseFloat(strings.TrimSpace(compareAt), 64)
	if err1 != nil || err2 != nil || c <= p || c <= 0 {
		return 0
	}
	return int(math.Round((c - p) / c * 100))
}

// --- add_cart ---

func (e *Executor) addToCart(ctx context.Context, message string, mem *Memory, tenant *model.Tenant) *ActionResult {
	email, ask := e.resolveEmail(mem, message)
	if ask != nil {
		return ask
	}
	api := e.api(tenant)

	variantID, productName, clarify := e.resolveVariant(ctx, api, message, tenant)
	if clarify != nil {
		return clarify
	}

	draft, err := e.mergeIntoCart(ctx, api, mem, email, variantID)
	if err != nil {
		e.log.Warn().Err(err).Str("tenant", tenant.TenantID).Msg("cart update failed")
		return &ActionResult{
			Message:     "I couldn't update your cart just now. Please try again in a moment.",
			Suggestions: []string{"Browse Deals", suggestHelp},
			Persist:     true,
			Data:        map[string]interface{}{CtxEmail: email},
		}
	}

	count := 0
	for _, li := range draft.LineItems {
		count += li.Quantity
	}

	return &ActionResult{
		Message:     fmt.Sprintf("Added %s to your cart. You now have %d item(s).", productName, count),
		Suggestions: []string{"Checkout", "Browse More Deals", "Track Order"},
		Persist:     true,
		Data: map[string]interface{}{
			CtxCartID:      strconv.FormatInt(draft.ID, 10),
			CtxEmail:       email,
			CtxProductName: productName,
		},
	}
}

// resolveVariant finds the variant the message refers to: an explicit long
// numeric token first, then fuzzy name matching over a product search.
func (e *Executor) resolveVariant(ctx context.Context, api commerce.API, message string, tenant *model.Tenant) (int64, string, *ActionResult) {
	if tok := variantIDRx.FindString(message); tok != "" {
		id, err := strconv.ParseInt(tok, 10, 64)
		if err == nil {
			return id, "this item", nil
		}
	}

	query := cleanProductQuery(message)
	products, err := api.SearchProducts(ctx, query)
	if err != nil {
		e.log.Warn().Err(err).Str("tenant", tenant.TenantID).Msg("product search failed; falling back to listing")
		products = nil
	}
	if len(products) == 0 {
		products, err = api.ListProducts(ctx, 20)
		if err != nil {
			e.log.Warn().Err(err).Str("tenant", tenant.TenantID).Msg("product listing failed; treating as no data")
			products = nil
		}
	}

	match, _ := e.matcher.BestMatch(query, products)
	if match == nil || len(match.Variants) == 0 {
		return 0, "", &ActionResult{
			Message:     "I couldn't tell which product you meant. What's the product name?",
			Suggestions: []string{"Browse Deals", suggestHelp},
		}
	}
	return match.Variants[0].ID, match.Title, nil
}

// cleanProductQuery strips cart phrasing so only the product reference is
// scored by the matcher.
func cleanProductQuery(message string) string {
	out := cartNoiseRx.ReplaceAllString(message, " ")
	return strings.Join(strings.Fields(out), " ")
}

// mergeIntoCart reuses an open draft order remembered in context, otherwise
// creates a fresh one. Re-adding an existing variant bumps its quantity.
func (e *Executor) mergeIntoCart(ctx context.Context, api commerce.API, mem *Memory, email string, variantID int64) (*commerce.DraftOrder, error) {
	if cid := mem.RecallString(CtxCartID); cid != "" {
		if id, err := strconv.ParseInt(cid, 10, 64); err == nil {
			existing, err := api.GetDraftOrder(ctx, id)
			if err != nil {
				e.log.Debug().Err(err).Str("cartId", cid).Msg("remembered cart not fetchable; creating a new one")
			} else if existing.Status == commerce.DraftOrderOpen {
				merged := false
				for i := range existing.LineItems {
					if existing.LineItems[i].VariantID == variantID {
						existing.LineItems[i].Quantity++
						merged = true
						break
					}
				}
				if !merged {
					existing.LineItems = append(existing.LineItems, commerce.DraftLineItem{VariantID: variantID, Quantity: 1})
				}
				return api.UpdateDraftOrder(ctx, existing)
			}
		}
	}

	return api.CreateDraftOrder(ctx, &commerce.DraftOrder{
		Email:     email,
		LineItems: []commerce.DraftLineItem{{VariantID: variantID, Quantity: 1}},
	})
}

// --- buy_now ---

// buyNow never creates a remote order; checkout is delegated to the draft
// order already held in context.
func (e *Executor) buyNow(mem *Memory) *ActionResult {
	if mem.RecallString(CtxEmail) == "" {
		return askForEmail()
	}

	msg := "Great! Head to checkout to complete your purchase."
	if mem.RecallString(CtxCartID) != "" {
		msg = "Great! Your cart is ready — head to checkout to complete your purchase."
	}
	return &ActionResult{
		Message:     msg,
		Suggestions: []string{"Complete Payment", "Keep Shopping"},
	}
}

// --- return_order ---

func (e *Executor) returnOrder(message string, mem *Memory) *ActionResult {
	email, ask := e.resolveEmail(mem, message)
	if ask != nil {
		return ask
	}
	return &ActionResult{
		Message:     "Sorry to hear something's not right. What's the issue with your order?",
		Suggestions: []string{"Damaged", "Wrong Item", "Not As Described", "Cancel"},
		Persist:     true,
		Data:        map[string]interface{}{CtxEmail: email},
	}
}

// --- product_info ---

func (e *Executor) productInfo(ctx context.Context, message string, mem *Memory, tenant *model.Tenant) *ActionResult {
	api := e.api(tenant)
	query := cleanProductQuery(message)

	products, err := api.SearchProducts(ctx, query)
	if err != nil {
		e.log.Warn().Err(err).Str("tenant", tenant.TenantID).Msg("product search failed; treating as no data")
		products = nil
	}
	if len(products) == 0 {
		products, _ = api.ListProducts(ctx, 20)
	}

	match, _ := e.matcher.BestMatch(query, products)
	if match == nil {
		return e.capabilityMenu()
	}

	return &ActionResult{
		Message:     fmt.Sprintf("Here's what I found about %s:", match.Title),
		Cards:       []model.Card{productCard(*match)},
		Suggestions: []string{"Add to Cart", "Browse Deals", suggestHelp},
		Persist:     true,
		Data:        map[string]interface{}{CtxProductName: match.Title},
	}
}

// --- general_query / unmatched ---

func (e *Executor) capabilityMenu() *ActionResult {
	return &ActionResult{
		Message: "Here's what I can do:\n" +
			"• Browse current deals\n" +
			"• Track your orders\n" +
			"• Add items to your cart\n" +
			"• Handle returns and refunds\n" +
			"What would you like to do?",
		Suggestions: []string{"Browse Deals", "Track Order", suggestHelp},
	}
}
