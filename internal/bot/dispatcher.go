package bot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shoptalk/shoptalk/internal/model"
	"github.com/shoptalk/shoptalk/internal/services"
)

// Dispatcher orchestrates one webhook turn: tenant resolution, payload
// extraction, memory load, classification, execution, response building and
// best-effort persistence.
type Dispatcher struct {
	tenants    *services.TenantService
	convos     *services.ConversationService
	classifier *Classifier
	executor   *Executor
	log        zerolog.Logger
}

func NewDispatcher(tenants *services.TenantService, convos *services.ConversationService, classifier *Classifier, executor *Executor, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		tenants:    tenants,
		convos:     convos,
		classifier: classifier,
		executor:   executor,
		log:        log.With().Str("component", "dispatcher").Logger(),
	}
}

// Handle processes one inbound webhook call and always produces a
// well-formed envelope: business failures, malformed payloads and even
// panics inside the turn degrade to terminal replies, never to a transport
// error.
func (d *Dispatcher) Handle(ctx context.Context, tenantID string, payload map[string]interface{}) (resp *model.WireResponse) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error().Interface("panic", rec).Str("tenant", tenantID).Msg("panic during webhook turn")
			resp = BuildResponse(nil)
		}
	}()

	// 1. Tenant resolution is terminal on failure.
	tenant, err := d.tenants.Get(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			d.log.Error().Err(err).Str("tenant", tenantID).Msg("tenant lookup failed")
		}
		return &model.WireResponse{
			Action:  model.WireActionReply,
			Replies: []string{"This store isn't connected yet. Please ask the shop owner to reconnect the assistant."},
		}
	}

	// 2. Message text and visitor identity.
	text, visitor := ResolveInbound(payload)
	if text == "" {
		return &model.WireResponse{
			Action:      model.WireActionReply,
			Replies:     []string{"Sorry, I couldn't understand that. Try asking about deals, or give me an order to track."},
			Suggestions: []string{"Browse Deals", "Track Order", "Help"},
		}
	}

	// 3. Stable user id: email, platform id, display name, generated.
	userID := visitor.Email
	if userID == "" {
		userID = visitor.ID
	}
	if userID == "" {
		userID = visitor.Name
	}
	if userID == "" {
		userID = "anon-" + uuid.New().String()
	}

	// 4. Load or create memory; capture the visitor's email early so the
	// executor never has to re-ask for something the platform already knows.
	var mem *Memory
	if rec := d.convos.Load(ctx, tenantID, userID); rec != nil {
		mem = FromRecord(rec)
	} else {
		mem = NewMemory(tenantID, userID)
	}
	if visitor.Email != "" && mem.RecallString(CtxEmail) == "" {
		mem.SetContextField(CtxEmail, visitor.Email)
	}

	// 5. Classify and record the user's turn.
	intent := d.classifier.Classify(text)
	mem.AddMessage(model.RoleUser, text, intent.Intent)

	d.log.Debug().
		Str("tenant", tenantID).
		Str("user", userID).
		Str("intent", string(intent.Intent)).
		Float64("confidence", intent.Confidence).
		Msg("dispatching")

	// 6–7. Execute and build the envelope.
	result := d.executor.Execute(ctx, intent.Intent, text, mem, tenant)
	resp = BuildResponse(result)

	// 8. Record the bot's turn and fold persisted data into context.
	if result != nil && !result.NeedsInfo {
		mem.AddMessage(model.RoleBot, result.Message, intent.Intent)
		if result.Persist {
			mem.MergeContext(result.Data)
			mem.AppendAction(intent.Intent, time.Now())
		}
	}

	// 9. Best-effort persistence; the envelope is already decided.
	d.convos.Save(ctx, mem.Record())

	return resp
}
