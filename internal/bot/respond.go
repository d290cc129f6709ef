package bot

import "github.com/shoptalk/shoptalk/internal/model"

// BuildResponse maps an ActionResult into the wire envelope the chat
// platform expects. A nil result degrades to a generic error reply instead
// of failing the turn.
func BuildResponse(res *ActionResult) *model.WireResponse {
	if res == nil {
		return &model.WireResponse{
			Action:  model.WireActionReply,
			Replies: []string{"Something went wrong on our side. Please try again."},
		}
	}

	if res.NeedsInfo {
		q := model.Question{
			Name:    res.Field,
			Replies: []string{res.Prompt},
		}
		if res.InputType != "" {
			q.Input = &model.InputSpec{Type: res.InputType}
			if res.InputType == "email" {
				q.Input.Validate = "email"
			}
		}
		return &model.WireResponse{
			Action:    model.WireActionContext,
			ContextID: res.Field,
			Questions: []model.Question{q},
		}
	}

	return &model.WireResponse{
		Action:      model.WireActionReply,
		Replies:     []string{res.Message},
		Suggestions: res.Suggestions,
		Buttons:     res.Buttons,
		Cards:       res.Cards,
	}
}
