package dialoguenode

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/autocredit-bot/agent/contract"
)

func FinalizeAction(in *GraphState) (GraphOutput, error) {
	if err := requireState(in); err != nil {
		return GraphOutput{}, err
	}

	action := in.Action
	action.Text = strings.TrimSpace(action.Text)
	if action.Kind == "" || action.Text == "" {
		return GraphOutput{}, fmt.Errorf("%w: no action produced at stage %s", contractx.ErrPrecondition, in.Session.Stage)
	}

	ev := log.Debug().
		Int64("user_id", in.UserID).
		Str("event", string(in.Event.Kind)).
		Str("stage", string(in.Session.Stage)).
		Str("action", string(action.Kind))
	if action.Err != nil {
		ev = ev.AnErr("reason", action.Err)
	}
	ev.Msg("dialogue event handled")

	return GraphOutput{Action: action}, nil
}
