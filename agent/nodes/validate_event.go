package dialoguenode

import (
	"fmt"
	"time"

	contractx "github.com/tanpawarit/autocredit-bot/agent/contract"
	statex "github.com/tanpawarit/autocredit-bot/agent/state"
)

type GraphInput struct {
	UserID int64
	Event  contractx.Event
}

type GraphOutput struct {
	Action contractx.Action
}

// GraphState flows through every node of one HandleEvent call.
type GraphState struct {
	UserID int64
	Event  contractx.Event
	Now    time.Time

	Session statex.Session
	Action  contractx.Action

	// QuoteReady is set once the last field is stored and a strategy must run.
	QuoteReady bool
	// Discard removes the session instead of saving it.
	Discard bool
}

func ValidateEvent(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	if in.UserID == 0 {
		return nil, contractx.ErrInvalidUser
	}
	if err := in.Event.Validate(); err != nil {
		return nil, err
	}

	return &GraphState{
		UserID: in.UserID,
		Event:  in.Event,
		Now:    nowFn().UTC(),
	}, nil
}

func requireState(in *GraphState) error {
	if in == nil {
		return fmt.Errorf("%w: graph state is nil", contractx.ErrPrecondition)
	}
	return nil
}
