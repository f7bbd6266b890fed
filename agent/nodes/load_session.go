package dialoguenode

import (
	statex "github.com/tanpawarit/autocredit-bot/agent/state"
)

func LoadSession(in *GraphState, store statex.Store) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}
	in.Session = store.Get(in.UserID)
	return in, nil
}
