package dialoguenode

import (
	promptx "github.com/tanpawarit/autocredit-bot/agent/prompt"
	statex "github.com/tanpawarit/autocredit-bot/agent/state"
)

// SaveSession stores the session, or removes it once the dialogue has ended
// or is back at idle.
func SaveSession(in *GraphState, store statex.Store, prompts *promptx.PromptSet) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}

	if !in.Discard && in.Session.Stage != statex.StageIdle {
		if err := in.Session.Validate(); err != nil {
			internalError(in, prompts, err)
		}
	}

	if in.Discard || in.Session.Stage == statex.StageIdle {
		store.Remove(in.UserID)
		return in, nil
	}

	in.Session.Touch(in.Now)
	store.Put(in.UserID, in.Session)
	return in, nil
}
