package dialoguenode

import (
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/autocredit-bot/agent/contract"
	promptx "github.com/tanpawarit/autocredit-bot/agent/prompt"
)

// violatePrecondition logs a broken controller invariant, drops the session
// and answers with text.
func violatePrecondition(in *GraphState, text string, cause error) {
	log.Error().
		Err(cause).
		Int64("user_id", in.UserID).
		Str("stage", string(in.Session.Stage)).
		Msg("dialogue precondition violated")

	in.Session.Reset(in.Now)
	in.QuoteReady = false
	in.Discard = true
	in.Action = contractx.ErrorMessage(text, fmt.Errorf("%w: %w", contractx.ErrPrecondition, cause))
}

func internalError(in *GraphState, prompts *promptx.PromptSet, cause error) {
	violatePrecondition(in, prompts.InternalError, cause)
}
