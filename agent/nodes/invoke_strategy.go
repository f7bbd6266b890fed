package dialoguenode

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/autocredit-bot/agent/contract"
	promptx "github.com/tanpawarit/autocredit-bot/agent/prompt"
	statex "github.com/tanpawarit/autocredit-bot/agent/state"
)

// InvokeStrategy computes the quote for a complete session. The session is
// discarded whatever the outcome.
func InvokeStrategy(in *GraphState, resolver contractx.StrategyResolver, prompts *promptx.PromptSet) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}
	if !in.QuoteReady {
		return in, nil
	}
	in.QuoteReady = false

	st := in.Session
	if err := st.Ready(); err != nil {
		internalError(in, prompts, err)
		return in, nil
	}

	pct, err := st.DownPaymentPercent()
	if errors.Is(err, statex.ErrDownPaymentExceedsPrice) {
		failStrategy(in, prompts, err)
		return in, nil
	}
	if err != nil {
		internalError(in, prompts, err)
		return in, nil
	}

	strategy, ok := resolver.Strategy(st.Bank)
	if !ok {
		violatePrecondition(in, prompts.UnknownBank, fmt.Errorf("no strategy for bank %q", st.Bank))
		return in, nil
	}

	quote, err := strategy.Calculate(*st.CarPrice, pct, *st.LoanTermMonths)
	if err != nil {
		failStrategy(in, prompts, err)
		return in, nil
	}

	text := quote
	summary, err := prompts.RenderSummary(promptx.SummaryData{
		CarPrice:     *st.CarPrice,
		FirstPayment: *st.FirstPayment,
		Bank:         st.Bank,
		TermMonths:   *st.LoanTermMonths,
	})
	if err != nil {
		log.Warn().Err(err).Int64("user_id", in.UserID).Msg("render quote summary")
	} else {
		text = summary + "\n\n" + quote
	}

	in.Discard = true
	in.Action = contractx.QuoteResult(text, contractx.QuoteSummary{
		Brand:              st.Brand,
		Bank:               st.Bank,
		CarPrice:           *st.CarPrice,
		FirstPayment:       *st.FirstPayment,
		DownPaymentPercent: pct,
		TermMonths:         *st.LoanTermMonths,
		Quote:              quote,
	})
	return in, nil
}

func failStrategy(in *GraphState, prompts *promptx.PromptSet, cause error) {
	log.Warn().
		Err(cause).
		Int64("user_id", in.UserID).
		Str("bank", string(in.Session.Bank)).
		Msg("quote strategy failed")

	in.Discard = true
	in.Action = contractx.ErrorMessage(prompts.RenderStrategyFailed(cause),
		fmt.Errorf("%w: %w", contractx.ErrStrategyInvocation, cause))
}
