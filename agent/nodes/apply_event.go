package dialoguenode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tanpawarit/autocredit-bot/agent/catalog"
	contractx "github.com/tanpawarit/autocredit-bot/agent/contract"
	inputx "github.com/tanpawarit/autocredit-bot/agent/input"
	promptx "github.com/tanpawarit/autocredit-bot/agent/prompt"
	statex "github.com/tanpawarit/autocredit-bot/agent/state"
)

// StartCommand restarts the dialogue from any stage.
const StartCommand = "/start"

// ApplyEvent runs one step of the dialogue state machine. Validation
// failures leave the session in its current stage.
func ApplyEvent(in *GraphState, prompts *promptx.PromptSet) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}

	if in.Event.Kind == contractx.EventText && strings.TrimSpace(in.Event.Text) == StartCommand {
		in.Session.Reset(in.Now)
		in.Discard = true
		in.Action = contractx.Prompt(prompts.ChooseBrand, prompts.BrandMenu())
		return in, nil
	}

	switch in.Session.Stage {
	case statex.StageIdle:
		applyIdle(in, prompts)
	case statex.StageAwaitingCarPrice:
		applyCarPrice(in, prompts)
	case statex.StageAwaitingFirstPayment:
		applyFirstPayment(in, prompts)
	case statex.StageAwaitingBankSelection:
		applyBankSelection(in, prompts)
	case statex.StageAwaitingLoanTerm:
		applyLoanTerm(in, prompts)
	default:
		internalError(in, prompts, fmt.Errorf("event %s received at stage %q", in.Event.Kind, in.Session.Stage))
	}
	return in, nil
}

func applyIdle(in *GraphState, prompts *promptx.PromptSet) {
	if in.Event.Kind == contractx.EventText {
		in.Action = contractx.ErrorMessage(prompts.UnknownCommand,
			fmt.Errorf("%w: command %q", contractx.ErrUnknownSelection, in.Event.Text))
		return
	}

	brand, ok := catalog.ParseBrand(in.Event.Token)
	if !ok {
		in.Action = contractx.ErrorMessage(prompts.UnknownSelection,
			fmt.Errorf("%w: brand %q", contractx.ErrUnknownSelection, in.Event.Token))
		return
	}
	if err := in.Session.SelectBrand(brand, in.Now); err != nil {
		internalError(in, prompts, err)
		return
	}
	in.Action = contractx.Prompt(prompts.CarPrice, nil)
}

func applyCarPrice(in *GraphState, prompts *promptx.PromptSet) {
	if in.Event.Kind != contractx.EventText {
		rejectSelection(in, prompts, prompts.CarPrice)
		return
	}

	price, err := inputx.ParseAmount(in.Event.Text)
	if err == nil && price <= 0 {
		err = fmt.Errorf("car price must be positive, got %v", price)
	}
	if err != nil {
		in.Action = contractx.ErrorMessage(promptx.Reprompt(prompts.InvalidPrice, prompts.CarPrice),
			fmt.Errorf("%w: %w", contractx.ErrInputFormat, err))
		return
	}
	if err := in.Session.SetCarPrice(price, in.Now); err != nil {
		internalError(in, prompts, err)
		return
	}
	in.Action = contractx.Prompt(prompts.FirstPayment, nil)
}

func applyFirstPayment(in *GraphState, prompts *promptx.PromptSet) {
	if in.Event.Kind != contractx.EventText {
		rejectSelection(in, prompts, prompts.FirstPayment)
		return
	}

	payment, err := inputx.ParseAmount(in.Event.Text)
	if err == nil && payment < 0 {
		err = fmt.Errorf("first payment must not be negative, got %v", payment)
	}
	if err != nil {
		in.Action = contractx.ErrorMessage(promptx.Reprompt(prompts.InvalidPayment, prompts.FirstPayment),
			fmt.Errorf("%w: %w", contractx.ErrInputFormat, err))
		return
	}
	if err := in.Session.SetFirstPayment(payment, in.Now); err != nil {
		internalError(in, prompts, err)
		return
	}
	in.Action = contractx.Prompt(prompts.ChooseBank, prompts.BankMenu())
}

func applyBankSelection(in *GraphState, prompts *promptx.PromptSet) {
	var (
		b  catalog.Bank
		ok bool
	)
	if in.Event.Kind == contractx.EventSelection {
		b, ok = catalog.ParseBank(in.Event.Token)
	}
	if !ok {
		got := in.Event.Token
		if in.Event.Kind == contractx.EventText {
			got = in.Event.Text
		}
		in.Action = contractx.ErrorMessage(promptx.Reprompt(prompts.UnknownBank, prompts.ChooseBank),
			fmt.Errorf("%w: bank %q", contractx.ErrUnknownSelection, got)).
			WithMenu(prompts.BankMenu())
		return
	}
	if err := in.Session.SetBank(b, in.Now); err != nil {
		internalError(in, prompts, err)
		return
	}
	in.Action = contractx.Prompt(prompts.LoanTerm, nil)
}

func applyLoanTerm(in *GraphState, prompts *promptx.PromptSet) {
	if in.Event.Kind != contractx.EventText {
		rejectSelection(in, prompts, prompts.LoanTerm)
		return
	}

	months, err := inputx.ParseTerm(in.Event.Text)
	if err == nil && months <= 0 {
		err = fmt.Errorf("loan term must be positive, got %d", months)
	}
	if err != nil {
		in.Action = contractx.ErrorMessage(promptx.Reprompt(prompts.InvalidTerm, prompts.LoanTerm),
			fmt.Errorf("%w: %w", contractx.ErrInputFormat, err))
		return
	}
	if in.Session.Bank == "" {
		violatePrecondition(in, prompts.SelectBankFirst, errors.New("loan term entered without a bank"))
		return
	}
	if err := in.Session.SetLoanTerm(months, in.Now); err != nil {
		internalError(in, prompts, err)
		return
	}
	in.QuoteReady = true
}

func rejectSelection(in *GraphState, prompts *promptx.PromptSet, prompt string) {
	in.Action = contractx.ErrorMessage(promptx.Reprompt(prompts.UnknownSelection, prompt),
		fmt.Errorf("%w: %q while expecting text", contractx.ErrUnknownSelection, in.Event.Token))
}
