package contract

import (
	"fmt"

	"github.com/tanpawarit/autocredit-bot/agent/catalog"
)

type EventKind string

const (
	EventText      EventKind = "text"
	EventSelection EventKind = "selection"
)

// Event is one inbound user interaction: free text or a menu selection.
type Event struct {
	Kind  EventKind `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Token string    `json:"token,omitempty"`
}

func TextInput(text string) Event {
	return Event{Kind: EventText, Text: text}
}

func Selection(token string) Event {
	return Event{Kind: EventSelection, Token: token}
}

func (e Event) Validate() error {
	switch e.Kind {
	case EventText, EventSelection:
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
}

type ActionKind string

const (
	ActionPrompt ActionKind = "prompt"
	ActionError  ActionKind = "error"
	ActionQuote  ActionKind = "quote"
)

type Button struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Menu is an ordered list of button rows.
type Menu [][]Button

// Action is what the bot sends back for one event.
type Action struct {
	Kind  ActionKind    `json:"kind"`
	Text  string        `json:"text"`
	Menu  Menu          `json:"menu,omitempty"`
	Quote *QuoteSummary `json:"quote,omitempty"`

	// Err carries the classified failure behind an error action.
	Err error `json:"-"`
}

// QuoteSummary is the data a successful quote was computed from.
type QuoteSummary struct {
	Brand              catalog.Brand `json:"brand,omitempty"`
	Bank               catalog.Bank  `json:"bank"`
	CarPrice           float64       `json:"car_price"`
	FirstPayment       float64       `json:"first_payment"`
	DownPaymentPercent float64       `json:"down_payment_percent"`
	TermMonths         int           `json:"term_months"`
	Quote              string        `json:"quote"`
}

func Prompt(text string, menu Menu) Action {
	return Action{Kind: ActionPrompt, Text: text, Menu: menu}
}

func ErrorMessage(text string, err error) Action {
	return Action{Kind: ActionError, Text: text, Err: err}
}

func QuoteResult(text string, summary QuoteSummary) Action {
	return Action{Kind: ActionQuote, Text: text, Quote: &summary}
}

// WithMenu returns a copy of a with menu attached.
func (a Action) WithMenu(menu Menu) Action {
	a.Menu = menu
	return a
}
