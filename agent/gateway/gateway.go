// Package gateway connects messaging transports to the dialogue dispatcher.
package gateway

import (
	"context"

	contractx "github.com/tanpawarit/autocredit-bot/agent/contract"
	"github.com/tanpawarit/autocredit-bot/agent/journal"
)

// Submitter hands an event to the dialogue and waits for its action.
type Submitter interface {
	Submit(ctx context.Context, userID int64, ev contractx.Event) (contractx.Action, error)
}

// Sender delivers an action to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, action contractx.Action) error
}

// Recorder stores produced quotes.
type Recorder interface {
	Record(ctx context.Context, userID int64, q contractx.QuoteSummary) error
}

// History lists a user's recorded quotes.
type History interface {
	Recent(ctx context.Context, userID int64, limit int) ([]journal.QuoteRecord, error)
}

var (
	_ Recorder = journal.Noop{}
	_ History  = journal.Noop{}
)
