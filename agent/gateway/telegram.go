package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	contractx "github.com/tanpawarit/autocredit-bot/agent/contract"
	"github.com/tanpawarit/autocredit-bot/agent/journal"
	"github.com/tanpawarit/autocredit-bot/pkg/telegram"
)

const defaultRetryDelay = 3 * time.Second

// BotAPI is the part of the Telegram client the gateway needs.
type BotAPI interface {
	GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error)
	SendMessage(ctx context.Context, msg telegram.SendMessageRequest) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

type TelegramOption func(*TelegramGateway)

func WithRecorder(r Recorder) TelegramOption {
	return func(g *TelegramGateway) {
		if r != nil {
			g.recorder = r
		}
	}
}

func WithRetryDelay(d time.Duration) TelegramOption {
	return func(g *TelegramGateway) {
		if d > 0 {
			g.retryDelay = d
		}
	}
}

// TelegramGateway long-polls the Bot API and answers every update through
// the submitter. The chat id is the session key.
type TelegramGateway struct {
	bot        BotAPI
	submitter  Submitter
	recorder   Recorder
	retryDelay time.Duration
}

var _ Sender = (*TelegramGateway)(nil)

func NewTelegramGateway(bot BotAPI, submitter Submitter, opts ...TelegramOption) (*TelegramGateway, error) {
	if bot == nil {
		return nil, errors.New("telegram client is required")
	}
	if submitter == nil {
		return nil, errors.New("submitter is required")
	}

	g := &TelegramGateway{
		bot:        bot,
		submitter:  submitter,
		recorder:   journal.Noop{},
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Run polls until ctx is done.
func (g *TelegramGateway) Run(ctx context.Context) error {
	log.Info().Msg("telegram gateway polling")

	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := g.bot.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Dur("retry_in", g.retryDelay).Msg("telegram getUpdates failed")
			select {
			case <-time.After(g.retryDelay):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
		}
		g.HandleBatch(ctx, updates)
	}
}

type inbound struct {
	chatID     int64
	event      contractx.Event
	callbackID string
}

// HandleBatch processes one poll result. Chats run in parallel; updates of
// one chat keep their order.
func (g *TelegramGateway) HandleBatch(ctx context.Context, updates []telegram.Update) {
	byChat := make(map[int64][]inbound)
	var order []int64
	for _, u := range updates {
		in, ok := toInbound(u)
		if !ok {
			log.Debug().Int64("update_id", u.UpdateID).Msg("telegram update ignored")
			continue
		}
		if _, seen := byChat[in.chatID]; !seen {
			order = append(order, in.chatID)
		}
		byChat[in.chatID] = append(byChat[in.chatID], in)
	}

	var wg conc.WaitGroup
	for _, chatID := range order {
		items := byChat[chatID]
		wg.Go(func() {
			for _, in := range items {
				_ = g.handle(ctx, in)
			}
		})
	}
	wg.Wait()
}

func (g *TelegramGateway) handle(ctx context.Context, in inbound) error {
	if in.callbackID != "" {
		if err := g.bot.AnswerCallbackQuery(ctx, in.callbackID); err != nil {
			log.Warn().Err(err).Int64("chat_id", in.chatID).Msg("answer callback query")
		}
	}

	action, err := g.submitter.Submit(ctx, in.chatID, in.event)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", in.chatID).Msg("dialogue event failed")
		return err
	}

	if action.Kind == contractx.ActionQuote && action.Quote != nil {
		if err := g.recorder.Record(ctx, in.chatID, *action.Quote); err != nil {
			log.Warn().Err(err).Int64("chat_id", in.chatID).Msg("record quote")
		}
	}
	return g.Send(ctx, in.chatID, action)
}

// Send delivers action as a message, attaching its menu as an inline
// keyboard. Failures are logged and returned.
func (g *TelegramGateway) Send(ctx context.Context, chatID int64, action contractx.Action) error {
	msg := telegram.SendMessageRequest{
		ChatID:      chatID,
		Text:        action.Text,
		ReplyMarkup: keyboard(action.Menu),
	}
	if err := g.bot.SendMessage(ctx, msg); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Str("action", string(action.Kind)).Msg("deliver action")
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return nil
}

func toInbound(u telegram.Update) (inbound, bool) {
	switch {
	case u.CallbackQuery != nil:
		cb := u.CallbackQuery
		chatID := cb.From.ID
		if cb.Message != nil {
			chatID = cb.Message.Chat.ID
		}
		if chatID == 0 {
			return inbound{}, false
		}
		return inbound{chatID: chatID, event: contractx.Selection(cb.Data), callbackID: cb.ID}, true
	case u.Message != nil && u.Message.Text != "":
		return inbound{chatID: u.Message.Chat.ID, event: contractx.TextInput(u.Message.Text)}, u.Message.Chat.ID != 0
	default:
		return inbound{}, false
	}
}

func keyboard(menu contractx.Menu) *telegram.InlineKeyboardMarkup {
	if len(menu) == 0 {
		return nil
	}
	rows := make([][]telegram.InlineKeyboardButton, 0, len(menu))
	for _, row := range menu {
		buttons := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, telegram.InlineKeyboardButton{Text: b.Label, CallbackData: b.Token})
		}
		rows = append(rows, buttons)
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}
