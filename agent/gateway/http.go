package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/autocredit-bot/agent/contract"
	"github.com/tanpawarit/autocredit-bot/agent/dispatch"
	"github.com/tanpawarit/autocredit-bot/agent/journal"
)

const maxRequestBodyBytes = 64 << 10

// EventRequest is the webhook payload. Exactly one of Text and
// CallbackData must be set.
type EventRequest struct {
	ChatID       int64   `json:"chat_id"`
	Text         *string `json:"text,omitempty"`
	CallbackData *string `json:"callback_data,omitempty"`
}

type EventResponse struct {
	ChatID int64            `json:"chat_id"`
	Action contractx.Action `json:"action"`
}

type QuotesResponse struct {
	ChatID int64                 `json:"chat_id"`
	Quotes []journal.QuoteRecord `json:"quotes"`
}

var errBadEvent = errors.New("exactly one of text and callback_data is required")

func (r EventRequest) event() (contractx.Event, error) {
	switch {
	case r.ChatID == 0:
		return contractx.Event{}, errors.New("chat_id is required")
	case r.Text != nil && r.CallbackData == nil:
		return contractx.TextInput(*r.Text), nil
	case r.CallbackData != nil && r.Text == nil:
		return contractx.Selection(*r.CallbackData), nil
	default:
		return contractx.Event{}, errBadEvent
	}
}

// WebhookHandler exposes the dialogue over plain HTTP.
type WebhookHandler struct {
	submitter Submitter
	recorder  Recorder
	history   History
}

func NewWebhookHandler(submitter Submitter, recorder Recorder, history History) (*WebhookHandler, error) {
	if submitter == nil {
		return nil, errors.New("submitter is required")
	}
	if recorder == nil {
		recorder = journal.Noop{}
	}
	if history == nil {
		history = journal.Noop{}
	}
	return &WebhookHandler{submitter: submitter, recorder: recorder, history: history}, nil
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", h.PostEvent)
		r.Get("/chats/{chatID}/quotes", h.GetQuotes)
	})
}

// NewRouter builds the HTTP surface with request logging and a /health probe.
func NewRouter(h *WebhookHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", chiMiddleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("http request")
	}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	h.RegisterRoutes(r)
	return r
}

func (h *WebhookHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}

	var req EventRequest
	if err := sonic.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	ev, err := req.event()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	action, err := h.submitter.Submit(r.Context(), req.ChatID, ev)
	if err != nil {
		status := statusFor(err)
		hlog.FromRequest(r).Error().Err(err).Int64("chat_id", req.ChatID).Msg("dialogue event failed")
		writeError(w, status, http.StatusText(status))
		return
	}

	if action.Kind == contractx.ActionQuote && action.Quote != nil {
		if err := h.recorder.Record(r.Context(), req.ChatID, *action.Quote); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Int64("chat_id", req.ChatID).Msg("record quote")
		}
	}

	writeJSON(w, http.StatusOK, EventResponse{ChatID: req.ChatID, Action: action})
}

func (h *WebhookHandler) GetQuotes(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil || chatID == 0 {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	quotes, err := h.history.Recent(r.Context(), chatID, limit)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Int64("chat_id", chatID).Msg("list quotes")
		writeError(w, http.StatusInternalServerError, "list quotes failed")
		return
	}
	if quotes == nil {
		quotes = []journal.QuoteRecord{}
	}
	writeJSON(w, http.StatusOK, QuotesResponse{ChatID: chatID, Quotes: quotes})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contractx.ErrInvalidUser), errors.Is(err, contractx.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, dispatch.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
