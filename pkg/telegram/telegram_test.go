package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordedCall struct {
	path string
	body map[string]any
}

type fakeBotAPI struct {
	mu        sync.Mutex
	calls     []recordedCall
	responses map[string]string
}

func (f *fakeBotAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode body: %v", err)
		}

		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{path: r.URL.Path, body: body})
		f.mu.Unlock()

		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		resp, ok := f.responses[method]
		if !ok {
			resp = `{"ok":true,"result":true}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, resp)
	}
}

func (f *fakeBotAPI) callAt(t *testing.T, i int) recordedCall {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.calls) {
		t.Fatalf("call %d not recorded, have %d", i, len(f.calls))
	}
	return f.calls[i]
}

func newTestClient(t *testing.T, api *fakeBotAPI) *Client {
	t.Helper()

	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{URL: srv.URL, Token: "123:abc", Timeout: time.Second, PollTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{Token: " "}); !errors.Is(err, ErrTokenRequired) {
		t.Fatalf("NewClient() error = %v, want ErrTokenRequired", err)
	}
	if _, err := NewClient(Config{URL: "::bad", Token: "t"}); err == nil {
		t.Fatal("expected error for invalid url")
	}

	client, err := NewClient(Config{Token: "t", Timeout: time.Second, PollTimeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client.baseURL != defaultBaseURL {
		t.Fatalf("baseURL = %q", client.baseURL)
	}
	if client.httpClient.Timeout != 31*time.Second {
		t.Fatalf("http timeout = %v, want poll timeout plus request timeout", client.httpClient.Timeout)
	}
}

func TestGetUpdates(t *testing.T) {
	t.Parallel()

	api := &fakeBotAPI{responses: map[string]string{
		"getUpdates": `{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"chat":{"id":55},"text":"/start"}},
			{"update_id":11,"callback_query":{"id":"cb1","from":{"id":55},"message":{"message_id":2,"chat":{"id":55}},"data":"toyota"}}
		]}`,
	}}
	client := newTestClient(t, api)

	updates, err := client.GetUpdates(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetUpdates() error = %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("updates = %d, want 2", len(updates))
	}
	if updates[0].Message == nil || updates[0].Message.Text != "/start" || updates[0].Message.Chat.ID != 55 {
		t.Fatalf("first update = %+v", updates[0])
	}
	if cb := updates[1].CallbackQuery; cb == nil || cb.Data != "toyota" || cb.Message.Chat.ID != 55 {
		t.Fatalf("second update = %+v", updates[1])
	}

	call := api.callAt(t, 0)
	if call.path != "/bot123:abc/getUpdates" {
		t.Fatalf("path = %q", call.path)
	}
	if call.body["offset"] != float64(10) || call.body["timeout"] != float64(2) {
		t.Fatalf("body = %v", call.body)
	}
}

func TestSendMessageWithKeyboard(t *testing.T) {
	t.Parallel()

	api := &fakeBotAPI{}
	client := newTestClient(t, api)

	err := client.SendMessage(context.Background(), SendMessageRequest{
		ChatID: 55,
		Text:   "pick",
		ReplyMarkup: &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "A", CallbackData: "a"}, {Text: "B", CallbackData: "b"}},
		}},
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	body := api.callAt(t, 0).body
	if body["chat_id"] != float64(55) || body["text"] != "pick" {
		t.Fatalf("body = %v", body)
	}
	markup, ok := body["reply_markup"].(map[string]any)
	if !ok {
		t.Fatalf("reply_markup missing: %v", body)
	}
	rows, _ := markup["inline_keyboard"].([]any)
	if len(rows) != 1 || len(rows[0].([]any)) != 2 {
		t.Fatalf("inline_keyboard = %v", markup["inline_keyboard"])
	}
}

func TestAnswerCallbackQuery(t *testing.T) {
	t.Parallel()

	api := &fakeBotAPI{}
	client := newTestClient(t, api)

	if err := client.AnswerCallbackQuery(context.Background(), "cb1"); err != nil {
		t.Fatalf("AnswerCallbackQuery() error = %v", err)
	}
	if got := api.callAt(t, 0).body["callback_query_id"]; got != "cb1" {
		t.Fatalf("callback_query_id = %v", got)
	}
}

func TestAPIErrorIsReported(t *testing.T) {
	t.Parallel()

	api := &fakeBotAPI{responses: map[string]string{
		"sendMessage": `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`,
	}}
	client := newTestClient(t, api)

	err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: 1, Text: "x"})
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("SendMessage() error = %v, want ErrAPI", err)
	}
	if !strings.Contains(err.Error(), "blocked") {
		t.Fatalf("error = %v, want description", err)
	}
}

func TestTransportErrorHidesToken(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{URL: "http://127.0.0.1:1", Token: "secret-token", Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	err = client.SendMessage(context.Background(), SendMessageRequest{ChatID: 1, Text: "x"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("error leaks token: %v", err)
	}
}
