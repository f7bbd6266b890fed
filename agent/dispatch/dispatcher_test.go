package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	contractx "github.com/tanpawarit/autocredit-bot/agent/contract"
)

// recordingHandler tracks how many events per user are in flight at once.
type recordingHandler struct {
	mu       sync.Mutex
	inFlight map[int64]int
	overlap  atomic.Bool
	seen     map[int64][]string
	delay    time.Duration
	panicOn  string
}

func newRecordingHandler(delay time.Duration) *recordingHandler {
	return &recordingHandler{
		inFlight: map[int64]int{},
		seen:     map[int64][]string{},
		delay:    delay,
	}
}

func (h *recordingHandler) HandleEvent(ctx context.Context, userID int64, ev contractx.Event) (contractx.Action, error) {
	if ev.Text == h.panicOn && h.panicOn != "" {
		panic("boom")
	}

	h.mu.Lock()
	h.inFlight[userID]++
	if h.inFlight[userID] > 1 {
		h.overlap.Store(true)
	}
	h.seen[userID] = append(h.seen[userID], ev.Text)
	h.mu.Unlock()

	time.Sleep(h.delay)

	h.mu.Lock()
	h.inFlight[userID]--
	h.mu.Unlock()
	return contractx.Prompt("ok:"+ev.Text, nil), nil
}

func TestNewRequiresHandler(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); !errors.Is(err, ErrHandlerNeeded) {
		t.Fatalf("New(nil) error = %v, want ErrHandlerNeeded", err)
	}
}

func TestSubmitReturnsHandlerAction(t *testing.T) {
	t.Parallel()

	d, err := New(newRecordingHandler(0), WithShards(2), WithQueueSize(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	action, err := d.Submit(context.Background(), 5, contractx.TextInput("hi"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if action.Text != "ok:hi" {
		t.Fatalf("Submit() text = %q", action.Text)
	}
}

func TestSubmitSerializesPerUser(t *testing.T) {
	t.Parallel()

	h := newRecordingHandler(time.Millisecond)
	d, err := New(h, WithShards(4))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var wg sync.WaitGroup
	for userID := int64(-3); userID <= 3; userID++ {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(userID int64) {
				defer wg.Done()
				if _, err := d.Submit(context.Background(), userID, contractx.TextInput("x")); err != nil {
					t.Errorf("Submit() error = %v", err)
				}
			}(userID)
		}
	}
	wg.Wait()
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if h.overlap.Load() {
		t.Fatal("events of one user were handled concurrently")
	}
	for userID := int64(-3); userID <= 3; userID++ {
		if got := len(h.seen[userID]); got != 5 {
			t.Fatalf("user %d handled %d events, want 5", userID, got)
		}
	}
}

func TestSubmitKeepsArrivalOrder(t *testing.T) {
	t.Parallel()

	h := newRecordingHandler(0)
	d, err := New(h, WithShards(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	for _, text := range []string{"a", "b", "c"} {
		if _, err := d.Submit(context.Background(), 1, contractx.TextInput(text)); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if got := h.seen[1]; len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("handled order = %v", got)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	t.Parallel()

	d, err := New(newRecordingHandler(0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if _, err := d.Submit(context.Background(), 1, contractx.TextInput("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("Submit() error = %v, want ErrClosed", err)
	}
}

func TestSubmitCanceledContext(t *testing.T) {
	t.Parallel()

	d, err := New(newRecordingHandler(0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Submit(ctx, 1, contractx.TextInput("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("Submit() error = %v, want context.Canceled", err)
	}
}

func TestHandlerPanicIsReturnedAsError(t *testing.T) {
	t.Parallel()

	h := newRecordingHandler(0)
	h.panicOn = "explode"
	d, err := New(h, WithShards(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Close()

	if _, err := d.Submit(context.Background(), 1, contractx.TextInput("explode")); !errors.Is(err, ErrHandlerPanic) {
		t.Fatalf("Submit() error = %v, want ErrHandlerPanic", err)
	}

	// the shard keeps serving after a panic
	action, err := d.Submit(context.Background(), 1, contractx.TextInput("next"))
	if err != nil || action.Text != "ok:next" {
		t.Fatalf("Submit() after panic = %+v, %v", action, err)
	}
}
