package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tanpawarit/autocredit-bot/agent/catalog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStoreGetReturnsIdleForUnknownUser(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	st := store.Get(7)
	if st.UserID != 7 || st.Stage != StageIdle {
		t.Fatalf("Get() = %+v, want idle session for user 7", st)
	}
	if store.Len() != 0 {
		t.Fatalf("Get() must not create entries, len = %d", store.Len())
	}
}

func TestMemoryStorePutGetRemove(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	st := NewSession(0, testNow)
	if err := st.SelectBrand(catalog.BrandToyota, testNow); err != nil {
		t.Fatalf("SelectBrand() error = %v", err)
	}
	store.Put(9, st)

	got := store.Get(9)
	if got.UserID != 9 || got.Stage != StageAwaitingCarPrice || got.Brand != catalog.BrandToyota {
		t.Fatalf("Get() = %+v", got)
	}

	store.Remove(9)
	if got := store.Get(9); got.Stage != StageIdle || got.Brand != "" {
		t.Fatalf("Get() after Remove() = %+v, want idle", got)
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	st := completeSession(t)
	store.Put(1, st)

	*st.CarPrice = 1
	got := store.Get(1)
	if *got.CarPrice != 15000 {
		t.Fatalf("stored car price = %v, want 15000", *got.CarPrice)
	}

	*got.CarPrice = 2
	if again := store.Get(1); *again.CarPrice != 15000 {
		t.Fatalf("Get() leaked a pointer into the store: %v", *again.CarPrice)
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: testNow}
	store := NewMemoryStore(WithTTL(time.Hour), WithClock(clock.Now))

	fresh := NewSession(1, testNow)
	stale := NewSession(2, testNow.Add(-2*time.Hour))
	store.Put(1, fresh)
	store.Put(2, stale)

	if got := store.Get(2); got.UpdatedAt.Equal(stale.UpdatedAt) {
		t.Fatal("expired session should read as a new idle session")
	}

	if n := store.Sweep(clock.Now()); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", store.Len())
	}

	clock.Advance(2 * time.Hour)
	if n := store.Sweep(clock.Now()); n != 1 {
		t.Fatalf("second Sweep() = %d, want 1", n)
	}
	if store.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", store.Len())
	}
}

func TestMemoryStoreSweepWithoutTTL(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	store.Put(1, NewSession(1, testNow.Add(-1000*time.Hour)))
	if n := store.Sweep(testNow); n != 0 {
		t.Fatalf("Sweep() = %d, want 0", n)
	}
}

func TestRunJanitorStopsOnCancel(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: testNow}
	store := NewMemoryStore(WithTTL(time.Minute), WithClock(clock.Now))
	store.Put(1, NewSession(1, testNow.Add(-time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("janitor did not sweep the expired session")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunJanitor() did not return after cancel")
	}
}

func TestMemoryStoreConcurrentDisjointUsers(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := int64(1); i <= 32; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			st := store.Get(userID)
			if err := st.SelectBrand(catalog.BrandMG, testNow); err != nil {
				t.Errorf("SelectBrand() error = %v", err)
				return
			}
			store.Put(userID, st)
		}(i)
	}
	wg.Wait()

	if store.Len() != 32 {
		t.Fatalf("Len() = %d, want 32", store.Len())
	}
	for i := int64(1); i <= 32; i++ {
		if got := store.Get(i); got.Stage != StageAwaitingCarPrice {
			t.Fatalf("user %d stage = %s", i, got.Stage)
		}
	}
}
