package state

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
)

// Store is the session contract used by the dialogue controller.
// Get never fails: an unknown or expired user reads as a fresh idle session.
type Store interface {
	Get(userID int64) Session
	Put(userID int64, s Session)
	Remove(userID int64)
}

// StoreOption customizes MemoryStore.
type StoreOption func(*MemoryStore)

// WithTTL drops sessions that have not been updated for ttl.
// A zero or negative ttl keeps sessions until they are removed.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// MemoryStore keeps sessions in process memory. Values are copied on the
// way in and out, so callers never share pointers with the map.
type MemoryStore struct {
	sessions *xsync.MapOf[int64, Session]
	ttl      time.Duration
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions: xsync.NewMapOf[int64, Session](),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Get(userID int64) Session {
	now := s.now()
	st, ok := s.sessions.Load(userID)
	if !ok || s.expired(st, now) {
		return NewSession(userID, now)
	}
	return st.Clone()
}

func (s *MemoryStore) Put(userID int64, st Session) {
	st = st.Clone()
	st.UserID = userID
	if st.UpdatedAt.IsZero() {
		st.Touch(s.now())
	}
	s.sessions.Store(userID, st)
}

func (s *MemoryStore) Remove(userID int64) {
	s.sessions.Delete(userID)
}

func (s *MemoryStore) Len() int {
	return s.sessions.Size()
}

// Sweep removes every session idle for longer than the TTL and returns how
// many were dropped. A session refreshed between the scan and the delete
// is kept.
func (s *MemoryStore) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}

	var stale []int64
	s.sessions.Range(func(userID int64, st Session) bool {
		if s.expired(st, now) {
			stale = append(stale, userID)
		}
		return true
	})

	removed := 0
	for _, userID := range stale {
		s.sessions.Compute(userID, func(st Session, loaded bool) (Session, bool) {
			drop := loaded && s.expired(st, now)
			if drop {
				removed++
			}
			return st, drop || !loaded
		})
	}
	return removed
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info().Dur("interval", interval).Dur("ttl", s.ttl).Msg("session janitor started")

	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				log.Debug().Int("removed", n).Int("active", s.Len()).Msg("expired sessions swept")
			}
		case <-ctx.Done():
			log.Info().Err(ctx.Err()).Msg("session janitor stopped")
			return
		}
	}
}

func (s *MemoryStore) expired(st Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(st.UpdatedAt) > s.ttl
}
