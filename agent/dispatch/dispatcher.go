// Package dispatch serializes events per user while handling different
// users in parallel.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	contractx "github.com/tanpawarit/autocredit-bot/agent/contract"
)

const (
	defaultShards    = 8
	defaultQueueSize = 64
)

var (
	ErrClosed        = errors.New("dispatcher is closed")
	ErrHandlerPanic  = errors.New("event handler panicked")
	ErrHandlerNeeded = errors.New("event handler is required")
)

// Handler processes one event for one user.
type Handler interface {
	HandleEvent(ctx context.Context, userID int64, ev contractx.Event) (contractx.Action, error)
}

type Option func(*Dispatcher)

func WithShards(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.shardCount = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.queueSize = n
		}
	}
}

type result struct {
	action contractx.Action
	err    error
}

type job struct {
	ctx    context.Context
	userID int64
	event  contractx.Event
	reply  chan result
}

// Dispatcher routes every event of a user to the same shard. Each shard is
// drained by a single worker, in arrival order.
type Dispatcher struct {
	handler    Handler
	shardCount int
	queueSize  int

	shards []chan job
	wg     conc.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func New(handler Handler, opts ...Option) (*Dispatcher, error) {
	if handler == nil {
		return nil, ErrHandlerNeeded
	}

	d := &Dispatcher{
		handler:    handler,
		shardCount: defaultShards,
		queueSize:  defaultQueueSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	d.shards = make([]chan job, d.shardCount)
	for i := range d.shards {
		queue := make(chan job, d.queueSize)
		d.shards[i] = queue
		d.wg.Go(func() { d.work(queue) })
	}
	log.Debug().Int("shards", d.shardCount).Int("queue", d.queueSize).Msg("dispatcher started")
	return d, nil
}

// Submit queues ev for userID and waits for the handler's answer.
func (d *Dispatcher) Submit(ctx context.Context, userID int64, ev contractx.Event) (contractx.Action, error) {
	reply := make(chan result, 1)
	j := job{ctx: ctx, userID: userID, event: ev, reply: reply}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return contractx.Action{}, ErrClosed
	}
	select {
	case d.shards[d.shardFor(userID)] <- j:
		d.mu.RUnlock()
	case <-ctx.Done():
		d.mu.RUnlock()
		return contractx.Action{}, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.action, r.err
	case <-ctx.Done():
		return contractx.Action{}, ctx.Err()
	}
}

// Close stops accepting events, drains queued ones and waits for workers.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for _, queue := range d.shards {
		close(queue)
	}
	d.mu.Unlock()

	d.wg.Wait()
	return nil
}

func (d *Dispatcher) shardFor(userID int64) int {
	return int(uint64(userID) % uint64(len(d.shards)))
}

func (d *Dispatcher) work(queue <-chan job) {
	for j := range queue {
		j.reply <- d.handle(j)
	}
}

func (d *Dispatcher) handle(j job) result {
	if err := j.ctx.Err(); err != nil {
		return result{err: err}
	}

	var (
		r  result
		pc panics.Catcher
	)
	pc.Try(func() {
		action, err := d.handler.HandleEvent(j.ctx, j.userID, j.event)
		r = result{action: action, err: err}
	})
	if rec := pc.Recovered(); rec != nil {
		log.Error().
			Int64("user_id", j.userID).
			Str("panic", fmt.Sprint(rec.Value)).
			Msg("event handler panicked")
		return result{err: fmt.Errorf("%w: %w", ErrHandlerPanic, rec.AsError())}
	}
	return r
}
