// Package dialogue drives the per-user car loan conversation.
package dialogue

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/autocredit-bot/agent/contract"
	nodex "github.com/tanpawarit/autocredit-bot/agent/nodes"
	promptx "github.com/tanpawarit/autocredit-bot/agent/prompt"
	statex "github.com/tanpawarit/autocredit-bot/agent/state"
)

type Controller struct {
	store      statex.Store
	strategies contractx.StrategyResolver
	prompts    *promptx.PromptSet

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func New(
	store statex.Store,
	strategies contractx.StrategyResolver,
	prompts *promptx.PromptSet,
	opts ...Option,
) (*Controller, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if strategies == nil {
		return nil, errors.New("strategy resolver is required")
	}
	if prompts == nil {
		return nil, errors.New("prompt set is required")
	}

	c := &Controller{
		store:      store,
		strategies: strategies,
		prompts:    prompts,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	graphRunner, err := c.compileHandleEventGraph(context.Background())
	if err != nil {
		return nil, err
	}
	c.graphRunner = graphRunner

	return c, nil
}

// HandleEvent advances userID's dialogue by one event. Dialogue failures are
// reported as error actions; the returned error is reserved for malformed
// calls. Events of one user must not be handled concurrently.
func (c *Controller) HandleEvent(ctx context.Context, userID int64, ev contractx.Event) (contractx.Action, error) {
	out, err := c.graphRunner.Invoke(ctx, nodex.GraphInput{
		UserID: userID,
		Event:  ev,
	})
	if err != nil {
		return contractx.Action{}, err
	}
	return out.Action, nil
}
