package flight

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tiiuae/patternflight/internal/types"
)

// controller applies remote commands from the bus to the running mission.
type controller struct {
	operator *Operator
	plan     *Plan
	inbox    *types.Inbox
	log      zerolog.Logger
}

func NewController(operator *Operator, plan *Plan, log zerolog.Logger) types.MessageHandler {
	log = log.With().Str("component", "controller").Logger()
	return &controller{operator, plan, types.NewInbox(10, log), log}
}

func (c *controller) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case <-ctx.Done():
				c.log.Debug().Msg("Controller shutting down")
				return
			case msg := <-c.inbox.C:
				c.handleMessage(msg)
			}
		}
	}()
}

func (c *controller) Receive(message types.Message) {
	c.inbox.Deliver(message)
}

func (c *controller) handleMessage(msg types.Message) {
	switch m := msg.Message.(type) {
	case types.ConfirmCycle:
		if !c.operator.TryConfirm(m.Source) {
			c.log.Warn().Str("source", m.Source).Msg("No cycle awaiting confirmation")
		}
	case types.PatternUpdate:
		if err := c.plan.SetDimension(m.Dimension); err != nil {
			c.log.Warn().Err(err).Msg("Pattern update rejected")
			return
		}
		c.log.Info().Float64("dimension", m.Dimension).Msg("Pattern updated, applies from next cycle")
	}
}
