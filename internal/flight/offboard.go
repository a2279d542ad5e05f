package flight

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tiiuae/patternflight/internal/types"
	"github.com/tiiuae/patternflight/internal/vehicle"
)

// Negotiator moves the vehicle into offboard mode with a bounded number of
// attempts. Each attempt primes the setpoint stream with a zero velocity
// before requesting the mode change.
type Negotiator struct {
	offboard vehicle.Offboard
	session  *Session
	abort    *AbortSignal
	clock    Clock
	cfg      Config
	log      zerolog.Logger
	post     poster
}

func newNegotiator(cfg Config, offboard vehicle.Offboard, session *Session, abort *AbortSignal, clock Clock, log zerolog.Logger, post poster) *Negotiator {
	return &Negotiator{offboard, session, abort, clock, cfg, log, post}
}

func (n *Negotiator) Run(ctx context.Context) error {
	n.session.set(SessionNegotiating)
	for remaining := n.cfg.OffboardAttempts; remaining > 0; remaining-- {
		if n.abort.Triggered() {
			return ErrAborted
		}
		attempt := n.session.attempt()

		err := n.offboard.SetVelocity(vehicle.VelocityNedYaw{})
		if err == nil {
			err = n.offboard.Start(ctx)
		}
		if err == nil {
			n.session.set(SessionActive)
			n.log.Info().Int("attempt", attempt).Msg("Offboard started")
			n.post.emit(types.TypeOffboardAttempt, types.OffboardAttempt{Attempt: attempt, Success: true})
			return nil
		}

		n.log.Warn().Err(err).Int("attempt", attempt).Msg("Offboard start failed")
		n.post.emit(types.TypeOffboardAttempt, types.OffboardAttempt{Attempt: attempt, Error: err.Error()})
		if err := n.clock.Sleep(ctx, n.cfg.OffboardBackoff); err != nil {
			return err
		}
	}

	n.session.set(SessionFailed)
	return errors.WithMessagef(ErrOffboardUnavailable, "gave up after %d attempts", n.session.Attempts())
}
