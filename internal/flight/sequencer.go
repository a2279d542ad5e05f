package flight

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tiiuae/patternflight/internal/types"
	"github.com/tiiuae/patternflight/internal/vehicle"
)

// Gate blocks until the next cycle may start.
type Gate interface {
	Wait(ctx context.Context) error
}

// Sequencer flies the pattern cycle after cycle until the context ends or
// the abort signal fires.
type Sequencer struct {
	offboard vehicle.Offboard
	session  *Session
	abort    *AbortSignal
	plan     *Plan
	battery  *BatteryGuard
	gate     Gate
	clock    Clock
	cfg      Config
	log      zerolog.Logger
	post     poster

	cycle int
	last  vehicle.Waypoint
}

// issue sends one position setpoint. Nothing is sent after an abort or
// outside an active offboard session.
func (s *Sequencer) issue(label string, w vehicle.Waypoint) error {
	if s.abort.Triggered() {
		return ErrAborted
	}
	if state := s.session.State(); state != SessionActive {
		return errors.WithMessagef(ErrOffboardInactive, "session is %s", state)
	}
	if err := s.offboard.SetPosition(w); err != nil {
		return errors.Wrapf(err, "set position %s", label)
	}
	s.last = w
	s.post.emit(types.TypeWaypointIssued, types.WaypointIssued{
		Cycle: s.cycle, Label: label,
		North: w.North, East: w.East, Down: w.Down, Yaw: w.Yaw,
	})
	return nil
}

func (s *Sequencer) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			return err
		}
	}
}

func (s *Sequencer) runCycle(ctx context.Context) error {
	s.cycle++
	started := s.clock.Now()
	p := s.plan.Current()
	center := p.Center()
	log := s.log.With().Int("cycle", s.cycle).Logger()

	log.Info().Float64("altitude", p.Altitude).Float64("dimension", p.Dimension).Msg("Cycle started")
	s.post.emit(types.TypeCycleStarted, types.CycleStarted{Cycle: s.cycle, Altitude: p.Altitude, Dimension: p.Dimension})

	log.Info().Msg("Heading to center")
	if err := s.issue("Center", center); err != nil {
		return err
	}
	if err := s.clock.Sleep(ctx, s.cfg.CenterHold); err != nil {
		return err
	}

	if _, err := s.battery.Wait(ctx, func() error { return s.issue("Hold", s.last) }); err != nil {
		return err
	}

	log.Info().Msg("Waiting for operator to start the cycle")
	s.post.emit(types.TypeAwaitingOperator, types.AwaitingOperator{Cycle: s.cycle})
	if err := s.gate.Wait(ctx); err != nil {
		return err
	}

	for _, leg := range p.Traversal() {
		log.Info().Stringer("waypoint", leg.Waypoint).Msgf("Heading to %s...", leg.Label)
		if err := s.issue(leg.Label, leg.Waypoint); err != nil {
			return err
		}
		if err := s.clock.Sleep(ctx, s.cfg.LegDwell); err != nil {
			return err
		}
	}

	log.Info().Msg("Heading back to center")
	if err := s.issue("Center", center); err != nil {
		return err
	}
	log.Info().Dur("elapsed", s.clock.Now().Sub(started)).Msg("Cycle complete")
	return nil
}
