package flight

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tiiuae/patternflight/internal/types"
	"github.com/tiiuae/patternflight/internal/vehicle"
)

// SafetyGate holds the mission on the ground until the vehicle has a
// position lock and refuses to continue if it is not sitting at the launch
// height.
type SafetyGate struct {
	telemetry vehicle.Telemetry
	clock     Clock
	cfg       Config
	log       zerolog.Logger
	post      poster
}

func newSafetyGate(cfg Config, telemetry vehicle.Telemetry, clock Clock, log zerolog.Logger, post poster) *SafetyGate {
	return &SafetyGate{telemetry: telemetry, clock: clock, cfg: cfg, log: log, post: post}
}

// Check blocks until position lock and then validates the ground band.
func (g *SafetyGate) Check(ctx context.Context) error {
	for {
		s := g.telemetry.State()
		if s.PositionLock {
			break
		}
		g.log.Info().Msg("Vehicle is getting ready to arm, poor position lock")
		g.post.emit(types.TypePreflightStatus, types.PreflightStatus{PositionLock: false, Down: s.Down})
		if err := g.clock.Sleep(ctx, g.cfg.PreflightPoll); err != nil {
			return err
		}
	}

	s := g.telemetry.State()
	g.post.emit(types.TypePreflightStatus, types.PreflightStatus{PositionLock: true, Down: s.Down})
	if math.IsNaN(s.Down) || math.Abs(s.Down) > g.cfg.GroundBand {
		return errors.WithMessagef(ErrPreflightAbort, "vehicle is %.2f m from launch height, allowed %.2f m", s.Down, g.cfg.GroundBand)
	}
	g.log.Info().Float64("down", s.Down).Msg("Position lock acquired, vehicle on the ground")
	return nil
}
