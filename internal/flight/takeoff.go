package flight

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tiiuae/patternflight/internal/types"
	"github.com/tiiuae/patternflight/internal/vehicle"
)

// TakeoffSupervisor arms the vehicle, commands takeoff and waits for the
// climb to reach the target altitude.
type TakeoffSupervisor struct {
	telemetry vehicle.Telemetry
	action    vehicle.Action
	clock     Clock
	cfg       Config
	log       zerolog.Logger
	post      poster
}

func newTakeoffSupervisor(cfg Config, telemetry vehicle.Telemetry, action vehicle.Action, clock Clock, log zerolog.Logger, post poster) *TakeoffSupervisor {
	return &TakeoffSupervisor{telemetry, action, clock, cfg, log, post}
}

func (t *TakeoffSupervisor) Run(ctx context.Context, altitude float64) error {
	if err := t.action.SetTakeoffAltitude(ctx, altitude); err != nil {
		return errors.WithMessagef(ErrCommandRejected, "set takeoff altitude %.2f m: %v", altitude, err)
	}
	t.log.Info().Msg("Arming...")
	if err := t.action.Arm(ctx); err != nil {
		return errors.WithMessage(ErrArmRejected, err.Error())
	}
	t.log.Info().Float64("altitude", altitude).Msg("Taking off...")
	if err := t.action.Takeoff(ctx); err != nil {
		return errors.WithMessage(ErrTakeoffRejected, err.Error())
	}

	for {
		s := t.telemetry.State()
		remaining := altitude + s.Down
		if remaining <= t.cfg.ClimbTolerance {
			break
		}
		t.log.Info().Float64("altitude", s.Altitude()).Float64("remaining", remaining).Msg("Climbing")
		t.post.emit(types.TypeClimbProgress, types.ClimbProgress{Altitude: s.Altitude(), Remaining: remaining})
		if err := t.clock.Sleep(ctx, t.cfg.ClimbPoll); err != nil {
			return err
		}
	}

	t.log.Info().Dur("settle", t.cfg.Settle).Msg("Takeoff altitude reached, settling")
	return t.clock.Sleep(ctx, t.cfg.Settle)
}
