package flight

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tiiuae/patternflight/internal/types"
	"github.com/tiiuae/patternflight/internal/vehicle"
)

type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

const (
	PhasePreflight = "preflight"
	PhaseTakeoff   = "takeoff"
	PhaseOffboard  = "offboard"
	PhasePattern   = "pattern"
)

// Dependencies are the collaborators a mission drives.
type Dependencies struct {
	Telemetry vehicle.Telemetry
	Action    vehicle.Action
	Offboard  vehicle.Offboard
	Messages  vehicle.MessageSubscriber
	Gate      Gate
	Plan      *Plan
	Clock     Clock
	Log       zerolog.Logger
	Post      types.PostFn
	DeviceID  string
}

// Mission runs preflight, takeoff, offboard negotiation and the pattern
// loop in order. It can run only once.
type Mission struct {
	cfg     Config
	deps    Dependencies
	abort   *AbortSignal
	session *Session
	phase   string
	log     zerolog.Logger
	post    poster
}

func NewMission(cfg Config, deps Dependencies) *Mission {
	if deps.Clock == nil {
		deps.Clock = NewClock()
	}
	return &Mission{
		cfg:     cfg,
		deps:    deps,
		abort:   NewAbortSignal(),
		session: &Session{},
		log:     deps.Log.With().Str("component", "mission").Logger(),
		post:    poster{deps.Post, deps.DeviceID},
	}
}

func (m *Mission) Abort() *AbortSignal {
	return m.abort
}

func (m *Mission) Session() *Session {
	return m.session
}

// Run flies the mission until it fails, the context ends or the vehicle is
// taken over. A takeover yields OutcomeCancelled with ErrAborted.
func (m *Mission) Run(ctx context.Context) (Outcome, error) {
	stop := ListenForTakeover(m.deps.Messages, m.cfg.ManualTakeover, m.abort, m.log)
	defer stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-m.abort.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	err := m.run(runCtx)
	switch {
	case m.abort.Triggered():
		reason := m.abort.Reason()
		m.log.Warn().Str("phase", m.phase).Str("reason", reason).Msg("Mission aborted")
		m.post.emit(types.TypeMissionAborted, types.MissionAborted{Reason: reason})
		return OutcomeCancelled, errors.WithMessage(ErrAborted, reason)
	case ctx.Err() != nil:
		m.log.Info().Str("phase", m.phase).Msg("Mission cancelled")
		return OutcomeCancelled, ctx.Err()
	case err != nil:
		m.log.Error().Err(err).Str("phase", m.phase).Msg("Mission failed")
		m.post.emit(types.TypeMissionFailed, types.MissionFailed{Phase: m.phase, Error: err.Error()})
		return OutcomeFailed, err
	}
	return OutcomeCompleted, nil
}

func (m *Mission) setPhase(phase string) {
	m.phase = phase
	m.log.Info().Str("phase", phase).Msg("Phase changed")
	m.post.emit(types.TypePhaseChanged, types.PhaseChanged{Phase: phase})
}

func (m *Mission) run(ctx context.Context) error {
	d := m.deps
	clock := abortClock{d.Clock, m.abort}

	m.setPhase(PhasePreflight)
	if err := d.Telemetry.SetUpdateRate(ctx, m.cfg.TelemetryRateHz); err != nil {
		return errors.WithMessagef(ErrTelemetryRate, "%.2f Hz: %v", m.cfg.TelemetryRateHz, err)
	}
	gate := newSafetyGate(m.cfg, d.Telemetry, clock, m.log, m.post)
	if err := gate.Check(ctx); err != nil {
		return err
	}

	m.setPhase(PhaseTakeoff)
	takeoff := newTakeoffSupervisor(m.cfg, d.Telemetry, d.Action, clock, m.log, m.post)
	if err := takeoff.Run(ctx, d.Plan.Current().Altitude); err != nil {
		return err
	}

	m.setPhase(PhaseOffboard)
	negotiator := newNegotiator(m.cfg, d.Offboard, m.session, m.abort, clock, m.log, m.post)
	if err := negotiator.Run(ctx); err != nil {
		return err
	}

	m.setPhase(PhasePattern)
	sequencer := &Sequencer{
		offboard: d.Offboard,
		session:  m.session,
		abort:    m.abort,
		plan:     d.Plan,
		battery:  newBatteryGuard(m.cfg, d.Telemetry, clock, m.log, m.post),
		gate:     abortGate{d.Gate, m.abort},
		clock:    clock,
		cfg:      m.cfg,
		log:      m.log,
		post:     m.post,
	}
	return sequencer.Run(ctx)
}
