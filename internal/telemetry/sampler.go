package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tiiuae/patternflight/internal/types"
	"github.com/tiiuae/patternflight/internal/vehicle"
)

type sampler struct {
	source   vehicle.Telemetry
	deviceID string
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	current vehicle.State
	sent    bool
}

// NewSampler posts the vehicle state on the bus at most once per interval,
// and only when it changed since the last post.
func NewSampler(source vehicle.Telemetry, deviceID string, interval time.Duration, log zerolog.Logger) types.MessageHandler {
	return &sampler{
		source:   source,
		deviceID: deviceID,
		interval: interval,
		log:      log.With().Str("component", "telemetry").Logger(),
		sent:     true,
	}
}

func (s *sampler) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		cancel := s.source.Subscribe(s.update)
		defer cancel()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if state, ok := s.take(); ok {
					post(types.CreateMessage(types.TypeVehicleTelemetry, s.deviceID, s.deviceID, snapshot(state)))
				}
			}
		}
	}()
}

func (s *sampler) Receive(message types.Message) {
}

func (s *sampler) update(state vehicle.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = state
	s.sent = false
}

// take returns the pending state once.
func (s *sampler) take() (vehicle.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent {
		// there's no new data to send
		return vehicle.State{}, false
	}
	s.sent = true
	return s.current, true
}

func snapshot(s vehicle.State) types.VehicleTelemetry {
	return types.VehicleTelemetry{
		North:          s.North,
		East:           s.East,
		Down:           s.Down,
		BatteryVoltage: s.BatteryVoltage,
		PositionLock:   s.PositionLock,
		InAir:          s.InAir,
		UpdatedAt:      s.UpdatedAt,
	}
}
