package mavlink

import (
	"context"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/tiiuae/patternflight/internal/vehicle"
)

const (
	unknownVoltage = 0xffff

	messageIDLocalPositionNed = 32

	sensorGPS            = 1 << 5
	sensorOpticalFlow    = 1 << 6
	sensorVisionPosition = 1 << 7

	landedStateOnGround = 1
	landedStateInAir    = 2
	landedStateTakeoff  = 3
	landedStateLanding  = 4
)

// Telemetry serves vehicle.Telemetry from decoded frames.
type Telemetry struct {
	link *Link
}

// SetUpdateRate asks the autopilot to stream LOCAL_POSITION_NED at hz.
func (t *Telemetry) SetUpdateRate(ctx context.Context, hz float64) error {
	interval := float32(1e6 / hz)
	return t.link.command(ctx, common.MAV_CMD_SET_MESSAGE_INTERVAL, params{messageIDLocalPositionNed, interval})
}

func (t *Telemetry) State() vehicle.State {
	return t.link.snapshot()
}

// Subscribe registers a callback run on the event goroutine for every state
// update.
func (t *Telemetry) Subscribe(callback func(vehicle.State)) (cancel func()) {
	return t.link.stateSubs.add(callback)
}

// positionLock reports whether any local position source is present, enabled
// and healthy.
func positionLock(present, enabled, health uint32) bool {
	ok := present & enabled & health
	return ok&(sensorGPS|sensorOpticalFlow|sensorVisionPosition) != 0
}

func inAir(landedState uint8) bool {
	switch landedState {
	case landedStateInAir, landedStateTakeoff, landedStateLanding:
		return true
	default:
		return false
	}
}

// Messages serves vehicle.MessageSubscriber.
type Messages struct {
	link *Link
}

func (m *Messages) Subscribe(kind vehicle.MessageKind, callback func(vehicle.StatusMessage)) (cancel func()) {
	switch kind {
	case vehicle.MessageHeartbeat:
		return m.link.heartbeat.add(callback)
	default:
		m.link.log.Warn().Stringer("kind", kind).Msg("Unsupported message subscription")
		return func() {}
	}
}
