package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tiiuae/patternflight/internal/types"
)

// telemetry is the payload of /devices/<id>/events/telemetry.
type telemetry struct {
	Timestamp int64
	MessageID string

	North            float64
	East             float64
	AltitudeFromHome float64
	DistanceFromHome float64

	BatteryVoltageV float64
	PositionLock    bool
	InAir           bool
}

// events forwarded to the cloud
var published = map[string]bool{
	types.TypeVehicleTelemetry: true,
	types.TypePhaseChanged:     true,
	types.TypePreflightStatus:  true,
	types.TypeClimbProgress:    true,
	types.TypeOffboardAttempt:  true,
	types.TypeCycleStarted:     true,
	types.TypeWaypointIssued:   true,
	types.TypeBatteryHold:      true,
	types.TypeAwaitingOperator: true,
	types.TypeMissionAborted:   true,
	types.TypeMissionFailed:    true,
}

type reporter struct {
	pub      Publisher
	deviceID string
	inbox    *types.Inbox
	log      zerolog.Logger
}

// NewReporter publishes vehicle telemetry and mission events from the bus
// to /devices/<id>/events/<type>.
func NewReporter(pub Publisher, deviceID string, log zerolog.Logger) types.MessageHandler {
	log = log.With().Str("component", "reporter").Logger()
	return &reporter{pub, deviceID, types.NewInbox(100, log), log}
}

func (r *reporter) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case <-ctx.Done():
				r.log.Debug().Msg("Reporter shutting down")
				return
			case msg := <-r.inbox.C:
				if err := r.publish(msg); err != nil {
					r.log.Warn().Err(err).Str("type", msg.MessageType).Msg("Could not publish event")
				}
			}
		}
	}()
}

func (r *reporter) Receive(message types.Message) {
	// only local events go to the cloud
	if message.From != r.deviceID || !published[message.MessageType] {
		return
	}
	r.inbox.Deliver(message)
}

func (r *reporter) publish(msg types.Message) error {
	if v, ok := msg.Message.(types.VehicleTelemetry); ok {
		b, err := json.Marshal(telemetryPayload(msg, v))
		if err != nil {
			return err
		}
		return r.pub.Publish(fmt.Sprintf("/devices/%s/events/telemetry", r.deviceID), b)
	}

	out, err := msg.ToJsonMessage()
	if err != nil {
		return err
	}
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return r.pub.Publish(fmt.Sprintf("/devices/%s/events/%s", r.deviceID, msg.MessageType), b)
}

func telemetryPayload(msg types.Message, v types.VehicleTelemetry) telemetry {
	return telemetry{
		Timestamp:        msg.Timestamp.UnixNano() / 1000,
		MessageID:        msg.ID,
		North:            v.North,
		East:             v.East,
		AltitudeFromHome: -v.Down,
		DistanceFromHome: math.Sqrt(v.North*v.North + v.East*v.East),
		BatteryVoltageV:  v.BatteryVoltage,
		PositionLock:     v.PositionLock,
		InAir:            v.InAir,
	}
}
