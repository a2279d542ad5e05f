package vehicle

import (
	"context"
	"fmt"
	"time"
)

// State is a read-only snapshot of the vehicle as last reported by telemetry.
// Position is in the local NED frame relative to the launch point, so Down is
// positive below launch and altitude above launch is -Down.
type State struct {
	North          float64
	East           float64
	Down           float64
	BatteryVoltage float64
	PositionLock   bool
	InAir          bool
	UpdatedAt      time.Time
}

// Altitude returns the height above the launch point in meters.
func (s State) Altitude() float64 {
	return -s.Down
}

// Waypoint is a position setpoint in the local NED frame with yaw in degrees.
type Waypoint struct {
	North float64 `json:"north" yaml:"north"`
	East  float64 `json:"east" yaml:"east"`
	Down  float64 `json:"down" yaml:"down"`
	Yaw   float64 `json:"yaw" yaml:"yaw"`
}

func (w Waypoint) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f, %.1f)", w.North, w.East, w.Down, w.Yaw)
}

// VelocityNedYaw is a velocity setpoint in m/s in the local NED frame.
type VelocityNedYaw struct {
	North float64
	East  float64
	Down  float64
	Yaw   float64
}

// Telemetry gives access to the continuously refreshed vehicle state.
type Telemetry interface {
	SetUpdateRate(ctx context.Context, hz float64) error
	State() State
	Subscribe(callback func(State)) (cancel func())
}

// Action issues acknowledged vehicle commands.
type Action interface {
	SetTakeoffAltitude(ctx context.Context, meters float64) error
	Arm(ctx context.Context) error
	Takeoff(ctx context.Context) error
	Land(ctx context.Context) error
}

// Offboard streams externally computed setpoints to the autopilot.
type Offboard interface {
	SetVelocity(v VelocityNedYaw) error
	SetPosition(w Waypoint) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// MessageKind selects which inbound vehicle messages a subscriber receives.
type MessageKind int

const (
	MessageHeartbeat MessageKind = iota + 1
)

func (k MessageKind) String() string {
	switch k {
	case MessageHeartbeat:
		return "heartbeat"
	default:
		return fmt.Sprintf("MessageKind(%d)", int(k))
	}
}

// StatusMessage is the decoded part of a heartbeat/status frame.
type StatusMessage struct {
	Kind       MessageKind
	SystemID   uint8
	BaseMode   uint8
	CustomMode CustomMode
}

// MessageSubscriber delivers inbound status messages. Callbacks run on the
// delivery goroutine and must return quickly.
type MessageSubscriber interface {
	Subscribe(kind MessageKind, callback func(StatusMessage)) (cancel func())
}
