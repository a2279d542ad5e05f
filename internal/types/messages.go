package types

import "time"

// Message types posted on the bus. Events are published to the cloud under
// /devices/<id>/events/<type>.
const (
	TypePhaseChanged     = "phase-changed"
	TypePreflightStatus  = "preflight-status"
	TypeClimbProgress    = "climb-progress"
	TypeOffboardAttempt  = "offboard-attempt"
	TypeCycleStarted     = "cycle-started"
	TypeWaypointIssued   = "waypoint-issued"
	TypeBatteryHold      = "battery-hold"
	TypeAwaitingOperator = "awaiting-operator"
	TypeMissionAborted   = "mission-aborted"
	TypeMissionFailed    = "mission-failed"
	TypeVehicleTelemetry = "vehicle-telemetry"

	TypeConfirmCycle  = "confirm-cycle"
	TypePatternUpdate = "pattern-update"
)

type PhaseChanged struct {
	Phase string `json:"phase"`
}

type PreflightStatus struct {
	PositionLock bool    `json:"position_lock"`
	Down         float64 `json:"down"`
}

type ClimbProgress struct {
	Altitude  float64 `json:"altitude"`
	Remaining float64 `json:"remaining"`
}

type OffboardAttempt struct {
	Attempt int    `json:"attempt"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type CycleStarted struct {
	Cycle     int     `json:"cycle"`
	Altitude  float64 `json:"altitude"`
	Dimension float64 `json:"dimension"`
}

type WaypointIssued struct {
	Cycle int     `json:"cycle"`
	Label string  `json:"label"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
	Down  float64 `json:"down"`
	Yaw   float64 `json:"yaw"`
}

type BatteryHold struct {
	Voltage    float64 `json:"voltage"`
	MinVoltage float64 `json:"min_voltage"`
	Sample     int     `json:"sample"`
}

type AwaitingOperator struct {
	Cycle int `json:"cycle"`
}

type MissionAborted struct {
	Reason string `json:"reason"`
}

type MissionFailed struct {
	Phase string `json:"phase"`
	Error string `json:"error"`
}

type VehicleTelemetry struct {
	North          float64   `json:"north"`
	East           float64   `json:"east"`
	Down           float64   `json:"down"`
	BatteryVoltage float64   `json:"battery_voltage"`
	PositionLock   bool      `json:"position_lock"`
	InAir          bool      `json:"in_air"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ConfirmCycle releases the operator gate between cycles.
type ConfirmCycle struct {
	Source string `json:"source"`
}

// PatternUpdate changes the pattern dimension from the next cycle on.
type PatternUpdate struct {
	Dimension float64 `json:"dimension"`
}
