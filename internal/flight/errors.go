package flight

import "github.com/pkg/errors"

var (
	ErrTelemetryRate       = errors.New("telemetry rate not accepted")
	ErrPreflightAbort      = errors.New("preflight check failed")
	ErrCommandRejected     = errors.New("command rejected")
	ErrArmRejected         = errors.New("arming rejected")
	ErrTakeoffRejected     = errors.New("takeoff rejected")
	ErrOffboardUnavailable = errors.New("offboard mode unavailable")
	ErrOffboardInactive    = errors.New("offboard session not active")
	ErrAborted             = errors.New("mission aborted")
)
