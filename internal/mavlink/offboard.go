package mavlink

import (
	"context"
	"math"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/tiiuae/patternflight/internal/vehicle"
)

// SET_POSITION_TARGET_LOCAL_NED type_mask bits.
const (
	ignorePosition     = 0b0000_0000_0111
	ignoreVelocity     = 0b0000_0011_1000
	ignoreAcceleration = 0b0001_1100_0000
	ignoreYawRate      = 0b1000_0000_0000

	modeFlagCustomModeEnabled = 1
)

// Offboard serves vehicle.Offboard. The latest setpoint is re-sent by the
// link's streamer so the autopilot keeps offboard authority.
type Offboard struct {
	link *Link
}

func (o *Offboard) SetVelocity(v vehicle.VelocityNedYaw) error {
	return o.link.setSetpoint(func(t Target) message.Message {
		return &common.MessageSetPositionTargetLocalNed{
			TargetSystem:    t.SystemID,
			TargetComponent: t.ComponentID,
			CoordinateFrame: common.MAV_FRAME_LOCAL_NED,
			TypeMask:        common.POSITION_TARGET_TYPEMASK(ignorePosition | ignoreAcceleration | ignoreYawRate),
			Vx:              float32(v.North),
			Vy:              float32(v.East),
			Vz:              float32(v.Down),
			Yaw:             float32(degreesToRadians(v.Yaw)),
		}
	})
}

func (o *Offboard) SetPosition(w vehicle.Waypoint) error {
	return o.link.setSetpoint(func(t Target) message.Message {
		return &common.MessageSetPositionTargetLocalNed{
			TargetSystem:    t.SystemID,
			TargetComponent: t.ComponentID,
			CoordinateFrame: common.MAV_FRAME_LOCAL_NED,
			TypeMask:        common.POSITION_TARGET_TYPEMASK(ignoreVelocity | ignoreAcceleration | ignoreYawRate),
			X:               float32(w.North),
			Y:               float32(w.East),
			Z:               float32(w.Down),
			Yaw:             float32(degreesToRadians(w.Yaw)),
		}
	})
}

// Start switches PX4 to OFFBOARD. A setpoint must already be streaming.
func (o *Offboard) Start(ctx context.Context) error {
	return o.link.setMode(ctx, vehicle.NewCustomMode(vehicle.MainModeOffboard, 0))
}

// Stop hands control back to AUTO.LOITER and ends the setpoint stream.
func (o *Offboard) Stop(ctx context.Context) error {
	err := o.link.setMode(ctx, vehicle.NewCustomMode(vehicle.MainModeAuto, vehicle.AutoSubModeLoiter))
	o.link.setpointMu.Lock()
	o.link.setpoint = nil
	o.link.setpointMu.Unlock()
	return err
}

func (l *Link) setMode(ctx context.Context, mode vehicle.CustomMode) error {
	return l.command(ctx, common.MAV_CMD_DO_SET_MODE, params{
		modeFlagCustomModeEnabled,
		float32(mode.Main()),
		float32(mode.Sub()),
	})
}

func (l *Link) setSetpoint(build func(t Target) message.Message) error {
	target, err := l.targetIfDiscovered()
	if err != nil {
		return err
	}
	msg := build(target)

	l.setpointMu.Lock()
	l.setpoint = msg
	l.setpointMu.Unlock()

	l.send(msg)
	return nil
}

func (l *Link) currentSetpoint() message.Message {
	l.setpointMu.Lock()
	defer l.setpointMu.Unlock()
	return l.setpoint
}

func (l *Link) streamSetpoints(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / l.opts.SetpointRateHz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if msg := l.currentSetpoint(); msg != nil {
				l.send(msg)
			}
		}
	}
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
