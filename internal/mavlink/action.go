package mavlink

import (
	"context"
	"math"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/pkg/errors"
)

const takeoffAltitudeParam = "MIS_TAKEOFF_ALT"

type params []float32

func (p params) at(i int) float32 {
	if i < len(p) {
		return p[i]
	}
	return 0
}

// Action serves vehicle.Action with acknowledged COMMAND_LONGs.
type Action struct {
	link *Link
}

func (a *Action) SetTakeoffAltitude(ctx context.Context, meters float64) error {
	return a.link.setParam(ctx, takeoffAltitudeParam, float32(meters))
}

func (a *Action) Arm(ctx context.Context) error {
	return a.link.command(ctx, common.MAV_CMD_COMPONENT_ARM_DISARM, params{1})
}

// Takeoff climbs to MIS_TAKEOFF_ALT above the current position.
func (a *Action) Takeoff(ctx context.Context) error {
	nan := float32(math.NaN())
	return a.link.command(ctx, common.MAV_CMD_NAV_TAKEOFF, params{-1, 0, 0, nan, nan, nan, nan})
}

func (a *Action) Land(ctx context.Context) error {
	nan := float32(math.NaN())
	return a.link.command(ctx, common.MAV_CMD_NAV_LAND, params{0, 0, 0, nan, nan, nan, nan})
}

// command sends a COMMAND_LONG and waits for its ack, retransmitting on
// timeout with an increasing confirmation counter.
func (l *Link) command(ctx context.Context, cmd common.MAV_CMD, p params) error {
	target, err := l.targetIfDiscovered()
	if err != nil {
		return err
	}

	acks := l.addAckWaiter(cmd)
	defer l.removeAckWaiter(cmd, acks)

	for attempt := 0; attempt < l.opts.CommandRetries; attempt++ {
		l.send(&common.MessageCommandLong{
			TargetSystem:    target.SystemID,
			TargetComponent: target.ComponentID,
			Command:         cmd,
			Confirmation:    uint8(attempt),
			Param1:          p.at(0),
			Param2:          p.at(1),
			Param3:          p.at(2),
			Param4:          p.at(3),
			Param5:          p.at(4),
			Param6:          p.at(5),
			Param7:          p.at(6),
		})

		done, err := l.awaitAck(ctx, cmd, acks)
		if done {
			return err
		}
		l.log.Debug().Msgf("No ack for %v, retrying", cmd)
	}
	return errors.WithMessagef(ErrCommandTimeout, "%v after %d attempts", cmd, l.opts.CommandRetries)
}

// awaitAck reports done=false when the timeout expired without a final ack.
func (l *Link) awaitAck(ctx context.Context, cmd common.MAV_CMD, acks chan *common.MessageCommandAck) (bool, error) {
	timer := time.NewTimer(l.opts.CommandTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case <-timer.C:
			return false, nil
		case ack := <-acks:
			switch ack.Result {
			case common.MAV_RESULT_ACCEPTED:
				return true, nil
			case common.MAV_RESULT_IN_PROGRESS:
				timer.Reset(l.opts.CommandTimeout)
			default:
				return true, errors.WithMessagef(ErrCommandDenied, "%v: %v", cmd, ack.Result)
			}
		}
	}
}

func (l *Link) addAckWaiter(cmd common.MAV_CMD) chan *common.MessageCommandAck {
	ch := make(chan *common.MessageCommandAck, 1)
	l.waitMu.Lock()
	defer l.waitMu.Unlock()
	l.ackWaiters[cmd] = append(l.ackWaiters[cmd], ch)
	return ch
}

func (l *Link) removeAckWaiter(cmd common.MAV_CMD, ch chan *common.MessageCommandAck) {
	l.waitMu.Lock()
	defer l.waitMu.Unlock()
	waiters := l.ackWaiters[cmd]
	for i, w := range waiters {
		if w == ch {
			l.ackWaiters[cmd] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(l.ackWaiters[cmd]) == 0 {
		delete(l.ackWaiters, cmd)
	}
}

func (l *Link) deliverAck(ack *common.MessageCommandAck) {
	l.waitMu.Lock()
	defer l.waitMu.Unlock()
	for _, ch := range l.ackWaiters[ack.Command] {
		select {
		case ch <- ack:
		default:
		}
	}
}

// setParam writes a REAL32 parameter and waits until PARAM_VALUE echoes it.
func (l *Link) setParam(ctx context.Context, name string, value float32) error {
	target, err := l.targetIfDiscovered()
	if err != nil {
		return err
	}

	values := l.addParamWaiter(name)
	defer l.removeParamWaiter(name, values)

	for attempt := 0; attempt < l.opts.CommandRetries; attempt++ {
		l.send(&common.MessageParamSet{
			TargetSystem:    target.SystemID,
			TargetComponent: target.ComponentID,
			ParamId:         name,
			ParamValue:      value,
			ParamType:       common.MAV_PARAM_TYPE_REAL32,
		})

		timer := time.NewTimer(l.opts.CommandTimeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case got := <-values:
			timer.Stop()
			if got != value {
				return errors.WithMessagef(ErrCommandDenied, "%s is %v, wanted %v", name, got, value)
			}
			return nil
		case <-timer.C:
		}
	}
	return errors.WithMessagef(ErrCommandTimeout, "param %s after %d attempts", name, l.opts.CommandRetries)
}

func (l *Link) addParamWaiter(name string) chan float32 {
	ch := make(chan float32, 1)
	l.waitMu.Lock()
	defer l.waitMu.Unlock()
	l.paramWait[name] = append(l.paramWait[name], ch)
	return ch
}

func (l *Link) removeParamWaiter(name string, ch chan float32) {
	l.waitMu.Lock()
	defer l.waitMu.Unlock()
	waiters := l.paramWait[name]
	for i, w := range waiters {
		if w == ch {
			l.paramWait[name] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(l.paramWait[name]) == 0 {
		delete(l.paramWait, name)
	}
}

func (l *Link) deliverParam(name string, value float32) {
	l.waitMu.Lock()
	defer l.waitMu.Unlock()
	for _, ch := range l.paramWait[name] {
		select {
		case ch <- value:
		default:
		}
	}
}
