package flight

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tiiuae/patternflight/internal/vehicle"
)

// AbortSignal is a write-once flag shared between the abort listener and the
// flight loop. Once triggered it stays triggered.
type AbortSignal struct {
	triggered atomic.Bool
	once      sync.Once
	done      chan struct{}
	reason    atomic.Value
}

func NewAbortSignal() *AbortSignal {
	return &AbortSignal{done: make(chan struct{})}
}

// Trigger sets the flag. Only the first call has an effect and reports true.
func (a *AbortSignal) Trigger(reason string) bool {
	fired := false
	a.once.Do(func() {
		a.reason.Store(reason)
		a.triggered.Store(true)
		close(a.done)
		fired = true
	})
	return fired
}

func (a *AbortSignal) Triggered() bool {
	return a.triggered.Load()
}

// Done is closed when the signal triggers.
func (a *AbortSignal) Done() <-chan struct{} {
	return a.done
}

func (a *AbortSignal) Reason() string {
	r, _ := a.reason.Load().(string)
	return r
}

// ListenForTakeover subscribes to heartbeats and triggers signal when the
// vehicle reports the sentinel mode. The callback never blocks.
func ListenForTakeover(sub vehicle.MessageSubscriber, sentinel vehicle.CustomMode, signal *AbortSignal, log zerolog.Logger) (cancel func()) {
	return sub.Subscribe(vehicle.MessageHeartbeat, func(msg vehicle.StatusMessage) {
		if msg.CustomMode != sentinel {
			return
		}
		if signal.Trigger("manual takeover: vehicle switched to " + msg.CustomMode.String()) {
			log.Warn().
				Uint8("system", msg.SystemID).
				Uint32("custom_mode", uint32(msg.CustomMode)).
				Msg("Manual takeover detected, releasing control")
		}
	})
}

// abortClock ends every wait with ErrAborted once the signal has fired,
// whether it fired before the wait started or while it was running.
type abortClock struct {
	Clock
	abort *AbortSignal
}

func (c abortClock) Sleep(ctx context.Context, d time.Duration) error {
	if c.abort.Triggered() {
		return ErrAborted
	}
	err := c.Clock.Sleep(ctx, d)
	if c.abort.Triggered() {
		return ErrAborted
	}
	return err
}

// abortGate does the same for the operator gate.
type abortGate struct {
	gate  Gate
	abort *AbortSignal
}

func (g abortGate) Wait(ctx context.Context) error {
	if g.abort.Triggered() {
		return ErrAborted
	}
	err := g.gate.Wait(ctx)
	if g.abort.Triggered() {
		return ErrAborted
	}
	return err
}
