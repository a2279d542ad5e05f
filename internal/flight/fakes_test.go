package flight

import (
	"context"
	"sync"
	"time"

	"github.com/tiiuae/patternflight/internal/vehicle"
)

type fakeTelemetry struct {
	mu       sync.Mutex
	state    vehicle.State
	voltages []float64
	downs    []float64
	reads    int
	rateHz   float64
	rateErr  error
}

func newFakeTelemetry() *fakeTelemetry {
	return &fakeTelemetry{state: vehicle.State{PositionLock: true, BatteryVoltage: 12.4}}
}

func (f *fakeTelemetry) SetUpdateRate(ctx context.Context, hz float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rateHz = hz
	return f.rateErr
}

// State pops scripted voltages and downs, the last value sticks.
func (f *fakeTelemetry) State() vehicle.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if len(f.voltages) > 0 {
		f.state.BatteryVoltage = f.voltages[0]
		if len(f.voltages) > 1 {
			f.voltages = f.voltages[1:]
		}
	}
	if len(f.downs) > 0 {
		f.state.Down = f.downs[0]
		if len(f.downs) > 1 {
			f.downs = f.downs[1:]
		}
	}
	return f.state
}

func (f *fakeTelemetry) Subscribe(callback func(vehicle.State)) func() {
	return func() {}
}

func (f *fakeTelemetry) update(fn func(s *vehicle.State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.state)
}

type fakeAction struct {
	mu        sync.Mutex
	calls     []string
	errs      map[string]error
	onTakeoff func()
}

func (f *fakeAction) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.errs[name]
}

func (f *fakeAction) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeAction) SetTakeoffAltitude(ctx context.Context, meters float64) error {
	return f.record("altitude")
}

func (f *fakeAction) Arm(ctx context.Context) error {
	return f.record("arm")
}

func (f *fakeAction) Takeoff(ctx context.Context) error {
	if err := f.record("takeoff"); err != nil {
		return err
	}
	if f.onTakeoff != nil {
		f.onTakeoff()
	}
	return nil
}

func (f *fakeAction) Land(ctx context.Context) error {
	return f.record("land")
}

type fakeOffboard struct {
	mu         sync.Mutex
	startErrs  []error
	starts     int
	stops      int
	events     []string
	velocities []vehicle.VelocityNedYaw
	positions  []vehicle.Waypoint
	onPosition func(n int)
}

func (f *fakeOffboard) SetVelocity(v vehicle.VelocityNedYaw) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "velocity")
	f.velocities = append(f.velocities, v)
	return nil
}

func (f *fakeOffboard) SetPosition(w vehicle.Waypoint) error {
	f.mu.Lock()
	f.events = append(f.events, "position")
	f.positions = append(f.positions, w)
	n := len(f.positions)
	hook := f.onPosition
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return nil
}

func (f *fakeOffboard) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "start")
	f.starts++
	if len(f.startErrs) >= f.starts {
		return f.startErrs[f.starts-1]
	}
	return nil
}

func (f *fakeOffboard) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeOffboard) issued() []vehicle.Waypoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]vehicle.Waypoint(nil), f.positions...)
}

type fakeMessages struct {
	mu   sync.Mutex
	subs map[int]func(vehicle.StatusMessage)
	next int
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{subs: map[int]func(vehicle.StatusMessage){}}
}

func (f *fakeMessages) Subscribe(kind vehicle.MessageKind, callback func(vehicle.StatusMessage)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs[id] = callback
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

func (f *fakeMessages) emit(msg vehicle.StatusMessage) {
	f.mu.Lock()
	subs := make([]func(vehicle.StatusMessage), 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()
	for _, s := range subs {
		s(msg)
	}
}

func (f *fakeMessages) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func takeover() vehicle.StatusMessage {
	return vehicle.StatusMessage{Kind: vehicle.MessageHeartbeat, SystemID: 1, CustomMode: vehicle.ManualTakeover}
}

// fakeClock advances instantly and records every requested sleep.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func(n int, d time.Duration)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	n := len(c.sleeps)
	hook := c.onSleep
	c.mu.Unlock()

	if hook != nil {
		hook(n, d)
	}
	return ctx.Err()
}

func (c *fakeClock) slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type fakeGate struct {
	mu     sync.Mutex
	waits  int
	onWait func(n int)
}

func (g *fakeGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	g.waits++
	n := g.waits
	hook := g.onWait
	g.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return ctx.Err()
}
