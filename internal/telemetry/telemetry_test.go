package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiiuae/patternflight/internal/types"
	"github.com/tiiuae/patternflight/internal/vehicle"
)

type fakeSource struct {
	mu sync.Mutex
	cb func(vehicle.State)
}

func (f *fakeSource) SetUpdateRate(ctx context.Context, hz float64) error { return nil }
func (f *fakeSource) State() vehicle.State                               { return vehicle.State{} }

func (f *fakeSource) Subscribe(cb func(vehicle.State)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cb = nil
	}
}

func (f *fakeSource) push(s vehicle.State) bool {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(s)
	return true
}

type fakePublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messages == nil {
		f.messages = map[string][][]byte{}
	}
	f.messages[topic] = append(f.messages[topic], payload)
	return nil
}

func (f *fakePublisher) on(topic string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[topic]
}

func TestSamplerPostsOnlyFreshState(t *testing.T) {
	src := &fakeSource{}
	s := NewSampler(src, "drone-1", 5*time.Millisecond, zerolog.Nop())

	var mu sync.Mutex
	var posted []types.Message
	post := func(msg types.Message) {
		mu.Lock()
		defer mu.Unlock()
		posted = append(posted, msg)
	}
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(posted)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	s.Run(ctx, &wg, post)

	require.Eventually(t, func() bool { return src.push(vehicle.State{Down: -4, BatteryVoltage: 12.1}) }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return count() == 1 }, time.Second, time.Millisecond)

	// nothing new, nothing posted
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, count())

	mu.Lock()
	msg := posted[0]
	mu.Unlock()
	assert.Equal(t, types.TypeVehicleTelemetry, msg.MessageType)
	assert.Equal(t, -4.0, msg.Message.(types.VehicleTelemetry).Down)

	cancel()
	wg.Wait()
}

func TestReporterPublishesEvents(t *testing.T) {
	pub := &fakePublisher{}
	r := NewReporter(pub, "drone-1", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	r.Run(ctx, &wg, func(types.Message) {})

	r.Receive(types.CreateMessage(types.TypeVehicleTelemetry, "drone-1", "drone-1", types.VehicleTelemetry{North: 3, East: 4, Down: -4, BatteryVoltage: 11.9}))
	r.Receive(types.CreateMessage(types.TypeCycleStarted, "drone-1", "drone-1", types.CycleStarted{Cycle: 2, Altitude: 4, Dimension: 3}))
	r.Receive(types.CreateMessage(types.TypeConfirmCycle, "drone-1", "drone-1", types.ConfirmCycle{Source: "mqtt"}))
	r.Receive(types.CreateMessage(types.TypeCycleStarted, "drone-2", "drone-2", types.CycleStarted{Cycle: 9}))

	require.Eventually(t, func() bool {
		return len(pub.on("/devices/drone-1/events/telemetry")) == 1 && len(pub.on("/devices/drone-1/events/cycle-started")) == 1
	}, time.Second, time.Millisecond)

	var tel telemetry
	require.NoError(t, json.Unmarshal(pub.on("/devices/drone-1/events/telemetry")[0], &tel))
	assert.Equal(t, 4.0, tel.AltitudeFromHome)
	assert.Equal(t, 5.0, tel.DistanceFromHome)
	assert.Equal(t, 11.9, tel.BatteryVoltageV)
	assert.NotEmpty(t, tel.MessageID)

	var ev struct {
		From        string `json:"from"`
		MessageType string `json:"message_type"`
		Message     string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(pub.on("/devices/drone-1/events/cycle-started")[0], &ev))
	assert.Equal(t, "drone-1", ev.From)
	assert.JSONEq(t, `{"cycle":2,"altitude":4,"dimension":3}`, ev.Message)

	assert.Empty(t, pub.on("/devices/drone-1/events/confirm-cycle"))
	assert.Empty(t, pub.on("/devices/drone-2/events/cycle-started"))

	cancel()
	wg.Wait()
}
