package types

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	received []Message
	onRun    func(post PostFn)
}

func (r *recorder) Run(ctx context.Context, wg *sync.WaitGroup, post PostFn) {
	if r.onRun != nil {
		r.onRun(post)
	}
}

func (r *recorder) Receive(message Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, message)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received)
}

func TestMessageBusFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := &recorder{}
	b := &recorder{onRun: func(post PostFn) {
		post(CreateMessage(TypeConfirmCycle, "test", "test", ConfirmCycle{Source: "test"}))
	}}

	var wg sync.WaitGroup
	bus := NewMessageBus(make(chan Message, 10), zerolog.Nop(), a, b)
	bus.Run(ctx, &wg)

	require.Eventually(t, func() bool { return a.count() == 1 && b.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, TypeConfirmCycle, a.received[0].MessageType)
	assert.NotEmpty(t, a.received[0].ID)

	cancel()
	wg.Wait()
}

func TestPostDropsWhenFull(t *testing.T) {
	bus := NewMessageBus(make(chan Message, 1), zerolog.Nop())
	bus.Post(CreateMessage(TypeCycleStarted, "a", "b", CycleStarted{Cycle: 1}))
	bus.Post(CreateMessage(TypeCycleStarted, "a", "b", CycleStarted{Cycle: 2}))

	assert.Len(t, bus.bus, 1)
	msg := <-bus.bus
	assert.Equal(t, 1, msg.Message.(CycleStarted).Cycle)
}

func TestInboxDeliverNeverBlocks(t *testing.T) {
	in := NewInbox(1, zerolog.Nop())
	in.Deliver(Message{MessageType: "a"})
	in.Deliver(Message{MessageType: "b"})

	assert.Equal(t, "a", (<-in.C).MessageType)
	select {
	case <-in.C:
		t.Fatal("second message should have been dropped")
	default:
	}
}

func TestToJsonMessage(t *testing.T) {
	msg := CreateMessage(TypePatternUpdate, "operator", "drone", PatternUpdate{Dimension: 4.5})
	out, err := msg.ToJsonMessage()
	require.NoError(t, err)
	assert.Equal(t, msg.ID, out.ID)
	assert.JSONEq(t, `{"dimension":4.5}`, out.Message.(string))
}

type worker struct {
	stopped atomic.Bool
}

func (w *worker) Run(ctx context.Context, wg *sync.WaitGroup, post PostFn) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		w.stopped.Store(true)
	}()
}

func (w *worker) Receive(message Message) {
}

func TestMessageBusRegistersHandlersBeforeReturning(t *testing.T) {
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		w := &worker{}

		var wg sync.WaitGroup
		NewMessageBus(make(chan Message, 1), zerolog.Nop(), w).Run(ctx, &wg)
		cancel()
		wg.Wait()

		assert.True(t, w.stopped.Load(), "run %d", i)
	}
}
