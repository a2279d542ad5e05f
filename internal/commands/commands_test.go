package commands

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiiuae/patternflight/internal/types"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[string]func(topic string, payload []byte)
}

func (f *fakeSubscriber) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = map[string]func(string, []byte){}
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeSubscriber) deliver(filter, topic string, payload string) bool {
	f.mu.Lock()
	h := f.handlers[filter]
	f.mu.Unlock()
	if h == nil {
		return false
	}
	h(topic, []byte(payload))
	return true
}

func newHandler() *commandHandler {
	return New(&fakeSubscriber{}, "drone-1", zerolog.Nop()).(*commandHandler)
}

func TestHandleControlCommand(t *testing.T) {
	c := newHandler()

	out := c.handleControlCommand([]byte(`{"Command":"confirm-cycle"}`))
	require.Len(t, out, 1)
	assert.Equal(t, types.TypeConfirmCycle, out[0].MessageType)
	assert.Equal(t, types.ConfirmCycle{Source: "mqtt"}, out[0].Message)
	assert.Equal(t, "drone-1", out[0].To)

	assert.Empty(t, c.handleControlCommand([]byte(`{"Command":"self-destruct"}`)))
	assert.Empty(t, c.handleControlCommand([]byte(`not json`)))
}

func TestHandleConfig(t *testing.T) {
	c := newHandler()

	out := c.handleConfig([]byte("pattern:\n  dimension: 4.5\nprofile: default\n"))
	require.Len(t, out, 1)
	assert.Equal(t, types.PatternUpdate{Dimension: 4.5}, out[0].Message)

	assert.Empty(t, c.handleConfig([]byte("profile: default\n")))
	assert.Empty(t, c.handleConfig([]byte("pattern: {}\n")))
	assert.Empty(t, c.handleConfig([]byte("pattern: [\n")))
}

func TestRunRoutesTopics(t *testing.T) {
	sub := &fakeSubscriber{}
	h := New(sub, "drone-1", zerolog.Nop())

	var mu sync.Mutex
	var posted []types.Message
	post := func(msg types.Message) {
		mu.Lock()
		defer mu.Unlock()
		posted = append(posted, msg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	h.Run(ctx, &wg, post)

	require.Eventually(t, func() bool {
		return sub.deliver("/devices/drone-1/config", "/devices/drone-1/config", "pattern:\n  dimension: 6\n")
	}, time.Second, time.Millisecond)
	sub.deliver("/devices/drone-1/commands/#", "/devices/drone-1/commands/control", `{"Command":"confirm-cycle"}`)
	sub.deliver("/devices/drone-1/commands/#", "/devices/drone-1/commands/videostream", `{"Command":"start"}`)

	mu.Lock()
	require.Len(t, posted, 2)
	assert.Equal(t, types.TypePatternUpdate, posted[0].MessageType)
	assert.Equal(t, types.TypeConfirmCycle, posted[1].MessageType)
	mu.Unlock()

	cancel()
	wg.Wait()
}
