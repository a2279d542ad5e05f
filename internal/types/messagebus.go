package types

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

type PostFn = func(msg Message)

// MessageHandler receives every bus message. Run must not block: it starts
// the handler's goroutines, adding them to wg, and returns.
type MessageHandler interface {
	Run(ctx context.Context, wg *sync.WaitGroup, post PostFn)
	Receive(message Message)
}

type MessageBus struct {
	bus       chan Message
	receivers []MessageHandler
	log       zerolog.Logger
}

func NewMessageBus(bus chan Message, log zerolog.Logger, receivers ...MessageHandler) *MessageBus {
	return &MessageBus{bus, receivers, log.With().Str("component", "bus").Logger()}
}

// Post queues a message without blocking. Messages are dropped once the bus
// is full so a slow handler never stalls the flight loop.
func (mb *MessageBus) Post(msg Message) {
	busCapacity := cap(mb.bus)
	busLen := len(mb.bus)
	if busLen > busCapacity/2 {
		mb.log.Warn().Msgf("Bus capacity over 50%% [ %d / %d ]", busLen, busCapacity)
	}
	select {
	case mb.bus <- msg:
	default:
		mb.log.Warn().Str("type", msg.MessageType).Msg("Bus full, message dropped")
	}
}

// Run starts the handlers and the dispatch loop. Every goroutine is added to
// wg before Run returns.
func (mb *MessageBus) Run(ctx context.Context, wg *sync.WaitGroup) {
	for _, x := range mb.receivers {
		x.Run(ctx, wg, mb.Post)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-mb.bus:
				for _, x := range mb.receivers {
					x.Receive(msg)
				}
			}
		}
	}()
}

// Inbox is the buffered receive side shared by handlers. Deliver never
// blocks the bus loop.
type Inbox struct {
	C   chan Message
	log zerolog.Logger
}

func NewInbox(size int, log zerolog.Logger) *Inbox {
	return &Inbox{make(chan Message, size), log}
}

func (in *Inbox) Deliver(message Message) {
	select {
	case in.C <- message:
	default:
		in.log.Warn().Str("type", message.MessageType).Msg("Inbox full, message dropped")
	}
}
