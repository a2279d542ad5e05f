package types

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

type logger struct {
	log zerolog.Logger
}

func NewLogger(log zerolog.Logger) MessageHandler {
	return &logger{log.With().Str("component", "events").Logger()}
}

func (l *logger) Receive(message Message) {
	if message.MessageType == TypeVehicleTelemetry {
		return
	}

	b, _ := json.Marshal(message.Message)
	l.log.Debug().
		Str("type", message.MessageType).
		Str("from", message.From).
		Str("to", message.To).
		RawJSON("message", b).
		Msg("Message")
}

func (l *logger) Run(ctx context.Context, wg *sync.WaitGroup, post PostFn) {
}
