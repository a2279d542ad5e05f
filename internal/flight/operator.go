package flight

import (
	"bufio"
	"context"
	"io"

	"github.com/rs/zerolog"
)

// Operator is the confirmation gate between pattern cycles. Confirmations
// come from the console or from remote commands.
type Operator struct {
	confirm chan string
	log     zerolog.Logger
}

func NewOperator(log zerolog.Logger) *Operator {
	return &Operator{make(chan string), log.With().Str("component", "operator").Logger()}
}

// Wait blocks until one confirmation arrives.
func (o *Operator) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case source := <-o.confirm:
		o.log.Info().Str("source", source).Msg("Cycle confirmed")
		return nil
	}
}

// TryConfirm releases a waiting gate. It reports false when no cycle is
// currently waiting for confirmation.
func (o *Operator) TryConfirm(source string) bool {
	select {
	case o.confirm <- source:
		return true
	default:
		return false
	}
}

// ReadConsole turns every line read from r into a confirmation. Each line is
// held until a cycle waits for it. At EOF remote confirmations keep working.
func (o *Operator) ReadConsole(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		case o.confirm <- "console":
		}
	}
	if err := scanner.Err(); err != nil {
		o.log.Warn().Err(err).Msg("Console read failed")
		return
	}
	o.log.Warn().Msg("Console closed, waiting for remote confirmations only")
}
