package flight

import (
	"sync/atomic"

	"github.com/tiiuae/patternflight/internal/pattern"
)

// Plan holds the pattern for the next cycle. Updates never touch a cycle in
// progress since the sequencer snapshots the pattern at cycle start.
type Plan struct {
	current atomic.Pointer[pattern.FlightPattern]
}

func NewPlan(p pattern.FlightPattern) *Plan {
	plan := &Plan{}
	plan.current.Store(&p)
	return plan
}

func (p *Plan) Current() pattern.FlightPattern {
	return *p.current.Load()
}

func (p *Plan) SetDimension(dimension float64) error {
	next, err := p.Current().WithDimension(dimension)
	if err != nil {
		return err
	}
	p.current.Store(&next)
	return nil
}
