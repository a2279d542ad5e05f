package pattern

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/tiiuae/patternflight/internal/vehicle"
)

// ErrInvalidPattern is returned for a non-positive altitude or dimension.
var ErrInvalidPattern = errors.New("invalid flight pattern")

// FlightPattern is the rectangle flown around the reference point at a fixed
// altitude. Dimension is the side length of the square in meters.
type FlightPattern struct {
	Altitude  float64 `json:"altitude" yaml:"altitude"`
	Dimension float64 `json:"dimension" yaml:"dimension"`
}

// Leg is one waypoint of a traversal with its operator-facing label.
type Leg struct {
	Label    string           `json:"label" yaml:"label"`
	Waypoint vehicle.Waypoint `json:"waypoint" yaml:"waypoint"`
}

// New validates the inputs and returns the pattern.
func New(altitude, dimension float64) (FlightPattern, error) {
	p := FlightPattern{Altitude: altitude, Dimension: dimension}
	if err := p.Validate(); err != nil {
		return FlightPattern{}, err
	}
	return p, nil
}

// Validate checks that altitude and dimension are both positive and finite.
func (p FlightPattern) Validate() error {
	// written as !(x > 0) so NaN is rejected too
	if !(p.Altitude > 0) || math.IsInf(p.Altitude, 0) {
		return errors.WithMessagef(ErrInvalidPattern, "altitude must be finite and > 0, got %v", p.Altitude)
	}
	if !(p.Dimension > 0) || math.IsInf(p.Dimension, 0) {
		return errors.WithMessagef(ErrInvalidPattern, "dimension must be finite and > 0, got %v", p.Dimension)
	}
	return nil
}

// WithDimension returns a copy of the pattern with a new dimension.
func (p FlightPattern) WithDimension(dimension float64) (FlightPattern, error) {
	return New(p.Altitude, dimension)
}

func (p FlightPattern) down() float64 {
	return -p.Altitude
}

// Center is the reference point the pattern is flown around.
func (p FlightPattern) Center() vehicle.Waypoint {
	return vehicle.Waypoint{North: 0, East: 0, Down: p.down(), Yaw: 0}
}

// Corners returns W1..W5 in flight order.
func (p FlightPattern) Corners() [5]vehicle.Waypoint {
	h := p.Dimension / 2
	d := p.down()
	return [5]vehicle.Waypoint{
		{North: -h, East: 0, Down: d},
		{North: -h, East: h, Down: d},
		{North: h, East: h, Down: d},
		{North: h, East: -h, Down: d},
		{North: -h, East: -h, Down: d},
	}
}

// Traversal returns the legs flown after the operator confirms a cycle:
// W1 through W5 and then W1 again before heading back to the center.
func (p FlightPattern) Traversal() []Leg {
	c := p.Corners()
	order := []vehicle.Waypoint{c[0], c[1], c[2], c[3], c[4], c[0]}
	legs := make([]Leg, len(order))
	for i, wp := range order {
		legs[i] = Leg{Label: fmt.Sprintf("Position %d", i+1), Waypoint: wp}
	}
	return legs
}
