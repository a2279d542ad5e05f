package vehicle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualTakeoverValue(t *testing.T) {
	assert.Equal(t, CustomMode(196608), ManualTakeover)
	assert.Equal(t, MainModePositionControl, ManualTakeover.Main())
	assert.Equal(t, uint8(0), ManualTakeover.Sub())
}

func TestCustomModeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		main MainMode
		sub  uint8
		want string
	}{
		{"offboard", MainModeOffboard, 0, "OFFBOARD"},
		{"loiter", MainModeAuto, AutoSubModeLoiter, "AUTO.3"},
		{"manual", MainModeManual, 0, "MANUAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewCustomMode(tt.main, tt.sub)
			assert.Equal(t, tt.main, m.Main())
			assert.Equal(t, tt.sub, m.Sub())
			assert.Equal(t, tt.want, m.String())
		})
	}
}

func TestStateAltitude(t *testing.T) {
	s := State{Down: -3.75}
	assert.InDelta(t, 3.75, s.Altitude(), 1e-9)
}
