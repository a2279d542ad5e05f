package flight

import (
	"time"

	"github.com/pkg/errors"

	"github.com/tiiuae/patternflight/internal/vehicle"
)

// Config holds the timing and threshold constants of a mission.
type Config struct {
	TelemetryRateHz  float64            `mapstructure:"telemetryRateHz"`
	PreflightPoll    time.Duration      `mapstructure:"preflightPoll"`
	GroundBand       float64            `mapstructure:"groundBand"`
	ClimbPoll        time.Duration      `mapstructure:"climbPoll"`
	ClimbTolerance   float64            `mapstructure:"climbTolerance"`
	Settle           time.Duration      `mapstructure:"settle"`
	OffboardAttempts int                `mapstructure:"offboardAttempts"`
	OffboardBackoff  time.Duration      `mapstructure:"offboardBackoff"`
	CenterHold       time.Duration      `mapstructure:"centerHold"`
	LegDwell         time.Duration      `mapstructure:"legDwell"`
	MinVoltage       float64            `mapstructure:"minVoltage"`
	BatteryRecheck   time.Duration      `mapstructure:"batteryRecheck"`
	ManualTakeover   vehicle.CustomMode `mapstructure:"manualTakeoverMode"`
}

func DefaultConfig() Config {
	return Config{
		TelemetryRateHz:  0.2,
		PreflightPoll:    time.Second,
		GroundBand:       0.2,
		ClimbPoll:        time.Second,
		ClimbTolerance:   0.25,
		Settle:           5 * time.Second,
		OffboardAttempts: 3,
		OffboardBackoff:  2 * time.Second,
		CenterHold:       15 * time.Second,
		LegDwell:         10 * time.Second,
		MinVoltage:       7.0,
		BatteryRecheck:   30 * time.Second,
		ManualTakeover:   vehicle.ManualTakeover,
	}
}

func (c Config) Validate() error {
	switch {
	case !(c.TelemetryRateHz > 0):
		return errors.Errorf("telemetryRateHz must be > 0, got %v", c.TelemetryRateHz)
	case c.PreflightPoll <= 0, c.ClimbPoll <= 0, c.BatteryRecheck <= 0:
		return errors.New("poll intervals must be > 0")
	case c.GroundBand < 0:
		return errors.Errorf("groundBand must be >= 0, got %v", c.GroundBand)
	case c.ClimbTolerance < 0:
		return errors.Errorf("climbTolerance must be >= 0, got %v", c.ClimbTolerance)
	case c.OffboardAttempts < 1:
		return errors.Errorf("offboardAttempts must be >= 1, got %d", c.OffboardAttempts)
	case c.Settle < 0, c.OffboardBackoff < 0, c.CenterHold < 0, c.LegDwell < 0:
		return errors.New("durations must not be negative")
	}
	return nil
}
