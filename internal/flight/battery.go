package flight

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tiiuae/patternflight/internal/types"
	"github.com/tiiuae/patternflight/internal/vehicle"
)

// BatteryGuard holds position while the pack voltage is below the minimum.
type BatteryGuard struct {
	telemetry vehicle.Telemetry
	clock     Clock
	cfg       Config
	log       zerolog.Logger
	post      poster
}

func newBatteryGuard(cfg Config, telemetry vehicle.Telemetry, clock Clock, log zerolog.Logger, post poster) *BatteryGuard {
	return &BatteryGuard{telemetry, clock, cfg, log, post}
}

// Wait samples the voltage until it reaches the minimum and reports how many
// samples were taken. hold is called for every low sample to keep the
// vehicle on its last commanded position.
func (b *BatteryGuard) Wait(ctx context.Context, hold func() error) (int, error) {
	samples := 0
	for {
		v := b.telemetry.State().BatteryVoltage
		samples++
		if v >= b.cfg.MinVoltage {
			return samples, nil
		}

		b.log.Warn().Float64("voltage", v).Float64("min", b.cfg.MinVoltage).Msg("Battery low, holding position")
		b.post.emit(types.TypeBatteryHold, types.BatteryHold{Voltage: v, MinVoltage: b.cfg.MinVoltage, Sample: samples})
		if err := hold(); err != nil {
			return samples, err
		}
		if err := b.clock.Sleep(ctx, b.cfg.BatteryRecheck); err != nil {
			return samples, err
		}
	}
}
