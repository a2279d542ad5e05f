package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiiuae/patternflight/internal/flight"
	"github.com/tiiuae/patternflight/internal/vehicle"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, flight.DefaultConfig(), cfg.Flight)
	assert.Equal(t, vehicle.ManualTakeover, cfg.Flight.ManualTakeover)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "", cfg.Log.File)
	assert.Equal(t, 3*time.Second, cfg.MAVLink.DiscoveryTimeout)
	assert.Equal(t, uint8(245), cfg.MAVLink.SystemID)
	assert.Equal(t, 3, cfg.MAVLink.CommandRetries)
	assert.Equal(t, 20.0, cfg.MAVLink.SetpointRateHz)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "RS256", cfg.MQTT.Algorithm)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "patternflight.yaml")
	yaml := `
log:
  level: debug
  file: /var/log/patternflight.log
mavlink:
  discoveryTimeout: 10s
  commandTimeout: 500ms
mqtt:
  enabled: true
  deviceId: drone-7
flight:
  centerHold: 20s
  minVoltage: 14.2
  offboardAttempts: 5
`
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0644))

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/log/patternflight.log", cfg.Log.File)
	assert.Equal(t, 10*time.Second, cfg.MAVLink.DiscoveryTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.MAVLink.CommandTimeout)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "drone-7", cfg.MQTT.DeviceID)
	assert.Equal(t, 20*time.Second, cfg.Flight.CenterHold)
	assert.Equal(t, 14.2, cfg.Flight.MinVoltage)
	assert.Equal(t, 5, cfg.Flight.OffboardAttempts)
	assert.Equal(t, 10*time.Second, cfg.Flight.LegDwell)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PATTERNFLIGHT_FLIGHT_MINVOLTAGE", "10.5")
	t.Setenv("PATTERNFLIGHT_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10.5, cfg.Flight.MinVoltage)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/patternflight.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("mqtt:\n  enabled: true\n"), 0644))

	_, err := Load(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deviceId")

	require.NoError(t, os.WriteFile(file, []byte("flight:\n  offboardAttempts: 0\n"), 0644))
	_, err = Load(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offboardAttempts")
}
