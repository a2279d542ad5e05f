package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/tiiuae/patternflight/internal/flight"
	"github.com/tiiuae/patternflight/internal/logging"
	"github.com/tiiuae/patternflight/internal/mavlink"
)

const envPrefix = "PATTERNFLIGHT"

type MAVLink struct {
	DiscoveryTimeout time.Duration `mapstructure:"discoveryTimeout"`
	mavlink.Options  `mapstructure:",squash"`
}

// MQTT holds the cloud connection settings. Only used when Enabled is set.
type MQTT struct {
	Enabled           bool          `mapstructure:"enabled"`
	Broker            string        `mapstructure:"broker"`
	DeviceID          string        `mapstructure:"deviceId"`
	PrivateKey        string        `mapstructure:"privateKey"`
	Algorithm         string        `mapstructure:"algorithm"`
	ProjectID         string        `mapstructure:"projectId"`
	Region            string        `mapstructure:"region"`
	RegistryID        string        `mapstructure:"registryId"`
	TelemetryInterval time.Duration `mapstructure:"telemetryInterval"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type Config struct {
	Log     logging.Config `mapstructure:"log"`
	MAVLink MAVLink        `mapstructure:"mavlink"`
	MQTT    MQTT           `mapstructure:"mqtt"`
	Flight  flight.Config  `mapstructure:"flight"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.maxSizeMB", 32)
	v.SetDefault("log.maxBackups", 3)
	v.SetDefault("log.maxAgeDays", 14)
	v.SetDefault("log.noColor", false)

	m := mavlink.DefaultOptions()
	v.SetDefault("mavlink.discoveryTimeout", 3*time.Second)
	v.SetDefault("mavlink.systemId", m.SystemID)
	v.SetDefault("mavlink.commandRetries", m.CommandRetries)
	v.SetDefault("mavlink.commandTimeout", m.CommandTimeout)
	v.SetDefault("mavlink.setpointRateHz", m.SetpointRateHz)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "ssl://mqtt.googleapis.com:8883")
	v.SetDefault("mqtt.deviceId", "")
	v.SetDefault("mqtt.privateKey", "")
	v.SetDefault("mqtt.algorithm", "RS256")
	v.SetDefault("mqtt.projectId", "auto-fleet-mgnt")
	v.SetDefault("mqtt.region", "europe-west1")
	v.SetDefault("mqtt.registryId", "fleet-registry")
	v.SetDefault("mqtt.telemetryInterval", time.Second)
	v.SetDefault("mqtt.timeout", 5*time.Second)

	f := flight.DefaultConfig()
	v.SetDefault("flight.telemetryRateHz", f.TelemetryRateHz)
	v.SetDefault("flight.preflightPoll", f.PreflightPoll)
	v.SetDefault("flight.groundBand", f.GroundBand)
	v.SetDefault("flight.climbPoll", f.ClimbPoll)
	v.SetDefault("flight.climbTolerance", f.ClimbTolerance)
	v.SetDefault("flight.settle", f.Settle)
	v.SetDefault("flight.offboardAttempts", f.OffboardAttempts)
	v.SetDefault("flight.offboardBackoff", f.OffboardBackoff)
	v.SetDefault("flight.centerHold", f.CenterHold)
	v.SetDefault("flight.legDwell", f.LegDwell)
	v.SetDefault("flight.minVoltage", f.MinVoltage)
	v.SetDefault("flight.batteryRecheck", f.BatteryRecheck)
	v.SetDefault("flight.manualTakeoverMode", uint32(f.ManualTakeover))
}

// Load reads defaults, then the config file, then PATTERNFLIGHT_* environment
// variables. With an empty path patternflight.yaml is looked up in the
// working directory and /etc/patternflight, and may be absent.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "error reading config file %s", path)
		}
	} else {
		v.SetConfigName("patternflight")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/patternflight")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, errors.Wrap(err, "error reading config file")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "error decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Flight.Validate(); err != nil {
		return errors.WithMessage(err, "flight")
	}
	if c.MAVLink.DiscoveryTimeout <= 0 {
		return errors.New("mavlink.discoveryTimeout must be > 0")
	}
	if c.MQTT.Enabled && c.MQTT.DeviceID == "" {
		return errors.New("mqtt.deviceId is required when mqtt is enabled")
	}
	return nil
}
