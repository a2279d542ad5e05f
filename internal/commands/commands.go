package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/tiiuae/patternflight/internal/types"
)

// Subscriber delivers payloads published on a topic filter.
type Subscriber interface {
	Subscribe(topic string, handler func(topic string, payload []byte)) error
}

type mqttSubscriber struct {
	client  mqtt.Client
	timeout time.Duration
}

func NewMQTTSubscriber(client mqtt.Client, timeout time.Duration) Subscriber {
	return &mqttSubscriber{client, timeout}
}

func (s *mqttSubscriber) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := s.client.Subscribe(topic, 0, func(client mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(s.timeout) {
		return errors.Errorf("subscribe to %s timed out", topic)
	}
	return errors.Wrapf(token.Error(), "subscribe to %s", topic)
}

type controlCommand struct {
	Command   string
	Payload   string
	Timestamp time.Time
}

type deviceConfig struct {
	Pattern *struct {
		Dimension *float64 `yaml:"dimension"`
	} `yaml:"pattern"`
}

type commandHandler struct {
	sub      Subscriber
	deviceID string
	log      zerolog.Logger
}

// New subscribes to /devices/<id>/commands/# and /devices/<id>/config and
// turns what arrives into bus messages.
func New(sub Subscriber, deviceID string, log zerolog.Logger) types.MessageHandler {
	return &commandHandler{sub, deviceID, log.With().Str("component", "commands").Logger()}
}

func (c *commandHandler) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		c.log.Info().Msg("Subscribing to MQTT commands")
		commandTopic := fmt.Sprintf("/devices/%s/commands/", c.deviceID)
		err := c.sub.Subscribe(commandTopic+"#", func(topic string, payload []byte) {
			subfolder := strings.TrimPrefix(topic, commandTopic)
			switch subfolder {
			case "control":
				c.log.Info().Msgf("Got control command: %s", payload)
				c.postAll(post, c.handleControlCommand(payload))
			default:
				c.log.Warn().Msgf("Unknown command subfolder: %v", subfolder)
			}
		})
		if err != nil {
			c.log.Error().Err(err).Msg("Command subscription failed")
		}

		// Latest config is received on startup
		configTopic := fmt.Sprintf("/devices/%s/config", c.deviceID)
		err = c.sub.Subscribe(configTopic, func(topic string, payload []byte) {
			c.log.Info().Msgf("Got config:\n%s", payload)
			c.postAll(post, c.handleConfig(payload))
		})
		if err != nil {
			c.log.Error().Err(err).Msg("Config subscription failed")
		}

		<-ctx.Done()
	}()
}

func (c *commandHandler) Receive(message types.Message) {
}

func (c *commandHandler) postAll(post types.PostFn, messages []types.Message) {
	for _, m := range messages {
		post(m)
	}
}

func (c *commandHandler) handleControlCommand(payload []byte) []types.Message {
	var cmd controlCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		c.log.Warn().Err(err).Msg("Could not unmarshal command")
		return nil
	}

	switch cmd.Command {
	case types.TypeConfirmCycle:
		return []types.Message{types.CreateMessage(types.TypeConfirmCycle, "operator", c.deviceID, types.ConfirmCycle{Source: "mqtt"})}
	default:
		c.log.Warn().Msgf("Unknown command: %s", cmd.Command)
		return nil
	}
}

func (c *commandHandler) handleConfig(payload []byte) []types.Message {
	var cfg deviceConfig
	if err := yaml.Unmarshal(payload, &cfg); err != nil {
		c.log.Warn().Err(err).Msg("Failed to unmarshal config yaml")
		return nil
	}
	if cfg.Pattern == nil || cfg.Pattern.Dimension == nil {
		c.log.Debug().Msg("pattern config was not included")
		return nil
	}
	return []types.Message{types.CreateMessage(types.TypePatternUpdate, "operator", c.deviceID, types.PatternUpdate{Dimension: *cfg.Pattern.Dimension})}
}
