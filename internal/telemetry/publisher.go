package telemetry

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

// MQTT parameters
const (
	qos    = 1 // QoS 2 isn't supported in GCP
	retain = false
)

// Publisher sends a payload to a cloud topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type mqttPublisher struct {
	client  mqtt.Client
	timeout time.Duration
}

func NewMQTTPublisher(client mqtt.Client, timeout time.Duration) Publisher {
	return &mqttPublisher{client, timeout}
}

func (p *mqttPublisher) Publish(topic string, payload []byte) error {
	tok := p.client.Publish(topic, qos, retain, payload)
	if !tok.WaitTimeout(p.timeout) {
		return errors.Errorf("could not publish to %s within %s", topic, p.timeout)
	}
	return errors.Wrapf(tok.Error(), "publish to %s", topic)
}
