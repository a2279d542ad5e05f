package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tiiuae/patternflight/internal/config"
)

const username = "unused" // always this value in GCP

func newMQTTClient(ctx context.Context, cfg config.MQTT, deviceID string, log zerolog.Logger) (mqtt.Client, error) {
	log.Info().Str("address", cfg.Broker).Msg("MQTT broker")

	// generate MQTT client
	clientID := fmt.Sprintf(
		"projects/%s/locations/%s/registries/%s/devices/%s",
		cfg.ProjectID, cfg.Region, cfg.RegistryID, deviceID)
	log.Info().Str("client_id", clientID).Msg("MQTT client")

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetUsername(username).
		SetAutoReconnect(true).
		SetProtocolVersion(4) // Use MQTT 3.1.1

	if strings.HasPrefix(cfg.Broker, "ssl://") || strings.HasPrefix(cfg.Broker, "tls://") {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	if cfg.PrivateKey != "" {
		keyData, err := os.ReadFile(cfg.PrivateKey)
		if err != nil {
			return nil, errors.Wrap(err, "could not read mqtt private key")
		}
		pass, err := jwtPassword(cfg.Algorithm, cfg.ProjectID, keyData, time.Now())
		if err != nil {
			return nil, err
		}
		opts.SetPassword(pass)
	}

	client := mqtt.NewClient(opts)
	for {
		log.Info().Msg("Connecting MQTT...")
		tok := client.Connect()
		if tok.WaitTimeout(cfg.Timeout) {
			if err := tok.Error(); err != nil {
				return nil, errors.Wrap(err, "mqtt connect")
			}
			log.Info().Msg("..Connected")
			return client, nil
		}
		log.Warn().Msg("Connection Timeout")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
}

// jwtPassword signs the broker password token. It is valid for 24 hours.
func jwtPassword(algorithm, audience string, keyData []byte, now time.Time) (string, error) {
	var key interface{}
	var err error
	switch algorithm {
	case "RS256":
		key, err = jwt.ParseRSAPrivateKeyFromPEM(keyData)
	case "ES256":
		key, err = jwt.ParseECPrivateKeyFromPEM(keyData)
	default:
		return "", errors.Errorf("unknown algorithm: %s", algorithm)
	}
	if err != nil {
		return "", errors.Wrap(err, "could not parse private key")
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(algorithm), &jwt.StandardClaims{
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(24 * time.Hour).Unix(),
		Audience:  audience,
	})
	pass, err := token.SignedString(key)
	return pass, errors.Wrap(err, "could not sign token")
}
