package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/pkg/errors"

	"github.com/tiiuae/patternflight/internal/commands"
	"github.com/tiiuae/patternflight/internal/config"
	"github.com/tiiuae/patternflight/internal/flight"
	"github.com/tiiuae/patternflight/internal/logging"
	"github.com/tiiuae/patternflight/internal/mavlink"
	"github.com/tiiuae/patternflight/internal/pattern"
	"github.com/tiiuae/patternflight/internal/telemetry"
	"github.com/tiiuae/patternflight/internal/types"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitAborted     = 2
	exitInterrupted = 130
)

const usageText = `Usage: %s [flags] <connection_url> <takeoff_altitude> <pattern_dimension>

Connection URL format should be :
 For UDP    : udp://[bind_host]:bind_port  (udpout://host:port to send)
 For TCP    : tcp://host:port
 For Serial : serial:///path/to/serial/dev[:baudrate]
For example, to connect to the simulator use URL: udp://:14540

Takeoff altitude in meters. Example: 4.0
Pattern dimensions in meters. Example: 3.0

Flags:
`

type flags struct {
	set               *flag.FlagSet
	configPath        *string
	deviceID          *string
	mqttBrokerAddress *string
	privateKeyPath    *string
}

func newFlags(name string, output io.Writer) *flags {
	defaultFlagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	defaultFlagSet.SetOutput(output)
	f := &flags{
		set:               defaultFlagSet,
		configPath:        defaultFlagSet.String("config", "", "Path to a YAML configuration file"),
		deviceID:          defaultFlagSet.String("device_id", "", "The provisioned device id"),
		mqttBrokerAddress: defaultFlagSet.String("mqtt_broker", "", "MQTT broker protocol, address and port, enables MQTT"),
		privateKeyPath:    defaultFlagSet.String("private_key", "", "The private key for the MQTT authentication"),
	}
	defaultFlagSet.Usage = func() {
		fmt.Fprintf(output, usageText, name)
		defaultFlagSet.PrintDefaults()
	}
	return f
}

type arguments struct {
	address string
	pattern pattern.FlightPattern
}

func parseArguments(args []string) (arguments, error) {
	if len(args) != 3 {
		return arguments{}, errors.Errorf("expected 3 arguments, got %d", len(args))
	}
	altitude, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return arguments{}, errors.Errorf("invalid takeoff altitude %q", args[1])
	}
	dimension, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return arguments{}, errors.Errorf("invalid pattern dimension %q", args[2])
	}
	p, err := pattern.New(altitude, dimension)
	if err != nil {
		return arguments{}, err
	}
	return arguments{args[0], p}, nil
}

func main() {
	os.Exit(run(os.Args[0], os.Args[1:], os.Stdin, os.Stderr))
}

func run(name string, argv []string, stdin io.Reader, stderr io.Writer) int {
	f := newFlags(name, stderr)
	if err := f.set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitFailure
	}
	args, err := parseArguments(f.set.Args())
	if err != nil {
		fmt.Fprintf(stderr, "%v\n\n", err)
		f.set.Usage()
		return exitFailure
	}

	cfg, err := config.Load(*f.configPath)
	if err != nil {
		startup := logging.NewDefault(stderr)
		startup.Error().Err(err).Str("path", *f.configPath).Msg("Could not load configuration")
		return exitFailure
	}
	applyFlags(f, &cfg)

	log, closer := logging.New(cfg.Log, stderr)
	defer closer.Close()

	// attach sigint & sigterm listeners
	terminationSignals := make(chan os.Signal, 1)
	signal.Notify(terminationSignals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(terminationSignals)

	// quitFunc will be called when process is terminated
	ctx, quitFunc := context.WithCancel(context.Background())
	defer quitFunc()
	go func() {
		select {
		case sig := <-terminationSignals:
			log.Info().Stringer("signal", sig).Msg("Shutting down..")
			quitFunc()
		case <-ctx.Done():
		}
	}()

	// wait group will make sure all goroutines have time to clean up
	var wg sync.WaitGroup
	defer func() {
		quitFunc()
		log.Info().Msg("Waiting for routines to finish...")
		wg.Wait()
		log.Info().Msg("Signing off - BYE")
	}()

	link, err := mavlink.Establish(args.address, cfg.MAVLink.Options, log)
	if err != nil {
		log.Error().Err(err).Msg("Connection failed")
		return exitFailure
	}
	link.Run(ctx, &wg)

	log.Info().Msg("Waiting to discover system...")
	target, err := link.Discover(ctx, cfg.MAVLink.DiscoveryTimeout)
	if err != nil {
		log.Error().Err(err).Msg("No autopilot found, exiting")
		return failureCode(err)
	}
	log.Info().Uint8("system", target.SystemID).Msg("Discovered autopilot")

	deviceID := cfg.MQTT.DeviceID
	if deviceID == "" {
		deviceID = fmt.Sprintf("mav-%d", target.SystemID)
	}

	plan := flight.NewPlan(args.pattern)
	operator := flight.NewOperator(log)

	handlers := []types.MessageHandler{
		types.NewLogger(log),
		flight.NewController(operator, plan, log),
		telemetry.NewSampler(link.Telemetry(), deviceID, cfg.MQTT.TelemetryInterval, log),
	}
	if cfg.MQTT.Enabled {
		client, err := newMQTTClient(ctx, cfg.MQTT, deviceID, log)
		if err != nil {
			log.Error().Err(err).Msg("MQTT setup failed")
			return failureCode(err)
		}
		defer client.Disconnect(1000)
		handlers = append(handlers,
			telemetry.NewReporter(telemetry.NewMQTTPublisher(client, cfg.MQTT.Timeout), deviceID, log),
			commands.New(commands.NewMQTTSubscriber(client, cfg.MQTT.Timeout), deviceID, log),
		)
	}

	bus := types.NewMessageBus(make(chan types.Message, 100), log, handlers...)
	bus.Run(ctx, &wg)

	// not part of the wait group, a blocked stdin read cannot be interrupted
	go operator.ReadConsole(ctx, stdin)

	mission := flight.NewMission(cfg.Flight, flight.Dependencies{
		Telemetry: link.Telemetry(),
		Action:    link.Action(),
		Offboard:  link.Offboard(),
		Messages:  link.Messages(),
		Gate:      operator,
		Plan:      plan,
		Clock:     flight.NewClock(),
		Log:       log,
		Post:      bus.Post,
		DeviceID:  deviceID,
	})
	outcome, err := mission.Run(ctx)
	code := exitCode(outcome, err)
	log.Info().Stringer("outcome", outcome).Int("exit_code", code).Msg("Mission finished")
	return code
}

func applyFlags(f *flags, cfg *config.Config) {
	if *f.deviceID != "" {
		cfg.MQTT.DeviceID = *f.deviceID
	}
	if *f.mqttBrokerAddress != "" {
		cfg.MQTT.Broker = *f.mqttBrokerAddress
		cfg.MQTT.Enabled = true
	}
	if *f.privateKeyPath != "" {
		cfg.MQTT.PrivateKey = *f.privateKeyPath
	}
}

func exitCode(outcome flight.Outcome, err error) int {
	switch {
	case outcome == flight.OutcomeCompleted:
		return exitOK
	case errors.Is(err, flight.ErrAborted):
		return exitAborted
	case outcome == flight.OutcomeCancelled:
		return exitInterrupted
	default:
		return failureCode(err)
	}
}

func failureCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	return exitFailure
}
