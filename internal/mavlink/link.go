package mavlink

import (
	"context"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tiiuae/patternflight/internal/vehicle"
)

var (
	ErrConnection       = errors.New("connection failed")
	ErrDiscoveryTimeout = errors.New("no autopilot discovered")
	ErrNotDiscovered    = errors.New("autopilot not discovered yet")
	ErrCommandDenied    = errors.New("command denied")
	ErrCommandTimeout   = errors.New("command not acknowledged")
)

const autopilotComponentID = 1

// Options tune the link. Zero values take the defaults.
type Options struct {
	SystemID       uint8         `mapstructure:"systemId"`
	CommandRetries int           `mapstructure:"commandRetries"`
	CommandTimeout time.Duration `mapstructure:"commandTimeout"`
	SetpointRateHz float64       `mapstructure:"setpointRateHz"`
}

func DefaultOptions() Options {
	return Options{
		SystemID:       245,
		CommandRetries: 3,
		CommandTimeout: time.Second,
		SetpointRateHz: 20,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SystemID == 0 {
		o.SystemID = d.SystemID
	}
	if o.CommandRetries <= 0 {
		o.CommandRetries = d.CommandRetries
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = d.CommandTimeout
	}
	if o.SetpointRateHz <= 0 {
		o.SetpointRateHz = d.SetpointRateHz
	}
	return o
}

// Target identifies the discovered autopilot.
type Target struct {
	SystemID    uint8
	ComponentID uint8
}

// Link is a MAVLink connection to a single PX4 autopilot.
type Link struct {
	node *gomavlib.Node
	send func(message.Message)
	opts Options
	log  zerolog.Logger

	targetMu   sync.RWMutex
	target     Target
	discovered chan struct{}
	once       sync.Once

	stateMu   sync.RWMutex
	state     vehicle.State
	stateSubs subscribers[vehicle.State]
	heartbeat subscribers[vehicle.StatusMessage]

	waitMu     sync.Mutex
	ackWaiters map[common.MAV_CMD][]chan *common.MessageCommandAck
	paramWait  map[string][]chan float32

	setpointMu sync.Mutex
	setpoint   message.Message
}

// Establish opens the endpoint described by address.
func Establish(address string, opts Options, log zerolog.Logger) (*Link, error) {
	endpoint, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:   []gomavlib.EndpointConf{endpoint},
		Dialect:     common.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: opts.SystemID,
	})
	if err != nil {
		return nil, errors.WithMessagef(ErrConnection, "%s: %v", address, err)
	}

	l := newLink(func(m message.Message) { node.WriteMessageAll(m) }, opts, log)
	l.node = node
	l.log.Info().Str("address", address).Msg("Connection established")
	return l, nil
}

func newLink(send func(message.Message), opts Options, log zerolog.Logger) *Link {
	return &Link{
		send:       send,
		opts:       opts.withDefaults(),
		log:        log.With().Str("component", "mavlink").Logger(),
		discovered: make(chan struct{}),
		ackWaiters: map[common.MAV_CMD][]chan *common.MessageCommandAck{},
		paramWait:  map[string][]chan float32{},
	}
}

// Run processes inbound frames and streams setpoints until ctx ends.
func (l *Link) Run(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.streamSetpoints(ctx)
	}()

	if l.node == nil {
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		l.node.Close()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for evt := range l.node.Events() {
			switch e := evt.(type) {
			case *gomavlib.EventChannelOpen:
				l.log.Debug().Msgf("Channel open: %v", e.Channel)
			case *gomavlib.EventChannelClose:
				l.log.Debug().Msgf("Channel closed: %v", e.Channel)
			case *gomavlib.EventParseError:
				l.log.Debug().Err(e.Error).Msg("Parse error")
			case *gomavlib.EventFrame:
				l.handleMessage(e.SystemID(), e.ComponentID(), e.Message())
			}
		}
	}()
}

// Discover waits for the first autopilot heartbeat.
func (l *Link) Discover(ctx context.Context, timeout time.Duration) (Target, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-l.discovered:
		return l.Target(), nil
	case <-ctx.Done():
		return Target{}, ctx.Err()
	case <-t.C:
		return Target{}, errors.WithMessagef(ErrDiscoveryTimeout, "waited %s", timeout)
	}
}

func (l *Link) Target() Target {
	l.targetMu.RLock()
	defer l.targetMu.RUnlock()
	return l.target
}

func (l *Link) targetIfDiscovered() (Target, error) {
	select {
	case <-l.discovered:
		return l.Target(), nil
	default:
		return Target{}, ErrNotDiscovered
	}
}

func (l *Link) Telemetry() *Telemetry {
	return &Telemetry{l}
}

func (l *Link) Action() *Action {
	return &Action{l}
}

func (l *Link) Offboard() *Offboard {
	return &Offboard{l}
}

func (l *Link) Messages() *Messages {
	return &Messages{l}
}

func (l *Link) handleMessage(systemID, componentID uint8, msg message.Message) {
	if hb, ok := msg.(*common.MessageHeartbeat); ok && componentID == autopilotComponentID && systemID != l.opts.SystemID {
		l.once.Do(func() {
			l.targetMu.Lock()
			l.target = Target{SystemID: systemID, ComponentID: componentID}
			l.targetMu.Unlock()
			close(l.discovered)
			l.log.Info().Uint8("system", systemID).Msgf("Autopilot discovered, mode %v", vehicle.CustomMode(hb.CustomMode))
		})
	}

	target, err := l.targetIfDiscovered()
	if err != nil || systemID != target.SystemID {
		return
	}

	switch m := msg.(type) {
	case *common.MessageHeartbeat:
		if componentID != target.ComponentID {
			return
		}
		status := vehicle.StatusMessage{
			Kind:       vehicle.MessageHeartbeat,
			SystemID:   systemID,
			BaseMode:   uint8(m.BaseMode),
			CustomMode: vehicle.CustomMode(m.CustomMode),
		}
		l.heartbeat.each(func(cb func(vehicle.StatusMessage)) { cb(status) })
	case *common.MessageLocalPositionNed:
		l.updateState(func(s *vehicle.State) {
			s.North = float64(m.X)
			s.East = float64(m.Y)
			s.Down = float64(m.Z)
		})
	case *common.MessageSysStatus:
		l.updateState(func(s *vehicle.State) {
			if m.VoltageBattery != unknownVoltage {
				s.BatteryVoltage = float64(m.VoltageBattery) / 1000
			}
			s.PositionLock = positionLock(uint32(m.OnboardControlSensorsPresent), uint32(m.OnboardControlSensorsEnabled), uint32(m.OnboardControlSensorsHealth))
		})
	case *common.MessageExtendedSysState:
		l.updateState(func(s *vehicle.State) {
			s.InAir = inAir(uint8(m.LandedState))
		})
	case *common.MessageCommandAck:
		l.deliverAck(m)
	case *common.MessageParamValue:
		l.deliverParam(m.ParamId, m.ParamValue)
	}
}

func (l *Link) updateState(fn func(s *vehicle.State)) {
	l.stateMu.Lock()
	fn(&l.state)
	l.state.UpdatedAt = time.Now()
	s := l.state
	l.stateMu.Unlock()

	l.stateSubs.each(func(cb func(vehicle.State)) { cb(s) })
}

func (l *Link) snapshot() vehicle.State {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	return l.state
}
