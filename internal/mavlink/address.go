package mavlink

import (
	"net"
	"strconv"
	"strings"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/pkg/errors"
)

const defaultSerialBaud = 57600

// ParseAddress converts a connection URL into a gomavlib endpoint.
//
//	udp://[host]:port      listen for the vehicle (same as udpin://)
//	udpout://host:port     send to the vehicle
//	tcp://host:port        connect to the vehicle
//	tcpin://[host]:port    accept a connection from the vehicle
//	serial:///dev/ttyX[:baud]
func ParseAddress(address string) (gomavlib.EndpointConf, error) {
	scheme, rest, ok := strings.Cut(address, "://")
	if !ok || rest == "" {
		return nil, errors.WithMessagef(ErrConnection, "malformed connection url %q", address)
	}

	switch scheme {
	case "udp", "udpin":
		hostPort, err := listenAddress(rest)
		if err != nil {
			return nil, err
		}
		return gomavlib.EndpointUDPServer{Address: hostPort}, nil
	case "udpout":
		hostPort, err := dialAddress(rest)
		if err != nil {
			return nil, err
		}
		return gomavlib.EndpointUDPClient{Address: hostPort}, nil
	case "tcp", "tcpout":
		hostPort, err := dialAddress(rest)
		if err != nil {
			return nil, err
		}
		return gomavlib.EndpointTCPClient{Address: hostPort}, nil
	case "tcpin":
		hostPort, err := listenAddress(rest)
		if err != nil {
			return nil, err
		}
		return gomavlib.EndpointTCPServer{Address: hostPort}, nil
	case "serial":
		return serialEndpoint(rest)
	default:
		return nil, errors.WithMessagef(ErrConnection, "unsupported scheme %q in %q", scheme, address)
	}
}

func listenAddress(s string) (string, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return "", errors.WithMessagef(ErrConnection, "invalid address %q: %v", s, err)
	}
	if err := checkPort(port); err != nil {
		return "", err
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return net.JoinHostPort(host, port), nil
}

func dialAddress(s string) (string, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return "", errors.WithMessagef(ErrConnection, "invalid address %q: %v", s, err)
	}
	if host == "" {
		return "", errors.WithMessagef(ErrConnection, "missing host in %q", s)
	}
	if err := checkPort(port); err != nil {
		return "", err
	}
	return net.JoinHostPort(host, port), nil
}

func checkPort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return errors.WithMessagef(ErrConnection, "invalid port %q", port)
	}
	return nil
}

func serialEndpoint(s string) (gomavlib.EndpointConf, error) {
	device, baud := s, defaultSerialBaud
	if i := strings.LastIndex(s, ":"); i > 0 {
		b, err := strconv.Atoi(s[i+1:])
		if err != nil || b <= 0 {
			return nil, errors.WithMessagef(ErrConnection, "invalid baud rate in %q", s)
		}
		device, baud = s[:i], b
	}
	if !strings.HasPrefix(device, "/") {
		return nil, errors.WithMessagef(ErrConnection, "serial device must be an absolute path, got %q", device)
	}
	return gomavlib.EndpointSerial{Device: device, Baud: baud}, nil
}
