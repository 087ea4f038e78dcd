package transport

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	// DefaultNetworkPort is the conventional raw-socket printing port.
	DefaultNetworkPort = 9100

	// MaxNetworkPort is the highest valid TCP port.
	MaxNetworkPort = 65535
)

// Target identifies a single printer endpoint. It is implemented only by
// NetworkTarget and SerialTarget.
type Target interface {
	// Kind returns "network" or "serial".
	Kind() string

	// String returns a human readable address used in logs and messages.
	String() string

	isTarget()
}

// NetworkTarget addresses a printer listening for raw ZPL on a TCP port.
type NetworkTarget struct {
	Host string
	Port uint16
}

// Kind implements Target.
func (NetworkTarget) Kind() string { return "network" }

// Address returns the host:port form suitable for net.Dial.
func (t NetworkTarget) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

func (t NetworkTarget) String() string { return t.Address() }

func (NetworkTarget) isTarget() {}

// SerialTarget addresses a printer attached to a local serial device.
type SerialTarget struct {
	DeviceName string
}

// Kind implements Target.
func (SerialTarget) Kind() string { return "serial" }

func (t SerialTarget) String() string { return t.DeviceName }

func (SerialTarget) isTarget() {}

// Resolve validates caller input and builds the matching Target.
//
// When useSerial is set only serialPortName is consulted; otherwise only the
// network host and port are. A zero networkPort selects DefaultNetworkPort.
// Resolve never performs I/O.
func Resolve(useSerial bool, networkHost string, networkPort int, serialPortName string) (Target, error) {
	if useSerial {
		return resolveSerial(serialPortName)
	}
	return resolveNetwork(networkHost, networkPort)
}

func resolveSerial(name string) (Target, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ConfigError{Err: ErrNoSerialPort}
	}
	return SerialTarget{DeviceName: name}, nil
}

func resolveNetwork(host string, port int) (Target, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, &ConfigError{Err: ErrNoHost}
	}
	if port == 0 {
		port = DefaultNetworkPort
	}
	if port < 1 || port > MaxNetworkPort {
		return nil, &ConfigError{Err: fmt.Errorf("%w %d", ErrInvalidPort, port)}
	}
	return NetworkTarget{Host: host, Port: uint16(port)}, nil
}
