package transport

import (
	"context"
	"net"

	"go.bug.st/serial"
)

// Fixed serial line settings used for every label printer.
const (
	SerialBaudRate = 9600
	SerialDataBits = 8
)

// Dialer opens outbound TCP connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Device is an open serial line. go.bug.st/serial.Port satisfies it.
type Device interface {
	// Write sends bytes to the device.
	Write(p []byte) (int, error)

	// Drain blocks until every buffered byte has been transmitted.
	Drain() error

	// Close releases the device.
	Close() error
}

// SerialOpener opens a named serial device.
type SerialOpener interface {
	Open(name string) (Device, error)
}

// SerialMode returns the 9600-8-N-1 mode applied to every device. Flow
// control is left disabled.
func SerialMode() *serial.Mode {
	return &serial.Mode{
		BaudRate: SerialBaudRate,
		DataBits: SerialDataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

type serialOpener struct {
	open func(name string, mode *serial.Mode) (serial.Port, error)
}

// NewSerialOpener returns a SerialOpener backed by go.bug.st/serial.
func NewSerialOpener() SerialOpener {
	return &serialOpener{open: serial.Open}
}

// Open opens name with SerialMode. A nil port without an error is reported
// as ErrPortNotOpen.
func (o *serialOpener) Open(name string) (Device, error) {
	port, err := o.open(name, SerialMode())
	if err != nil {
		return nil, err
	}
	if port == nil {
		return nil, ErrPortNotOpen
	}
	return port, nil
}
