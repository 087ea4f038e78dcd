package transport

import (
	"errors"
	"fmt"
)

// Common errors for printer delivery
var (
	// ErrNoSerialPort indicates serial delivery was requested without a device
	ErrNoSerialPort = errors.New("no serial port selected")

	// ErrNoHost indicates network delivery was requested without a printer address
	ErrNoHost = errors.New("no printer address")

	// ErrInvalidPort indicates the printer port is outside 1..65535
	ErrInvalidPort = errors.New("invalid printer port")

	// ErrUnknownTarget indicates a Target value of an unsupported type
	ErrUnknownTarget = errors.New("unknown delivery target")

	// ErrPortNotOpen indicates the serial device did not report itself open
	ErrPortNotOpen = errors.New("port is not open")

	// ErrShortWrite indicates fewer bytes were accepted than the payload holds
	ErrShortWrite = errors.New("short write")
)

// ConfigError reports missing or malformed target parameters. It is always
// produced before any connection is attempted.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ConnectError reports a failure to establish the channel to a printer.
type ConnectError struct {
	Op     string // "dial" or "open"
	Target string // address or device name
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("zpl %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// TransferError reports a failure while writing or flushing an open channel.
type TransferError struct {
	Op     string // "write" or "flush"
	Target string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("zpl %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
