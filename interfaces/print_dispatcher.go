package interfaces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opd-ai/zplprint/transport"
)

// Default timeouts in milliseconds.
const (
	DefaultConnectTimeout = 5000
	DefaultWriteTimeout   = 10000
)

// Configuration validation errors
var (
	// ErrInvalidTimeout indicates a non-positive timeout value
	ErrInvalidTimeout = errors.New("timeout must be positive")
)

// IPrintDispatcher performs exactly one delivery attempt per Send call.
type IPrintDispatcher interface {
	// Send writes payload verbatim to target and reports the outcome.
	Send(ctx context.Context, payload []byte, target transport.Target) DeliveryResult

	// IsSimulation returns true if this is a simulation implementation
	IsSimulation() bool
}

// DeliveryResult is the terminal outcome of a single Send.
type DeliveryResult struct {
	OK      bool   `json:"success"`
	Message string `json:"message"`

	// Err holds the typed cause of a failure (ConfigError, ConnectError or
	// TransferError from the transport package). It is nil on success.
	Err error `json:"-"`
}

// Succeeded builds a successful result.
func Succeeded(message string) DeliveryResult {
	return DeliveryResult{OK: true, Message: message}
}

// Failed builds a failed result whose message is the error text.
func Failed(err error) DeliveryResult {
	return DeliveryResult{OK: false, Message: err.Error(), Err: err}
}

// DispatchStats is a snapshot of dispatcher counters.
type DispatchStats struct {
	Attempts  uint64 `json:"attempts"`
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
}

// DispatchConfig holds configuration for print dispatcher implementations
type DispatchConfig struct {
	// UseSimulation determines whether to use simulation or real transports
	UseSimulation bool

	// ConnectTimeout bounds TCP dial time in milliseconds
	ConnectTimeout int

	// WriteTimeout bounds the write and flush of one payload in milliseconds
	WriteTimeout int
}

// DefaultDispatchConfig returns a real-transport configuration with default timeouts.
func DefaultDispatchConfig() *DispatchConfig {
	return &DispatchConfig{
		UseSimulation:  false,
		ConnectTimeout: DefaultConnectTimeout,
		WriteTimeout:   DefaultWriteTimeout,
	}
}

// Validate checks that both timeouts are positive.
func (c *DispatchConfig) Validate() error {
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect %w, got %d", ErrInvalidTimeout, c.ConnectTimeout)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write %w, got %d", ErrInvalidTimeout, c.WriteTimeout)
	}
	return nil
}

// ConnectTimeoutDuration returns ConnectTimeout as a time.Duration.
func (c *DispatchConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Millisecond
}

// WriteTimeoutDuration returns WriteTimeout as a time.Duration.
func (c *DispatchConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Millisecond
}
