package zplprint

import (
	"context"
	"errors"
	"time"

	"github.com/opd-ai/zplprint/interfaces"
	"github.com/opd-ai/zplprint/transport"
	"github.com/sirupsen/logrus"
)

// ErrNoContent is reported when a request carries no payload.
var ErrNoContent = errors.New("no ZPL content to print")

// Request is one print job as submitted by a front end. The JSON names match
// the web form.
type Request struct {
	Payload    string `json:"zplContent"`
	UseSerial  bool   `json:"useSerialPort"`
	Host       string `json:"printerIp"`
	Port       int    `json:"printerPort"`
	SerialPort string `json:"serialPort"`
}

// PortLister lists local serial devices. *transport.PortEnumerator satisfies it.
type PortLister interface {
	ListPorts() []string
	ListPortDetails() []transport.PortInfo
}

// Printer resolves print requests into delivery targets and hands them to a
// dispatcher.
type Printer struct {
	dispatcher  interfaces.IPrintDispatcher
	ports       PortLister
	logger      logrus.FieldLogger
	sendTimeout time.Duration
}

// Option configures a Printer.
type Option func(*Printer)

// WithLogger sets the log sink.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Printer) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPortLister replaces the serial port enumerator.
func WithPortLister(ports PortLister) Option {
	return func(p *Printer) {
		if ports != nil {
			p.ports = ports
		}
	}
}

// WithSendTimeout bounds the whole of each Send. Zero disables the bound.
func WithSendTimeout(d time.Duration) Option {
	return func(p *Printer) {
		p.sendTimeout = d
	}
}

// New creates a Printer on top of dispatcher.
func New(dispatcher interfaces.IPrintDispatcher, opts ...Option) *Printer {
	p := &Printer{
		dispatcher: dispatcher,
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ports == nil {
		p.ports = transport.NewPortEnumerator(p.logger)
	}
	return p
}

// Send validates the addressing in req and delivers its payload. The payload
// itself is expected to have passed zpl.Prepare or zpl.ValidateEnvelope; Send
// only rejects an empty one. Configuration errors are returned before the
// dispatcher is called.
func (p *Printer) Send(ctx context.Context, req Request) interfaces.DeliveryResult {
	if req.Payload == "" {
		return interfaces.Failed(ErrNoContent)
	}

	target, err := transport.Resolve(req.UseSerial, req.Host, req.Port, req.SerialPort)
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"function":   "Printer.Send",
			"use_serial": req.UseSerial,
			"error":      err.Error(),
		}).Warn("Rejected print request")
		return interfaces.Failed(err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if p.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.sendTimeout)
		defer cancel()
	}

	return p.dispatcher.Send(ctx, []byte(req.Payload), target)
}

// AvailablePorts lists local serial device names. It never fails.
func (p *Printer) AvailablePorts() []string {
	return p.ports.ListPorts()
}

// PortDetails lists local serial devices with USB metadata.
func (p *Printer) PortDetails() []transport.PortInfo {
	return p.ports.ListPortDetails()
}

// IsSimulation reports whether jobs are recorded rather than printed.
func (p *Printer) IsSimulation() bool {
	return p.dispatcher.IsSimulation()
}
