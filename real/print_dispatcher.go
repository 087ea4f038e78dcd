package real

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/zplprint/interfaces"
	"github.com/opd-ai/zplprint/transport"
	"github.com/sirupsen/logrus"
)

// successMessage is reported for every delivered payload.
const successMessage = "print job sent successfully"

// PrintDispatcher delivers ZPL payloads over TCP or a serial line.
type PrintDispatcher struct {
	config *interfaces.DispatchConfig
	logger logrus.FieldLogger

	mu     sync.RWMutex
	dialer transport.Dialer
	opener transport.SerialOpener

	attempts  atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// NewPrintDispatcher creates a dispatcher using the operating system's TCP
// stack and serial devices. A nil config selects the defaults and a nil
// logger selects the logrus standard logger.
func NewPrintDispatcher(config *interfaces.DispatchConfig, logger logrus.FieldLogger) *PrintDispatcher {
	if config == nil {
		config = interfaces.DefaultDispatchConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	logger.WithFields(logrus.Fields{
		"function":        "NewPrintDispatcher",
		"connect_timeout": config.ConnectTimeout,
		"write_timeout":   config.WriteTimeout,
	}).Info("Creating real print dispatcher")

	return &PrintDispatcher{
		config: config,
		logger: logger,
		dialer: &net.Dialer{},
		opener: transport.NewSerialOpener(),
	}
}

// SetDialer replaces the TCP dialer (primarily for testing).
func (d *PrintDispatcher) SetDialer(dialer transport.Dialer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialer = dialer
}

// SetSerialOpener replaces the serial device opener (primarily for testing).
func (d *PrintDispatcher) SetSerialOpener(opener transport.SerialOpener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opener = opener
}

// Send implements IPrintDispatcher.Send. It makes exactly one attempt, closes
// the socket or device on every path, and converts every failure, including
// a panic in a collaborator, into a failed DeliveryResult.
func (d *PrintDispatcher) Send(ctx context.Context, payload []byte, target transport.Target) (result interfaces.DeliveryResult) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	d.attempts.Add(1)

	defer func() {
		if r := recover(); r != nil {
			result = interfaces.Failed(fmt.Errorf("zpl send %v: unexpected failure: %v", target, r))
		}
		d.record(target, len(payload), time.Since(start), result)
	}()

	var err error
	switch t := target.(type) {
	case transport.NetworkTarget:
		err = d.sendNetwork(ctx, payload, t)
	case transport.SerialTarget:
		err = d.sendSerial(ctx, payload, t)
	default:
		err = &transport.ConfigError{Err: fmt.Errorf("%w %T", transport.ErrUnknownTarget, target)}
	}

	if err != nil {
		return interfaces.Failed(err)
	}
	return interfaces.Succeeded(successMessage)
}

// sendNetwork dials the printer and writes the whole payload.
func (d *PrintDispatcher) sendNetwork(ctx context.Context, payload []byte, target transport.NetworkTarget) error {
	addr := target.Address()

	d.mu.RLock()
	dialer := d.dialer
	d.mu.RUnlock()

	dialCtx, cancel := context.WithTimeout(ctx, d.config.ConnectTimeoutDuration())
	defer cancel()

	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return &transport.ConnectError{Op: "dial", Target: addr, Err: err}
	}
	if conn == nil {
		return &transport.ConnectError{Op: "dial", Target: addr, Err: transport.ErrPortNotOpen}
	}
	defer d.closeChannel("network", addr, conn.Close)

	if err := conn.SetWriteDeadline(d.writeDeadline(ctx)); err != nil {
		return &transport.TransferError{Op: "write", Target: addr, Err: err}
	}

	// Cancelling ctx expires the write deadline so a stalled peer cannot
	// hold the call open.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	for written := 0; written < len(payload); {
		n, err := conn.Write(payload[written:])
		written += n
		if err != nil {
			return &transport.TransferError{Op: "write", Target: addr, Err: err}
		}
		if n == 0 {
			return &transport.TransferError{
				Op:     "write",
				Target: addr,
				Err:    fmt.Errorf("%w: %d of %d bytes", transport.ErrShortWrite, written, len(payload)),
			}
		}
	}
	return nil
}

// sendSerial opens the device, writes and drains the payload. The write runs
// on its own goroutine so the write deadline can interrupt it by closing the
// device.
func (d *PrintDispatcher) sendSerial(ctx context.Context, payload []byte, target transport.SerialTarget) error {
	name := target.DeviceName

	d.mu.RLock()
	opener := d.opener
	d.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return &transport.ConnectError{Op: "open", Target: name, Err: err}
	}

	dev, err := d.openSerial(ctx, opener, name)
	if err != nil {
		return &transport.ConnectError{Op: "open", Target: name, Err: err}
	}
	if dev == nil {
		return &transport.ConnectError{Op: "open", Target: name, Err: fmt.Errorf("could not open port %s: %w", name, transport.ErrPortNotOpen)}
	}

	var once sync.Once
	release := func() {
		once.Do(func() { d.closeChannel("serial", name, dev.Close) })
	}
	defer release()

	writeCtx, cancel := context.WithDeadline(ctx, d.writeDeadline(ctx))
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- writeAndDrain(dev, payload, name)
	}()

	select {
	case err := <-done:
		return err
	case <-writeCtx.Done():
		release()
		return &transport.TransferError{Op: "write", Target: name, Err: writeCtx.Err()}
	}
}

// openResult carries the outcome of one Open call back to sendSerial.
type openResult struct {
	dev      transport.Device
	err      error
	panicked any
}

// openSerial runs opener.Open bounded by ConnectTimeout and ctx. A device
// that opens after the bound has expired is closed on arrival.
func (d *PrintDispatcher) openSerial(ctx context.Context, opener transport.SerialOpener, name string) (transport.Device, error) {
	openCtx, cancel := context.WithTimeout(ctx, d.config.ConnectTimeoutDuration())
	defer cancel()

	ch := make(chan openResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- openResult{panicked: r}
			}
		}()
		dev, err := opener.Open(name)
		ch <- openResult{dev: dev, err: err}
	}()

	select {
	case res := <-ch:
		if res.panicked != nil {
			panic(res.panicked)
		}
		return res.dev, res.err
	case <-openCtx.Done():
		go func() {
			if res := <-ch; res.dev != nil {
				d.closeChannel("serial", name, res.dev.Close)
			}
		}()
		return nil, openCtx.Err()
	}
}

// writeAndDrain writes payload to dev and blocks until it is transmitted.
func writeAndDrain(dev transport.Device, payload []byte, name string) error {
	n, err := dev.Write(payload)
	if err != nil {
		return &transport.TransferError{Op: "write", Target: name, Err: err}
	}
	if n < len(payload) {
		return &transport.TransferError{
			Op:     "write",
			Target: name,
			Err:    fmt.Errorf("%w: %d of %d bytes", transport.ErrShortWrite, n, len(payload)),
		}
	}
	if err := dev.Drain(); err != nil {
		return &transport.TransferError{Op: "flush", Target: name, Err: err}
	}
	return nil
}

// writeDeadline returns the earlier of the configured write timeout and the
// context deadline.
func (d *PrintDispatcher) writeDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(d.config.WriteTimeoutDuration())
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}

// closeChannel releases a socket or device. Close errors after a completed
// write are logged only; the bytes already reached the printer.
func (d *PrintDispatcher) closeChannel(kind, target string, closeFn func() error) {
	if err := closeFn(); err != nil {
		d.logger.WithFields(logrus.Fields{
			"function": "PrintDispatcher.closeChannel",
			"kind":     kind,
			"target":   target,
			"error":    err.Error(),
		}).Warn("Failed to close printer channel")
	}
}

// record updates counters and logs the outcome of one Send.
func (d *PrintDispatcher) record(target transport.Target, payloadSize int, elapsed time.Duration, result interfaces.DeliveryResult) {
	fields := logrus.Fields{
		"function":     "PrintDispatcher.Send",
		"target":       fmt.Sprint(target),
		"payload_size": payloadSize,
		"duration":     elapsed.String(),
	}
	if target != nil {
		fields["kind"] = target.Kind()
	}

	if result.OK {
		d.delivered.Add(1)
		d.logger.WithFields(fields).Info("ZPL content sent successfully to printer")
		return
	}

	d.failed.Add(1)
	fields["error"] = result.Message
	d.logger.WithFields(fields).Error("Error sending ZPL content to printer")
}

// IsSimulation implements IPrintDispatcher.IsSimulation
func (d *PrintDispatcher) IsSimulation() bool {
	return false
}

// GetTypedStats returns a snapshot of delivery counters.
func (d *PrintDispatcher) GetTypedStats() interfaces.DispatchStats {
	return interfaces.DispatchStats{
		Attempts:  d.attempts.Load(),
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
	}
}
