package real

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opd-ai/zplprint/interfaces"
	"github.com/opd-ai/zplprint/transport"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLabel = "^XA^FO50,50^A0N,50,50^FDTest^FS^XZ"

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestDispatcher(t *testing.T, config *interfaces.DispatchConfig) *PrintDispatcher {
	t.Helper()
	return NewPrintDispatcher(config, newTestLogger())
}

// countingConn records Close calls on a wrapped connection.
type countingConn struct {
	net.Conn
	closes *atomic.Int32
}

func (c *countingConn) Close() error {
	c.closes.Add(1)
	return c.Conn.Close()
}

// countingDialer dials through a real net.Dialer and counts opens and closes.
type countingDialer struct {
	dials  atomic.Int32
	opens  atomic.Int32
	closes atomic.Int32
	dialFn func(ctx context.Context, network, address string) (net.Conn, error)
}

func (d *countingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.dials.Add(1)
	dial := d.dialFn
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	conn, err := dial(ctx, network, address)
	if err != nil {
		return nil, err
	}
	d.opens.Add(1)
	return &countingConn{Conn: conn, closes: &d.closes}, nil
}

// fakeDevice implements transport.Device in memory.
type fakeDevice struct {
	mu       sync.Mutex
	written  bytes.Buffer
	writeErr error
	drainErr error
	short    bool
	drained  int
	closes   int
	block    chan struct{}
}

func (f *fakeDevice) Write(p []byte) (int, error) {
	if f.block != nil {
		<-f.block
		return 0, errors.New("port closed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	if f.short {
		f.written.Write(p[:len(p)/2])
		return len(p) / 2, nil
	}
	f.written.Write(p)
	return len(p), nil
}

func (f *fakeDevice) Drain() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drained++
	return f.drainErr
}

func (f *fakeDevice) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	if f.block != nil && f.closes == 1 {
		close(f.block)
	}
	return nil
}

func (f *fakeDevice) snapshot() (string, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.String(), f.drained, f.closes
}

// fakeOpener hands out a fixed device or error and counts calls.
type fakeOpener struct {
	calls   atomic.Int32
	device  *fakeDevice
	err     error
	nilDev  bool
	panicOn bool
	lastDev string
}

func (o *fakeOpener) Open(name string) (transport.Device, error) {
	o.calls.Add(1)
	o.lastDev = name
	if o.panicOn {
		panic("driver crashed")
	}
	if o.err != nil {
		return nil, o.err
	}
	if o.nilDev {
		return nil, nil
	}
	return o.device, nil
}

// startStubPrinter accepts one connection and returns everything it reads.
func startStubPrinter(t *testing.T) (transport.NetworkTarget, <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return transport.NetworkTarget{Host: "127.0.0.1", Port: uint16(addr.Port)}, received
}

// closedPort returns a local port with nothing listening on it.
func closedPort(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return uint16(port)
}

// TestSendNetworkDeliversExactBytes verifies the payload arrives verbatim.
func TestSendNetworkDeliversExactBytes(t *testing.T) {
	target, received := startStubPrinter(t)
	d := newTestDispatcher(t, nil)
	dialer := &countingDialer{}
	d.SetDialer(dialer)

	result := d.Send(context.Background(), []byte(testLabel), target)
	require.True(t, result.OK, result.Message)
	assert.Equal(t, "print job sent successfully", result.Message)
	assert.NoError(t, result.Err)

	select {
	case data := <-received:
		assert.Equal(t, testLabel, string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("stub printer did not receive payload")
	}

	assert.Equal(t, int32(1), dialer.opens.Load())
	assert.Equal(t, dialer.opens.Load(), dialer.closes.Load())
}

// TestSendNetworkConnectionRefused verifies refused connections are contained.
func TestSendNetworkConnectionRefused(t *testing.T) {
	d := newTestDispatcher(t, nil)
	opener := &fakeOpener{device: &fakeDevice{}}
	d.SetSerialOpener(opener)

	target := transport.NetworkTarget{Host: "127.0.0.1", Port: closedPort(t)}
	result := d.Send(context.Background(), []byte(testLabel), target)

	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "refused")
	var connectErr *transport.ConnectError
	require.ErrorAs(t, result.Err, &connectErr)
	assert.Equal(t, "dial", connectErr.Op)
	assert.Equal(t, int32(0), opener.calls.Load(), "network failure must not touch serial devices")
}

// TestSendNetworkConnectTimeout verifies the dial is bounded.
func TestSendNetworkConnectTimeout(t *testing.T) {
	d := newTestDispatcher(t, &interfaces.DispatchConfig{ConnectTimeout: 50, WriteTimeout: 1000})
	d.SetDialer(&countingDialer{dialFn: func(ctx context.Context, _, _ string) (net.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}})

	start := time.Now()
	result := d.Send(context.Background(), []byte(testLabel), transport.NetworkTarget{Host: "10.255.255.1", Port: 9100})

	assert.False(t, result.OK)
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
	var connectErr *transport.ConnectError
	assert.ErrorAs(t, result.Err, &connectErr)
	assert.Less(t, time.Since(start), 2*time.Second)
}

// TestSendNetworkWriteFailureReleasesConnection verifies close on the error path.
func TestSendNetworkWriteFailureReleasesConnection(t *testing.T) {
	d := newTestDispatcher(t, nil)
	dialer := &countingDialer{dialFn: func(context.Context, string, string) (net.Conn, error) {
		client, server := net.Pipe()
		server.Close()
		return client, nil
	}}
	d.SetDialer(dialer)

	result := d.Send(context.Background(), []byte(testLabel), transport.NetworkTarget{Host: "printer", Port: 9100})

	assert.False(t, result.OK)
	var transferErr *transport.TransferError
	assert.ErrorAs(t, result.Err, &transferErr)
	assert.Equal(t, int32(1), dialer.opens.Load())
	assert.Equal(t, dialer.opens.Load(), dialer.closes.Load())
}

// TestSendNetworkCancelledContext verifies a cancelled caller stops the dial.
func TestSendNetworkCancelledContext(t *testing.T) {
	d := newTestDispatcher(t, nil)
	dialer := &countingDialer{}
	d.SetDialer(dialer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	target, _ := startStubPrinter(t)
	result := d.Send(ctx, []byte(testLabel), target)

	assert.False(t, result.OK)
	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Equal(t, dialer.opens.Load(), dialer.closes.Load())
}

// TestSendSerialDelivers verifies write, drain and close on a serial device.
func TestSendSerialDelivers(t *testing.T) {
	d := newTestDispatcher(t, nil)
	device := &fakeDevice{}
	opener := &fakeOpener{device: device}
	d.SetSerialOpener(opener)
	dialer := &countingDialer{}
	d.SetDialer(dialer)

	result := d.Send(context.Background(), []byte(testLabel), transport.SerialTarget{DeviceName: "COM3"})

	require.True(t, result.OK, result.Message)
	written, drained, closes := device.snapshot()
	assert.Equal(t, testLabel, written)
	assert.Equal(t, 1, drained)
	assert.Equal(t, 1, closes)
	assert.Equal(t, "COM3", opener.lastDev)
	assert.Equal(t, int32(0), dialer.dials.Load(), "serial delivery must not dial")
}

// TestSendSerialMissingDevice verifies a nonexistent device is named in the message.
func TestSendSerialMissingDevice(t *testing.T) {
	d := newTestDispatcher(t, nil)

	result := d.Send(context.Background(), []byte(testLabel), transport.SerialTarget{DeviceName: "COM99"})

	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "COM99")
	var connectErr *transport.ConnectError
	require.ErrorAs(t, result.Err, &connectErr)
	assert.Equal(t, "open", connectErr.Op)
}

// TestSendSerialFailures verifies every serial failure closes the device once.
func TestSendSerialFailures(t *testing.T) {
	tests := []struct {
		name      string
		device    *fakeDevice
		wantOp    string
		wantErrIs error
	}{
		{
			name:   "write error",
			device: &fakeDevice{writeErr: errors.New("input/output error")},
			wantOp: "write",
		},
		{
			name:      "short write",
			device:    &fakeDevice{short: true},
			wantOp:    "write",
			wantErrIs: transport.ErrShortWrite,
		},
		{
			name:   "drain error",
			device: &fakeDevice{drainErr: errors.New("device disconnected")},
			wantOp: "flush",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDispatcher(t, nil)
			d.SetSerialOpener(&fakeOpener{device: tt.device})

			result := d.Send(context.Background(), []byte(testLabel), transport.SerialTarget{DeviceName: "/dev/ttyUSB0"})

			assert.False(t, result.OK)
			assert.Contains(t, result.Message, "/dev/ttyUSB0")
			var transferErr *transport.TransferError
			require.ErrorAs(t, result.Err, &transferErr)
			assert.Equal(t, tt.wantOp, transferErr.Op)
			if tt.wantErrIs != nil {
				assert.ErrorIs(t, result.Err, tt.wantErrIs)
			}
			_, _, closes := tt.device.snapshot()
			assert.Equal(t, 1, closes)
		})
	}
}

// TestSendSerialWriteTimeout verifies a stalled device is closed at the deadline.
func TestSendSerialWriteTimeout(t *testing.T) {
	d := newTestDispatcher(t, &interfaces.DispatchConfig{ConnectTimeout: 1000, WriteTimeout: 50})
	device := &fakeDevice{block: make(chan struct{})}
	d.SetSerialOpener(&fakeOpener{device: device})

	result := d.Send(context.Background(), []byte(testLabel), transport.SerialTarget{DeviceName: "COM4"})

	assert.False(t, result.OK)
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
	var transferErr *transport.TransferError
	assert.ErrorAs(t, result.Err, &transferErr)
	_, _, closes := device.snapshot()
	assert.Equal(t, 1, closes)
}

// TestSendSerialNilDevice verifies the "reports itself open" check.
func TestSendSerialNilDevice(t *testing.T) {
	d := newTestDispatcher(t, nil)
	d.SetSerialOpener(&fakeOpener{nilDev: true})

	result := d.Send(context.Background(), []byte(testLabel), transport.SerialTarget{DeviceName: "COM5"})

	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "could not open port COM5")
	assert.ErrorIs(t, result.Err, transport.ErrPortNotOpen)
}

// TestSendSerialOpenFailureIsolation verifies serial failures never dial.
func TestSendSerialOpenFailureIsolation(t *testing.T) {
	d := newTestDispatcher(t, nil)
	d.SetSerialOpener(&fakeOpener{err: errors.New("permission denied")})
	dialer := &countingDialer{}
	d.SetDialer(dialer)

	result := d.Send(context.Background(), []byte(testLabel), transport.SerialTarget{DeviceName: "/dev/ttyS0"})

	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "permission denied")
	assert.Equal(t, int32(0), dialer.dials.Load())
}

// TestSendRecoversFromPanic verifies collaborator panics are contained.
func TestSendRecoversFromPanic(t *testing.T) {
	d := newTestDispatcher(t, nil)
	d.SetSerialOpener(&fakeOpener{panicOn: true})

	var result interfaces.DeliveryResult
	assert.NotPanics(t, func() {
		result = d.Send(context.Background(), []byte(testLabel), transport.SerialTarget{DeviceName: "COM6"})
	})
	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "driver crashed")
}

// TestSendUnknownTarget verifies a nil target fails before any I/O.
func TestSendUnknownTarget(t *testing.T) {
	d := newTestDispatcher(t, nil)
	dialer := &countingDialer{}
	opener := &fakeOpener{device: &fakeDevice{}}
	d.SetDialer(dialer)
	d.SetSerialOpener(opener)

	result := d.Send(context.Background(), []byte(testLabel), nil)

	assert.False(t, result.OK)
	assert.ErrorIs(t, result.Err, transport.ErrUnknownTarget)
	assert.True(t, transport.IsConfigError(result.Err))
	assert.Equal(t, int32(0), dialer.dials.Load())
	assert.Equal(t, int32(0), opener.calls.Load())
}

// TestGetTypedStats verifies attempt counters.
func TestGetTypedStats(t *testing.T) {
	d := newTestDispatcher(t, nil)
	d.SetSerialOpener(&fakeOpener{device: &fakeDevice{}})
	d.Send(context.Background(), []byte(testLabel), transport.SerialTarget{DeviceName: "COM1"})
	d.SetSerialOpener(&fakeOpener{err: errors.New("busy")})
	d.Send(context.Background(), []byte(testLabel), transport.SerialTarget{DeviceName: "COM1"})

	stats := d.GetTypedStats()
	assert.Equal(t, interfaces.DispatchStats{Attempts: 2, Delivered: 1, Failed: 1}, stats)
	assert.False(t, d.IsSimulation())
}

// slowOpener blocks in Open until release is closed, then hands out device.
type slowOpener struct {
	release chan struct{}
	device  *fakeDevice
}

func (o *slowOpener) Open(name string) (transport.Device, error) {
	<-o.release
	return o.device, nil
}

// TestSendSerialOpenTimeout verifies a hanging open is bounded by
// ConnectTimeout and the late device is closed once it arrives.
func TestSendSerialOpenTimeout(t *testing.T) {
	d := newTestDispatcher(t, &interfaces.DispatchConfig{ConnectTimeout: 50, WriteTimeout: 1000})
	opener := &slowOpener{release: make(chan struct{}), device: &fakeDevice{}}
	d.SetSerialOpener(opener)

	start := time.Now()
	result := d.Send(context.Background(), []byte(testLabel), transport.SerialTarget{DeviceName: "COM7"})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, result.OK)
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
	var connectErr *transport.ConnectError
	require.ErrorAs(t, result.Err, &connectErr)
	assert.Equal(t, "open", connectErr.Op)

	close(opener.release)
	assert.Eventually(t, func() bool {
		written, _, closes := opener.device.snapshot()
		return closes == 1 && written == ""
	}, 2*time.Second, 10*time.Millisecond)
}

// chunkConn accepts at most three bytes per Write.
type chunkConn struct {
	net.Conn
	buf    bytes.Buffer
	writes int
}

func (c *chunkConn) Write(p []byte) (int, error) {
	c.writes++
	if len(p) > 3 {
		p = p[:3]
	}
	return c.buf.Write(p)
}

func (c *chunkConn) SetWriteDeadline(time.Time) error { return nil }
func (c *chunkConn) Close() error                     { return nil }

// TestSendNetworkPartialWrites verifies the payload is written in full when
// the connection accepts it piecemeal.
func TestSendNetworkPartialWrites(t *testing.T) {
	d := newTestDispatcher(t, nil)
	conn := &chunkConn{}
	d.SetDialer(&countingDialer{dialFn: func(context.Context, string, string) (net.Conn, error) {
		return conn, nil
	}})

	result := d.Send(context.Background(), []byte(testLabel), transport.NetworkTarget{Host: "10.0.0.9", Port: 9100})

	require.True(t, result.OK, result.Message)
	assert.Equal(t, testLabel, conn.buf.String())
	assert.Equal(t, (len(testLabel)+2)/3, conn.writes)
}
