package rpc

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/opd-ai/zplprint"
	simulation "github.com/opd-ai/zplprint/testing"
	"github.com/opd-ai/zplprint/transport"
	"github.com/opd-ai/zplprint/zpl"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const label = "^XA^FO20,20^FDRemote^FS^XZ"

type fakePorts struct{}

func (fakePorts) ListPorts() []string { return []string{"COM1", "COM4"} }
func (fakePorts) ListPortDetails() []transport.PortInfo {
	return []transport.PortInfo{{Name: "COM4", IsUSB: true, Product: "ZD420"}}
}

func startService(t *testing.T) (*Client, *simulation.SimulatedPrintDispatcher) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sim := simulation.NewSimulatedPrintDispatcher(nil)
	printer := zplprint.New(sim, zplprint.WithLogger(logger), zplprint.WithPortLister(fakePorts{}))

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	Register(srv, printer, logger)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
	client, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(dialer))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, sim
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPrintNetwork(t *testing.T) {
	client, sim := startService(t)

	reply, err := client.Print(testContext(t), &PrintRequest{
		ZPLContent:  "\r\n" + label + "\r\n",
		PrinterIP:   "10.1.2.3",
		PrinterPort: 6101,
	})

	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Equal(t, "print job sent successfully", reply.Message)

	deliveries := sim.GetDeliveryLog()
	require.Len(t, deliveries, 1)
	assert.Equal(t, transport.NetworkTarget{Host: "10.1.2.3", Port: 6101}, deliveries[0].Target)
	assert.Equal(t, label, string(deliveries[0].Payload))
}

func TestPrintKeepsReviewedBytes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"prepared upload", zpl.Normalize("^XA\n\n\n\n^FDx^FS^XZ"), "^XA\n\n^FDx^FS^XZ"},
		{"blank line kept", "^XA\n\n^FDx^FS^XZ", "^XA\n\n^FDx^FS^XZ"},
		{"outer whitespace trimmed", "\r\n^XA^FDx^FS^XZ\r\n", "^XA^FDx^FS^XZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, sim := startService(t)

			reply, err := client.Print(testContext(t), &PrintRequest{
				ZPLContent: tt.content,
				PrinterIP:  "10.1.2.3",
			})

			require.NoError(t, err)
			assert.True(t, reply.Success)
			deliveries := sim.GetDeliveryLog()
			require.Len(t, deliveries, 1)
			assert.Equal(t, tt.want, string(deliveries[0].Payload))
		})
	}
}

func TestPrintSerialFailureIsReply(t *testing.T) {
	client, sim := startService(t)
	sim.FailTarget(transport.SerialTarget{DeviceName: "COM99"}, errors.New("no such device"))

	reply, err := client.Print(testContext(t), &PrintRequest{
		ZPLContent:    label,
		UseSerialPort: true,
		SerialPort:    "COM99",
	})

	require.NoError(t, err)
	assert.False(t, reply.Success)
	assert.Contains(t, reply.Message, "COM99")
}

func TestPrintInvalidArgument(t *testing.T) {
	tests := []struct {
		name    string
		req     *PrintRequest
		message string
	}{
		{"empty content", &PrintRequest{PrinterIP: "10.1.2.3"}, "no ZPL content to print"},
		{"bad envelope", &PrintRequest{ZPLContent: "^FDx^FS", PrinterIP: "10.1.2.3"}, "invalid ZPL format. File must start with ^XA and end with ^XZ"},
		{"no serial port", &PrintRequest{ZPLContent: label, UseSerialPort: true}, "no serial port selected"},
		{"no host", &PrintRequest{ZPLContent: label}, "no printer address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, sim := startService(t)

			_, err := client.Print(testContext(t), tt.req)

			require.Error(t, err)
			st := status.Convert(err)
			assert.Equal(t, codes.InvalidArgument, st.Code())
			assert.Equal(t, tt.message, st.Message())
			assert.Empty(t, sim.GetDeliveryLog())
		})
	}
}

func TestListPorts(t *testing.T) {
	client, _ := startService(t)

	reply, err := client.ListPorts(testContext(t))

	require.NoError(t, err)
	assert.Equal(t, []string{"COM1", "COM4"}, reply.Ports)
	require.Len(t, reply.Details, 1)
	assert.Equal(t, "ZD420", reply.Details[0].Product)
}

func TestServiceDescMethods(t *testing.T) {
	assert.Equal(t, ServiceName, PrintService_ServiceDesc.ServiceName)
	names := make([]string, 0, len(PrintService_ServiceDesc.Methods))
	for _, m := range PrintService_ServiceDesc.Methods {
		names = append(names, m.MethodName)
	}
	assert.ElementsMatch(t, []string{"Print", "ListPorts"}, names)
}
