package rpc

import (
	"context"
	"strings"

	"github.com/opd-ai/zplprint"
	"github.com/opd-ai/zplprint/transport"
	"github.com/opd-ai/zplprint/zpl"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "zplprint.v1.PrintService"

const (
	printMethod     = "/" + ServiceName + "/Print"
	listPortsMethod = "/" + ServiceName + "/ListPorts"
)

// PrintRequest is one print job. Field names match the HTTP JSON body.
type PrintRequest struct {
	ZPLContent    string `json:"zplContent"`
	UseSerialPort bool   `json:"useSerialPort"`
	PrinterIP     string `json:"printerIp"`
	PrinterPort   int    `json:"printerPort"`
	SerialPort    string `json:"serialPort"`
}

// PrintReply reports the outcome of a delivery attempt.
type PrintReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ListPortsRequest is empty.
type ListPortsRequest struct{}

// ListPortsReply lists local serial devices of the daemon host.
type ListPortsReply struct {
	Ports   []string             `json:"ports"`
	Details []transport.PortInfo `json:"details,omitempty"`
}

// PrintServiceServer is the server API for PrintService.
type PrintServiceServer interface {
	Print(context.Context, *PrintRequest) (*PrintReply, error)
	ListPorts(context.Context, *ListPortsRequest) (*ListPortsReply, error)
}

// Service implements PrintServiceServer on top of a Printer.
//
// Requests that can never succeed (bad envelope, missing address or port)
// fail with codes.InvalidArgument. A delivery attempt always yields a reply,
// with Success false when the printer could not be reached.
type Service struct {
	printer *zplprint.Printer
	logger  logrus.FieldLogger
}

// NewService wraps printer. A nil logger selects the logrus standard logger.
func NewService(printer *zplprint.Printer, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{printer: printer, logger: logger}
}

// Register installs a Service for printer on s.
func Register(s grpc.ServiceRegistrar, printer *zplprint.Printer, logger logrus.FieldLogger) {
	s.RegisterService(&PrintService_ServiceDesc, NewService(printer, logger))
}

// Print validates and delivers one label document.
func (s *Service) Print(ctx context.Context, in *PrintRequest) (*PrintReply, error) {
	content := strings.TrimSpace(in.ZPLContent)
	if err := zpl.ValidateEnvelope(content); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result := s.printer.Send(ctx, zplprint.Request{
		Payload:    content,
		UseSerial:  in.UseSerialPort,
		Host:       in.PrinterIP,
		Port:       in.PrinterPort,
		SerialPort: in.SerialPort,
	})
	if transport.IsConfigError(result.Err) {
		return nil, status.Error(codes.InvalidArgument, result.Message)
	}

	s.logger.WithFields(logrus.Fields{
		"function": "Service.Print",
		"success":  result.OK,
		"labels":   zpl.CountLabels(content),
	}).Info("Handled remote print request")

	return &PrintReply{Success: result.OK, Message: result.Message}, nil
}

// ListPorts reports the serial devices of the host running the service.
func (s *Service) ListPorts(ctx context.Context, in *ListPortsRequest) (*ListPortsReply, error) {
	return &ListPortsReply{
		Ports:   s.printer.AvailablePorts(),
		Details: s.printer.PortDetails(),
	}, nil
}

func _PrintService_Print_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PrintRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PrintServiceServer).Print(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: printMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PrintServiceServer).Print(ctx, req.(*PrintRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _PrintService_ListPorts_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListPortsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PrintServiceServer).ListPorts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listPortsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PrintServiceServer).ListPorts(ctx, req.(*ListPortsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// PrintService_ServiceDesc is the grpc.ServiceDesc for PrintService.
var PrintService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PrintServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Print", Handler: _PrintService_Print_Handler},
		{MethodName: "ListPorts", Handler: _PrintService_ListPorts_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "zplprint/v1/print.proto",
}
