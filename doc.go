// Package zplprint sends ZPL label programs to Zebra-compatible printers.
//
// A label reaches the printer over one of two channels: a raw TCP socket
// (conventionally port 9100) or a local serial line at 9600-8-N-1. Printer
// hides the difference behind one call:
//
//	dispatcher := real.NewPrintDispatcher(interfaces.DefaultDispatchConfig(), logger)
//	printer := zplprint.New(dispatcher, zplprint.WithLogger(logger))
//
//	result := printer.Send(ctx, zplprint.Request{
//	    Payload: "^XA^FO50,50^A0N,50,50^FDTest^FS^XZ",
//	    Host:    "192.168.1.100",
//	    Port:    9100,
//	})
//	if !result.OK {
//	    log.Printf("print failed: %s", result.Message)
//	}
//
// Serial delivery selects a device instead of an address:
//
//	result := printer.Send(ctx, zplprint.Request{
//	    Payload:    label,
//	    UseSerial:  true,
//	    SerialPort: "/dev/ttyUSB0",
//	})
//
// # Validation
//
// Send does not inspect the label. Front ends validate uploads with the zpl
// package first, which checks the ^XA ... ^XZ envelope and normalizes line
// endings. Send does validate the addressing (see transport.Resolve) and
// fails without touching the network when it is incomplete.
//
// # Results
//
// Every outcome is an interfaces.DeliveryResult; Send never returns an error
// and never retries. The typed cause is available in DeliveryResult.Err.
//
// # Front Ends
//
// The server package serves an upload page and a JSON print endpoint. The rpc
// package exposes the same operations over gRPC. cmd/zplprintd runs both;
// cmd/zplsend prints a single file from the command line.
package zplprint
