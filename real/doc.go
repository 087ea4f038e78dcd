// Package real provides the production print dispatcher.
//
// PrintDispatcher implements interfaces.IPrintDispatcher over two physical
// channels:
//
//	┌─────────────────────────────────────────┐
//	│            PrintDispatcher              │
//	│   Send(ctx, payload, transport.Target)  │
//	└───────────────┬───────────────┬─────────┘
//	                │               │
//	                ▼               ▼
//	┌──────────────────────┐ ┌──────────────────────┐
//	│ NetworkTarget        │ │ SerialTarget         │
//	│ TCP dial, write,     │ │ open 9600-8-N-1,     │
//	│ close                │ │ write, drain, close  │
//	└──────────────────────┘ └──────────────────────┘
//
// # Usage
//
//	dispatcher := real.NewPrintDispatcher(interfaces.DefaultDispatchConfig(), logger)
//	result := dispatcher.Send(ctx, payload, transport.NetworkTarget{Host: "10.0.0.5", Port: 9100})
//
// # Timeouts
//
// Every blocking step is bounded. The TCP dial and the serial open are
// bounded by ConnectTimeout. The write of either transport and the serial
// drain are bounded by WriteTimeout. A
// deadline on the caller's context applies when it is earlier. An expired
// dial is reported as a transport.ConnectError and an expired write as a
// transport.TransferError.
//
// # Retry Behavior
//
// None. Each Send makes exactly one attempt; retry policy belongs to the caller.
//
// # Resource Release
//
// The socket or serial device is closed on every exit path. Close errors
// after a completed write are logged and do not fail the job.
//
// # Testing Support
//
// The TCP dialer and serial opener are injectable:
//
//	dispatcher.SetDialer(&countingDialer{})
//	dispatcher.SetSerialOpener(&fakeOpener{})
package real
