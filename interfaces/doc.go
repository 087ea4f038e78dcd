// Package interfaces defines the delivery abstraction shared by the real and
// simulated print dispatchers.
//
// [IPrintDispatcher] is the single "send this payload to a printer" operation.
// Implementations never return an error; every outcome, including bad
// configuration, refused connections and broken serial lines, is reported as
// a [DeliveryResult]:
//
//	result := dispatcher.Send(ctx, payload, transport.NetworkTarget{Host: "10.0.0.5", Port: 9100})
//	if !result.OK {
//	    log.Printf("print failed: %s", result.Message)
//	}
//
// # Configuration
//
// [DispatchConfig] holds the timeouts applied to each delivery attempt:
//
//	config := &interfaces.DispatchConfig{
//	    UseSimulation:  false,
//	    ConnectTimeout: 5000,  // milliseconds
//	    WriteTimeout:   10000, // milliseconds
//	}
//	if err := config.Validate(); err != nil {
//	    log.Fatalf("invalid config: %v", err)
//	}
//
// # Implementation Selection
//
// The factory package creates implementations based on configuration:
//   - UseSimulation=true: SimulatedPrintDispatcher from the testing package
//   - UseSimulation=false: PrintDispatcher from the real package
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Concurrent sends to
// different targets need no coordination; behaviour of concurrent sends to
// the same printer is left to the printer.
package interfaces
