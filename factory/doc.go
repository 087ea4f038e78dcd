// Package factory creates print dispatcher implementations.
//
// The factory abstracts the choice between the real dispatcher (TCP and
// serial I/O) and the in-memory simulation, so front ends never depend on a
// concrete implementation.
//
// # Configuration
//
// Defaults can be overridden through environment variables:
//   - ZPL_USE_SIMULATION: "true" or "false" to enable dry-run mode
//   - ZPL_CONNECT_TIMEOUT: integer milliseconds bounding the TCP dial
//   - ZPL_WRITE_TIMEOUT: integer milliseconds bounding write and flush
//
// Values that fail to parse or fall outside [MinTimeout, MaxTimeout] are
// logged and ignored.
//
// # Usage
//
//	factory := factory.NewDispatcherFactory(logger)
//
//	dispatcher, err := factory.CreateDispatcher()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Testing Support
//
// CreateSimulationForTesting returns a simulation with short timeouts:
//
//	func TestMyHandler(t *testing.T) {
//	    sim := factory.NewDispatcherFactory(nil).CreateSimulationForTesting()
//	    // use sim ...
//	}
package factory
