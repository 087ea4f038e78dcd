// Package testing provides a simulated print dispatcher for dry runs and
// deterministic tests.
//
// # Overview
//
// SimulatedPrintDispatcher implements interfaces.IPrintDispatcher entirely in
// memory. Nothing is dialed and no device is opened; every Send is recorded
// in a delivery log that tests can inspect.
//
// # Simulation vs Real Implementation
//
//   - Simulation (this package): payloads are recorded, not transmitted. Used
//     for tests of the HTTP and gRPC front ends and for the daemon's dry-run mode.
//
//   - Real (real package): payloads go over TCP or a serial line.
//
// Both implementations conform to interfaces.IPrintDispatcher and are
// selected by the factory package.
//
// # Usage
//
//	sim := testing.NewSimulatedPrintDispatcher(&interfaces.DispatchConfig{
//	    UseSimulation:  true,
//	    ConnectTimeout: 5000,
//	    WriteTimeout:   10000,
//	})
//	sim.FailTarget(transport.SerialTarget{DeviceName: "COM9"}, errors.New("unplugged"))
//
//	result := sim.Send(ctx, payload, transport.NetworkTarget{Host: "10.0.0.5", Port: 9100})
//	log := sim.GetDeliveryLog()
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package testing
