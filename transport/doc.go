// Package transport describes where a label goes and how the channel to a
// printer is opened.
//
// # Delivery Targets
//
// A [Target] is a closed sum type with exactly two variants:
//
//	NetworkTarget{Host: "10.0.0.5", Port: 9100} // raw-socket printing over TCP
//	SerialTarget{DeviceName: "COM3"}            // 9600-8-N-1 serial line
//
// The interface is sealed with an unexported method, so code that switches on
// a Target only ever has to handle these two cases:
//
//	switch t := target.(type) {
//	case transport.NetworkTarget:
//	    // dial t.Address()
//	case transport.SerialTarget:
//	    // open t.DeviceName
//	}
//
// # Resolution
//
// [Resolve] turns the raw values a user typed into a validated Target. It
// performs no I/O and has no side effects, so it is safe to call before any
// connection is attempted:
//
//	target, err := transport.Resolve(false, "10.0.0.5", 0, "")
//	// target == NetworkTarget{Host: "10.0.0.5", Port: 9100}
//
//	_, err = transport.Resolve(true, "", 0, "")
//	// err is a *ConfigError: "no serial port selected"
//
// # Error Taxonomy
//
// Three error types cover every failure a delivery can report:
//
//   - [ConfigError]: missing or malformed target parameters, detected before I/O
//   - [ConnectError]: the channel could not be established (DNS, refused, open failure)
//   - [TransferError]: the channel broke during write or flush
//
// All of them unwrap to the underlying cause so callers may use errors.Is and
// errors.As against net and serial errors.
//
// # Serial Devices
//
// [SerialOpener] opens devices through go.bug.st/serial with a fixed mode of
// 9600 baud, 8 data bits, no parity and one stop bit. The mode is not
// configurable; it matches the factory defaults of common label printers.
//
// [PortEnumerator] lists local serial devices for display. Enumeration
// failures are logged and reported as an empty list.
package transport
