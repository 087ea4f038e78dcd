// Package rpc exposes a Printer as the gRPC service zplprint.v1.PrintService.
//
// Messages are plain Go structs carried with a JSON codec, so no protobuf
// code generation is involved. Clients must call with content subtype
// "json"; Dial configures that.
package rpc
