// Package server is the browser front end of the print service.
//
// It serves an upload page for .txt files holding ZPL, shows the normalized
// label for review and sends it to a network or serial printer:
//
//	GET  /         upload page with default printer address and serial ports
//	POST /         multipart upload (field "zplFile")
//	POST /print    JSON print request, answered with {"success", "message"}
//	GET  /ports    serial devices as JSON
//	GET  /healthz  liveness check
//
// Every request is logged through logrus.
package server
