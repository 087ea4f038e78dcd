// Package zpl validates uploaded label documents before they are handed to a
// print dispatcher.
//
// A document is accepted when, after [Normalize], it starts with the
// start-of-format command ^XA and ends with the end-of-format command ^XZ
// (case-insensitive). The dispatcher trusts this envelope and never checks it
// again.
//
// Normalization trims surrounding whitespace, converts CRLF and CR line
// endings to LF, and then makes a single pass replacing "\n\n" with "\n".
// Because that pass does not repeat, a run of three or more line breaks is
// shortened but not collapsed to one:
//
//	Normalize("^XA\r\n\r\n^XZ")   // "^XA\n^XZ"
//	Normalize("^XA\n\n\n\n^XZ")   // "^XA\n\n^XZ"
package zpl
