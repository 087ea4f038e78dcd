// Package limits provides centralized size constants and validation functions
// for label payloads and uploads.
//
// # Size Hierarchy
//
//   - MaxLabelSize (1MB): the largest normalized ZPL document accepted for
//     printing.
//
//   - MaxUploadSize (2MB): the bound on a raw multipart upload, which carries
//     form overhead and unnormalized line endings on top of the label.
//
// # Validation Functions
//
//	err := limits.ValidateLabelSize(payload)
//	if err != nil {
//	    // ErrLabelEmpty or ErrLabelTooLarge
//	}
//
// For custom bounds, use ValidateSize.
package limits
