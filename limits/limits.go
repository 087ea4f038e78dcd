package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxLabelSize is the largest normalized ZPL document accepted (1MB)
	MaxLabelSize = 1024 * 1024

	// MaxUploadSize bounds a raw multipart upload request (2MB)
	MaxUploadSize = 2 * MaxLabelSize
)

var (
	// ErrLabelEmpty indicates an empty label was provided
	ErrLabelEmpty = errors.New("empty label")

	// ErrLabelTooLarge indicates a label exceeds the maximum size
	ErrLabelTooLarge = errors.New("label too large")
)

// ValidateSize validates data against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidateSize(data []byte, maxSize int) error {
	if len(data) == 0 {
		return ErrLabelEmpty
	}
	if len(data) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrLabelTooLarge, len(data), maxSize)
	}
	return nil
}

// ValidateLabelSize validates a label against MaxLabelSize.
func ValidateLabelSize(label []byte) error {
	return ValidateSize(label, MaxLabelSize)
}
