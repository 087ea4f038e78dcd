package zpl

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/opd-ai/zplprint/limits"
)

const (
	// StartFormat opens every ZPL label.
	StartFormat = "^XA"

	// EndFormat closes every ZPL label.
	EndFormat = "^XZ"

	// FileExtension is the only accepted upload extension.
	FileExtension = ".txt"
)

// Validation errors. The messages are shown to users as-is.
var (
	ErrNoFile          = errors.New("please select a file")
	ErrNotText         = errors.New("please upload a .txt file")
	ErrEmpty           = errors.New("no ZPL content to print")
	ErrInvalidEnvelope = errors.New("invalid ZPL format. File must start with ^XA and end with ^XZ")
	ErrNotUTF8         = errors.New("error processing the file. Please ensure it contains valid ZPL code")
)

// Normalize trims s and unifies its line endings. See the package
// documentation for the exact blank-line behaviour.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n\n", "\n")
}

// ValidateEnvelope reports whether s is bounded by ^XA and ^XZ.
func ValidateEnvelope(s string) error {
	if s == "" {
		return ErrEmpty
	}
	if !hasPrefixFold(s, StartFormat) || !hasSuffixFold(s, EndFormat) {
		return ErrInvalidEnvelope
	}
	return nil
}

// CheckFileName rejects uploads that are not .txt files.
func CheckFileName(name string) error {
	if name == "" {
		return ErrNoFile
	}
	if !strings.EqualFold(filepath.Ext(name), FileExtension) {
		return ErrNotText
	}
	return nil
}

// Prepare reads an uploaded file and returns its normalized content once the
// name, size, encoding and envelope checks pass.
func Prepare(r io.Reader, name string) (string, error) {
	if r == nil {
		return "", ErrNoFile
	}
	if err := CheckFileName(name); err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, limits.MaxLabelSize+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return "", ErrNoFile
	}
	if err := limits.ValidateLabelSize(data); err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", ErrNotUTF8
	}

	content := Normalize(string(data))
	if err := ValidateEnvelope(content); err != nil {
		return "", err
	}
	return content, nil
}

// CountLabels returns the number of ^XA start commands in s.
func CountLabels(s string) int {
	return strings.Count(strings.ToUpper(s), StartFormat)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}
