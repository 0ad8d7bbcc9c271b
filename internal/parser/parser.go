// Package parser turns raw uploaded files into canonical activities.
//
// Each supported source format has one Parser variant, selected from a
// closed extension table. Adding a format means adding one variant and one
// table entry; nothing else changes.
package parser

import (
	"fmt"
	"strings"

	"example.com/garmcloud/internal/domain"
)

// Parser converts a raw file into a canonical Activity. Implementations
// read the input only; they never persist anything.
type Parser interface {
	// Label names the converter for the wire ("GpxConverter", "FitConverter").
	Label() string
	// Parse decodes data into an Activity owned by uuid. Records come out in
	// source-file order. A malformed file yields a *ParseError.
	Parse(data []byte, uuid string) (*domain.Activity, error)
}

// ParseError reports a malformed source file with a human-readable cause.
type ParseError struct {
	Converter string
	Cause     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: unparsable input: %v", e.Converter, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// byExtension is the closed dispatch table. The declared extension is
// trusted as-is; there is no content sniffing.
var byExtension = map[string]Parser{
	".gpx": GPX{},
	".fit": FIT{},
}

// ForExtension returns the parser for ext (case-insensitive, leading dot
// required). The second result is false for unsupported extensions.
func ForExtension(ext string) (Parser, bool) {
	p, ok := byExtension[strings.ToLower(ext)]
	return p, ok
}

// Supported reports whether ext maps to a known parser.
func Supported(ext string) bool {
	_, ok := ForExtension(ext)
	return ok
}
