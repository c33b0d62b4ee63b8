// Package barcode converts the 7-character codes stored by the scale software
// into the 5-character barcodes MiAll expects.
package barcode

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mrlokans/scalesync/internal/apperr"
)

const (
	// RawLength is the only accepted length of a scale code.
	RawLength = 7
	// ExtractStart is the offset of the MiAll barcode inside the scale code.
	ExtractStart = 2
	// ExtractLength is the length of the MiAll barcode.
	ExtractLength = 5
)

// Normalize trims raw and returns the 5 characters starting at offset 2.
// label is only used in error messages (usually the product name).
func Normalize(raw, label string) (string, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", &apperr.ValidationError{Label: label, Msg: "barcode is empty"}
	}

	n := utf8.RuneCountInString(code)
	if n != RawLength {
		return "", &apperr.ValidationError{
			Label: label,
			Msg:   fmt.Sprintf("barcode %q must be exactly %d characters, got %d", code, RawLength, n),
		}
	}

	runes := []rune(code)
	return string(runes[ExtractStart : ExtractStart+ExtractLength]), nil
}
