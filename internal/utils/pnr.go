package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PNRLength is the fixed length of a booking reference.
const PNRLength = 10

// NewPNR returns a booking reference made of the first PNRLength hex digits
// of a random (version 4) UUID, upper-cased.  Those digits all come from
// the random part of the UUID, giving 40 bits per code; uniqueness is
// still enforced by the bookings.pnr unique key.
func NewPNR() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate pnr: %w", err)
	}
	hex := strings.ReplaceAll(id.String(), "-", "")
	return strings.ToUpper(hex[:PNRLength]), nil
}

// IsPNR reports whether s has the shape of a booking reference: PNRLength
// upper-case letters or digits.
func IsPNR(s string) bool {
	if len(s) != PNRLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
