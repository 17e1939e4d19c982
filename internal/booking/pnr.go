package booking

import (
	"encoding/base32"

	"github.com/google/uuid"
)

const pnrLength = 10

var pnrEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewPNR derives a reference code from a random uuid.
func NewPNR() string {
	id := uuid.New()
	return pnrEncoding.EncodeToString(id[:])[:pnrLength]
}
