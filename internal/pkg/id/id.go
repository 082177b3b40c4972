package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a ULID string. Verification records use it as their opaque
// handle; ULIDs sort by creation time, which keeps store scans readable.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
