package id

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// GenerateRef returns a prefixed, lexicographically sortable reference ID.
// Example: run_01J8ZQ3V9M4N5P6Q7R8S9T0VWX
func GenerateRef(prefix string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0))
	return prefix + "_" + id.String()
}
