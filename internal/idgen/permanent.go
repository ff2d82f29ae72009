// Package idgen generates the two identifiers in the data model: the
// permanent id (a ULID-based, monotonic, globally-opaque identifier)
// and the short id (a mutable, per-clone-unique display token).
package idgen

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// PermanentIDPrefix is prepended to every generated permanent id.
const PermanentIDPrefix = "is-"

// NewPermanentID generates a permanent id of the form is-<26-char
// Crockford base32>: a 48-bit millisecond timestamp plus 80 bits of
// randomness, matching spec.md §4.3. Collision probability within one
// clone is negligible; across clones it is handled by mapping
// reconciliation (§4.3), never by rejecting the id.
func NewPermanentID() string {
	return NewPermanentIDAt(time.Now())
}

// entropy is shared by every call, so ids generated within the same
// millisecond still increase in generation order.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewPermanentIDAt is NewPermanentID with an explicit timestamp, used by
// tests and by importers stamping ids for historical issues.
func NewPermanentIDAt(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(t), entropy)
	return PermanentIDPrefix + id.String()
}

// IsPermanentID reports whether s has the shape of a permanent id. It
// does not guarantee the id exists in any store.
func IsPermanentID(s string) bool {
	if !strings.HasPrefix(s, PermanentIDPrefix) {
		return false
	}
	rest := strings.TrimPrefix(s, PermanentIDPrefix)
	if len(rest) != ulid.EncodedSize {
		return false
	}
	_, err := ulid.ParseStrict(rest)
	return err == nil
}
