package idgen

import (
	"strings"
)

// shortIDAlphabet is the character set for short id encoding: base36,
// digits first, matching the teacher's base36 density argument for hash
// ids (internal/idgen/hash.go in the teacher) adapted here to generate
// deterministic, collision-avoiding short tokens instead of content hashes.
const shortIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// EncodeBase36Counter renders n as a base36 string using shortIDAlphabet,
// with no leading zero padding beyond a single "0" for n==0. Short ids
// grow in length only as the counter does, so early issues get compact
// ids like "1", "a1", and later ones lengthen naturally.
func EncodeBase36Counter(n uint64) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append(b, shortIDAlphabet[n%36])
		n /= 36
	}
	// reverse in place
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// ExternalIDToken extracts the trailing token from an imported external
// id such as "tbd-100", returning "100". Used when preserving an
// imported id as the short id (spec.md §4.3 path (a)).
func ExternalIDToken(externalID string) string {
	idx := strings.LastIndex(externalID, "-")
	if idx < 0 || idx == len(externalID)-1 {
		return externalID
	}
	return externalID[idx+1:]
}

// Allocator hands out short ids guaranteed free against a mapping's
// current contents. It is deterministic given the same starting counter
// and the same sequence of Taken calls, which is what makes mapping
// merges reproducible across clones running the same reconciliation.
type Allocator struct {
	next   uint64
	taken  map[string]bool
}

// NewAllocator builds an Allocator seeded at startCounter (typically the
// mapping file's persisted generator counter) and pre-seeded with the
// short ids already present in the mapping.
func NewAllocator(startCounter uint64, existing []string) *Allocator {
	taken := make(map[string]bool, len(existing))
	for _, s := range existing {
		taken[s] = true
	}
	return &Allocator{next: startCounter, taken: taken}
}

// Next returns the next unused short id and advances the counter. It
// also marks the returned id as taken so a single Allocator never
// produces the same id twice.
func (a *Allocator) Next() string {
	for {
		candidate := EncodeBase36Counter(a.next)
		a.next++
		if !a.taken[candidate] {
			a.taken[candidate] = true
			return candidate
		}
	}
}

// TryPreserve returns token if it is not already taken, marking it taken
// and reporting success; otherwise it reports false and leaves state
// unchanged, so the caller falls through to Next().
func (a *Allocator) TryPreserve(token string) (string, bool) {
	if token == "" || a.taken[token] {
		return "", false
	}
	a.taken[token] = true
	return token, true
}

// Counter returns the allocator's current generator position, to be
// persisted back into the mapping file.
func (a *Allocator) Counter() uint64 { return a.next }
