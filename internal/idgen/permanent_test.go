package idgen_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jlevy/tbd/internal/idgen"
)

func TestNewPermanentIDHasExpectedShape(t *testing.T) {
	id := idgen.NewPermanentID()
	assert.True(t, idgen.IsPermanentID(id), "generated id %q should be recognized as a permanent id", id)
}

func TestNewPermanentIDAtIsMonotonicByTimestamp(t *testing.T) {
	earlier := idgen.NewPermanentIDAt(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	later := idgen.NewPermanentIDAt(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Less(t, earlier, later)
}

func TestIsPermanentIDRejectsMalformedInputs(t *testing.T) {
	cases := []string{
		"",
		"is-",
		"tbd-100",
		"is-tooshort",
		"not-prefixed-at-all-01ARZ3NDEKTSV4RRFFQ69G5FAV",
	}
	for _, c := range cases {
		assert.False(t, idgen.IsPermanentID(c), "expected %q to be rejected", c)
	}
}
