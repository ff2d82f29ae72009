package mapping_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/tbd/internal/mapping"
)

func TestReconcileRecoversFromHistoricalMapping(t *testing.T) {
	m := mapping.New()
	historical := func(id string) (string, bool) {
		if id == "is-recoverable" {
			return "h1", true
		}
		return "", false
	}

	changed := m.Reconcile([]string{"is-recoverable"}, historical)

	require.Len(t, changed, 1)
	assert.Equal(t, "is-recoverable", changed[0])
	assert.Equal(t, "is-recoverable", m.ShortToID["h1"])
}

func TestReconcileAllocatesFreshWhenNoHistory(t *testing.T) {
	m := mapping.New()
	changed := m.Reconcile([]string{"is-new"}, func(string) (string, bool) { return "", false })

	require.Len(t, changed, 1)
	short, ok := m.ShortFor("is-new")
	require.True(t, ok)
	assert.NotEmpty(t, short)
}

func TestReconcileSkipsAlreadyMappedIDs(t *testing.T) {
	m := mapping.New()
	m.Bind("a1", "is-present")

	changed := m.Reconcile([]string{"is-present"}, nil)
	assert.Empty(t, changed)
}

func TestReconcileFallsBackWhenHistoricalShortIsTaken(t *testing.T) {
	m := mapping.New()
	m.Bind("h1", "is-other")

	historical := func(string) (string, bool) { return "h1", true }
	changed := m.Reconcile([]string{"is-needs-mapping"}, historical)

	require.Len(t, changed, 1)
	short, ok := m.ShortFor("is-needs-mapping")
	require.True(t, ok)
	assert.NotEqual(t, "h1", short)
}

func TestReconcileNilHistoricalAllocatesFresh(t *testing.T) {
	m := mapping.New()
	changed := m.Reconcile([]string{"is-a", "is-b"}, nil)
	assert.Len(t, changed, 2)
}
