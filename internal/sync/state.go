package sync

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// StateFileName is the local-only state file under the tbd root
// (spec.md §6 on-disk layout; gitignored, never synced).
const StateFileName = "state.yml"

// localState is the on-disk shape of state.yml. It records the moment
// of the last successful sync, which outbox auto-save and workspace
// save --updates-only use to decide which issues count as "modified
// since the last successful sync" (spec.md §3, §8 property 4).
type localState struct {
	LastSyncAt time.Time `yaml:"last_sync_at,omitempty"`
}

// LoadLastSyncAt reads the last successful sync time from state.yml. A
// missing or malformed file yields the zero time, which callers treat
// as "never synced" (everything counts as modified since).
func LoadLastSyncAt(tbdRoot string) time.Time {
	data, err := os.ReadFile(filepath.Join(tbdRoot, StateFileName)) // #nosec G304 -- tbdRoot is the caller's own resolved root
	if err != nil {
		return time.Time{}
	}
	var st localState
	if yaml.Unmarshal(data, &st) != nil {
		return time.Time{}
	}
	return st.LastSyncAt
}

// saveLastSyncAt persists t into state.yml. A failure here is not worth
// failing an otherwise-successful sync over, so the caller ignores the
// error after logging it.
func saveLastSyncAt(tbdRoot string, t time.Time) error {
	data, err := yaml.Marshal(localState{LastSyncAt: t.UTC()})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(tbdRoot, 0o755); err != nil {
		return err
	}
	// #nosec G306 -- local state is not sensitive
	return os.WriteFile(filepath.Join(tbdRoot, StateFileName), data, 0o644)
}
