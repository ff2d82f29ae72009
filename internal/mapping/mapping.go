// Package mapping owns the ids.yml file: the bijection between short
// display ids and permanent ULID-based ids, plus the generator counter
// used to allocate new short ids deterministically (spec.md §3 "ID
// mapping", §4.3).
package mapping

import (
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jlevy/tbd/internal/idgen"
)

// FileName is the mapping file's path relative to the data-sync root.
const FileName = "mappings/ids.yml"

// wireFormat is the on-disk shape of ids.yml: two parallel views plus a
// generator counter, parsed permissively per spec.md §6. short_to_permanent
// is authoritative; permanent_to_short is the redundant reverse view,
// consulted on load only for entries the forward view lacks (e.g. a file
// hand-edited or written by an older build that carried just one view).
type wireFormat struct {
	ShortToPermanent map[string]string `yaml:"short_to_permanent"`
	PermanentToShort map[string]string `yaml:"permanent_to_short"`
	Generator        uint64            `yaml:"generator"`
}

// Mapping is the in-memory bijection. ShortToID and IDToShort are kept
// in sync by every mutating method; callers must not write the maps
// directly.
type Mapping struct {
	ShortToID map[string]string
	IDToShort map[string]string
	Generator uint64
}

// New returns an empty mapping with a zeroed generator.
func New() *Mapping {
	return &Mapping{
		ShortToID: map[string]string{},
		IDToShort: map[string]string{},
	}
}

// Load reads a mapping file. A missing file is not an error: it returns
// an empty Mapping, since a fresh clone legitimately starts with none
// (spec.md scenario 6, "Mapping recovery across clones").
func Load(path string) (*Mapping, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path constructed from the worktree root
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	var wf wireFormat
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, err
	}
	m := New()
	m.Generator = wf.Generator
	for short, id := range wf.ShortToPermanent {
		m.bindLocked(short, id)
	}
	for id, short := range wf.PermanentToShort {
		if _, ok := m.IDToShort[id]; ok {
			continue
		}
		if _, taken := m.ShortToID[short]; taken {
			continue
		}
		m.bindLocked(short, id)
	}
	return m, nil
}

// Save writes the mapping atomically (sibling .tmp + rename), matching
// the storage package's write discipline so a crash never leaves a
// half-written mapping file.
func (m *Mapping) Save(path string) error {
	wf := wireFormat{
		ShortToPermanent: m.ShortToID,
		PermanentToShort: m.IDToShort,
		Generator:        m.Generator,
	}
	data, err := yaml.Marshal(&wf)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	// #nosec G306 -- mapping file is not sensitive; 0644 matches storage writes
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	f, err := os.Open(tmp) // #nosec G304 -- tmp is our own just-written file
	if err == nil {
		_ = f.Sync()
		_ = f.Close()
	}
	return os.Rename(tmp, path)
}

// bindLocked sets both directions of the bijection, overwriting any
// prior binding for either key. Callers hold no external lock; this
// method assumes single-threaded use per Mapping value.
func (m *Mapping) bindLocked(short, id string) {
	m.ShortToID[short] = id
	m.IDToShort[id] = short
}

// Bind records short <-> id, replacing any existing binding for short.
// If id already had a different short id, that stale reverse entry is
// removed so IDToShort never points at two shorts for one id.
func (m *Mapping) Bind(short, id string) {
	if oldShort, ok := m.IDToShort[id]; ok && oldShort != short {
		delete(m.ShortToID, oldShort)
	}
	m.bindLocked(short, id)
}

// Resolve returns the permanent id for a short id, a "<prefix>-<short>"
// display id, or a permanent id itself, per spec.md §4.3 resolve().
func (m *Mapping) Resolve(input, prefix string) (string, bool) {
	if idgen.IsPermanentID(input) {
		return input, true
	}
	if id, ok := m.ShortToID[input]; ok {
		return id, true
	}
	if prefix != "" {
		display := prefix + "-"
		if len(input) > len(display) && input[:len(display)] == display {
			short := input[len(display):]
			if id, ok := m.ShortToID[short]; ok {
				return id, true
			}
		}
	}
	return "", false
}

// ShortFor returns the short id bound to a permanent id, if any.
func (m *Mapping) ShortFor(id string) (string, bool) {
	s, ok := m.IDToShort[id]
	return s, ok
}

// Allocator returns an idgen.Allocator seeded from this mapping's
// current contents and generator position.
func (m *Mapping) Allocator() *idgen.Allocator {
	existing := make([]string, 0, len(m.ShortToID))
	for s := range m.ShortToID {
		existing = append(existing, s)
	}
	return idgen.NewAllocator(m.Generator, existing)
}

// AdoptAllocator persists an allocator's advanced counter back onto the
// mapping after new short ids have been minted through it.
func (m *Mapping) AdoptAllocator(a *idgen.Allocator) {
	m.Generator = a.Counter()
}

// SortedShortIDs returns every short id in deterministic order, used by
// doctor and tests that need stable output.
func (m *Mapping) SortedShortIDs() []string {
	out := make([]string, 0, len(m.ShortToID))
	for s := range m.ShortToID {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy, used by merge which must not mutate its inputs.
func (m *Mapping) Clone() *Mapping {
	c := New()
	c.Generator = m.Generator
	for s, id := range m.ShortToID {
		c.bindLocked(s, id)
	}
	return c
}
