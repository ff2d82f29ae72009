// Package attic writes append-only conflict provenance records for
// post-hoc audit (spec.md §3, "Attic"). The engine never reads these
// back; they exist purely so a human can see what a field-level merge
// decided and why.
package attic

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RelDir is the attic's location relative to the data-sync root.
const RelDir = "attic"

// Entry records one field-level conflict: both competing values and the
// value the merge chose.
type Entry struct {
	IssueID   string      `yaml:"issue_id"`
	Field     string      `yaml:"field"`
	Local     interface{} `yaml:"local"`
	Remote    interface{} `yaml:"remote"`
	Chosen    interface{} `yaml:"chosen"`
	Timestamp time.Time   `yaml:"timestamp"`
}

// Write appends entry as a new file under <dataSyncRoot>/attic named
// <yyyymmdd>-<id>-<field>.yml (spec.md §6). Multiple conflicts for the
// same issue/field/day get a numeric suffix so none are overwritten.
func Write(dataSyncRoot string, entry Entry) (path string, err error) {
	dir := filepath.Join(dataSyncRoot, RelDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := yaml.Marshal(entry)
	if err != nil {
		return "", err
	}

	day := entry.Timestamp.UTC().Format("20060102")
	base := fmt.Sprintf("%s-%s-%s", day, entry.IssueID, entry.Field)
	name := base + ".yml"
	for i := 2; ; i++ {
		full := filepath.Join(dir, name)
		if _, statErr := os.Stat(full); os.IsNotExist(statErr) {
			// #nosec G306 -- attic records are not sensitive
			if err := os.WriteFile(full, data, 0o644); err != nil {
				return "", err
			}
			return full, nil
		}
		name = fmt.Sprintf("%s-%d.yml", base, i)
	}
}

// WriteAll appends every entry, returning the paths written.
func WriteAll(dataSyncRoot string, entries []Entry) ([]string, error) {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		p, err := Write(dataSyncRoot, e)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
