package sync

import (
	"os"
	"strings"
)

// isUnbornRemoteRef reports whether a fetch error's text reflects a
// remote branch that simply does not exist yet, as opposed to a real
// transport failure (spec.md §8 scenario 1, first sync in a repo's
// lifetime before anything has been pushed).
func isUnbornRemoteRef(errText string) bool {
	lower := strings.ToLower(errText)
	return strings.Contains(lower, "couldn't find remote ref") ||
		strings.Contains(lower, "couldn't find remote branch")
}

// writeTempFile writes content to a fresh temp file and returns its
// path, so mapping.Load (which reads from a path) can parse content
// read via `git show` without mapping needing to know about git at all.
func writeTempFile(content string) string {
	f, err := os.CreateTemp("", "tbd-mapping-*.yml")
	if err != nil {
		return ""
	}
	defer f.Close()
	_, _ = f.WriteString(content)
	return f.Name()
}
