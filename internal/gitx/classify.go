package gitx

import "strings"

// Classification is the outcome of matching a git error's text against
// known transient/permanent patterns (spec.md §4.1).
type Classification int

const (
	ClassUnknown Classification = iota
	ClassTransient
	ClassPermanent
	ClassNonFastForward
)

var transientPatterns = []string{
	"timed out", "timeout", "rate limit", "429", "too many requests",
	"could not resolve host", "temporary failure", "connection reset",
	"connection refused", "http 500", "http 502", "http 503", "http 504",
	"the remote end hung up unexpectedly", "early eof",
}

var permanentPatterns = []string{
	"authentication failed", "permission denied", "403", "404",
	"protected branch", "not authorized", "access denied",
	"repository not found", "could not read username",
}

var nonFastForwardPatterns = []string{
	"non-fast-forward", "fetch first", "rejected",
}

// ClassifyPushError is a pure function on a git error's text (as
// surfaced in RunError.Stderr) that labels it transient, permanent, or
// a non-fast-forward rejection. Unrecognized text classifies as
// ClassUnknown, which callers should treat conservatively as permanent.
func ClassifyPushError(errText string) Classification {
	lower := strings.ToLower(errText)
	for _, p := range permanentPatterns {
		if strings.Contains(lower, p) {
			return ClassPermanent
		}
	}
	for _, p := range nonFastForwardPatterns {
		if strings.Contains(lower, p) {
			return ClassNonFastForward
		}
	}
	for _, p := range transientPatterns {
		if strings.Contains(lower, p) {
			return ClassTransient
		}
	}
	return ClassUnknown
}

// ErrText extracts the best-effort error text from err for
// classification, preferring a RunError's stderr.
func ErrText(err error) string {
	if err == nil {
		return ""
	}
	if re, ok := err.(*RunError); ok {
		return re.Stderr
	}
	return err.Error()
}
