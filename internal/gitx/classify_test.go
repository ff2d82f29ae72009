package gitx_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jlevy/tbd/internal/gitx"
)

func TestClassifyPushErrorPermanent(t *testing.T) {
	cases := []string{
		"remote: Permission denied to user",
		"fatal: Authentication failed for 'https://example.com/repo.git'",
		"remote: 403 Forbidden",
		"remote: repository not found",
	}
	for _, c := range cases {
		assert.Equal(t, gitx.ClassPermanent, gitx.ClassifyPushError(c), c)
	}
}

func TestClassifyPushErrorTransient(t *testing.T) {
	cases := []string{
		"fatal: unable to access: Connection timed out",
		"error: RPC failed; HTTP 503 curl 22",
		"could not resolve host: github.com",
	}
	for _, c := range cases {
		assert.Equal(t, gitx.ClassTransient, gitx.ClassifyPushError(c), c)
	}
}

func TestClassifyPushErrorNonFastForward(t *testing.T) {
	cases := []string{
		"! [rejected] tbd-sync -> tbd-sync (non-fast-forward)",
		"hint: Updates were rejected because the tip of your current branch is behind",
	}
	for _, c := range cases {
		assert.Equal(t, gitx.ClassNonFastForward, gitx.ClassifyPushError(c), c)
	}
}

func TestClassifyPushErrorUnknownFallsThrough(t *testing.T) {
	assert.Equal(t, gitx.ClassUnknown, gitx.ClassifyPushError("some never-before-seen message"))
}

func TestErrTextPrefersRunErrorStderr(t *testing.T) {
	err := &gitx.RunError{Args: []string{"push"}, Stderr: "remote rejected", Err: errors.New("exit status 1")}
	assert.Equal(t, "remote rejected", gitx.ErrText(err))
}

func TestErrTextFallsBackToErrorString(t *testing.T) {
	assert.Equal(t, "boom", gitx.ErrText(errors.New("boom")))
}

func TestErrTextOnNilIsEmpty(t *testing.T) {
	assert.Equal(t, "", gitx.ErrText(nil))
}
