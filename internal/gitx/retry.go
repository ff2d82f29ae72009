package gitx

import (
	"context"

	"github.com/cenkalti/backoff/v4"

	"github.com/jlevy/tbd/internal/terrors"
)

// MaxPushAttempts bounds push_with_retry per spec.md §4.1 ("bounded
// attempts (≈ 3)").
const MaxPushAttempts = 3

// OnConflict performs a field-level merge after a fetch triggered by a
// rejected push, returning the number of attic conflict entries it
// wrote. The sync engine supplies this; gitx only orchestrates retry.
type OnConflict func(ctx context.Context) (conflicts int, err error)

// PushWithRetry attempts to push branch to remote, and on rejection due
// to non-fast-forward: fetches, invokes onConflict (a field-level merge
// producing an attic list), then retries, up to MaxPushAttempts. The
// retry backoff itself uses github.com/cenkalti/backoff/v4, the same
// library the teacher uses to retry transient storage errors
// (internal/storage/dolt/store.go), repurposed here for push races
// against a shared remote instead of a flaky database connection.
//
// The terminal error is classified (see classify.go): a transient
// failure is returned as terrors.SyncTransient, a permanent one (or a
// non-fast-forward that persists past MaxPushAttempts) as
// terrors.SyncPermanent.
func (c *Client) PushWithRetry(ctx context.Context, remote, branch string, onConflict OnConflict) error {
	var lastErr error
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), MaxPushAttempts-1)

	attempt := 0
	op := func() error {
		attempt++
		err := c.Push(ctx, remote, branch)
		if err == nil {
			return nil
		}
		lastErr = err

		class := ClassifyPushError(ErrText(err))
		switch class {
		case ClassPermanent:
			return backoff.Permanent(err)
		case ClassNonFastForward:
			if attempt >= MaxPushAttempts {
				return backoff.Permanent(err)
			}
			if fetchErr := c.Fetch(ctx, remote, branch); fetchErr != nil {
				return backoff.Permanent(fetchErr)
			}
			if onConflict != nil {
				if _, confErr := onConflict(ctx); confErr != nil {
					return backoff.Permanent(confErr)
				}
			}
			return err // retryable
		case ClassTransient:
			if attempt >= MaxPushAttempts {
				return backoff.Permanent(err)
			}
			return err // retryable
		default:
			// Unknown errors are treated conservatively as permanent,
			// per spec.md §4.1's "permanent" bucket including anything
			// not recognized as transient.
			return backoff.Permanent(err)
		}
	}

	err := backoff.Retry(op, backoff.WithContext(bo, ctx))
	if err == nil {
		return nil
	}

	class := ClassifyPushError(ErrText(lastErr))
	if class == ClassTransient {
		return terrors.SyncTransient("push failed after retries", lastErr)
	}
	return terrors.SyncPermanent("push failed permanently", lastErr)
}
