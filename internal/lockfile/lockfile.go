// Package lockfile serializes runs that write to the same translation store.
package lockfile

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/gofrs/flock"
)

// PollInterval is the base wait between attempts to take a held lock. Each
// wait adds up to the same amount again at random.
var PollInterval = time.Second

// Path returns the lock file guarding a store file.
func Path(storePath string) string {
	return storePath + ".lock"
}

// With takes an exclusive advisory lock on lockPath, runs fn and releases the
// lock. When another process holds it, With polls until it is released or
// ctx is done. The lock file itself is left in place.
func With(ctx context.Context, lockPath string, fn func() error) (err error) {
	fileLock := flock.New(lockPath)

	for {
		locked, lerr := fileLock.TryLock()
		if lerr != nil {
			return fmt.Errorf("while trying to lock %q: %w", lockPath, lerr)
		}
		if locked {
			break
		}
		slog.Debug("waiting for lock", "path", lockPath)
		wait := PollInterval + time.Duration(rand.Int64N(int64(PollInterval)+1))
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for lock %q: %w", lockPath, ctx.Err())
		case <-time.After(wait):
		}
	}

	// Unlock even if fn panics.
	defer func() {
		if unlockErr := fileLock.Unlock(); unlockErr != nil {
			if err == nil {
				err = fmt.Errorf("unlocking file %q: %w", lockPath, unlockErr)
			} else {
				slog.Error("unlocking file", "path", lockPath, "err", unlockErr)
			}
		}
	}()

	return fn()
}
