package main

import (
	"context"
	"time"

	"github.com/gofrs/flock"
)

// FileLock is an exclusive advisory lock on a file
type FileLock interface {
	// TryLockContext attempts to acquire the lock, retrying until ctx is done
	TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error)

	// Unlock releases the lock
	Unlock() error
}

// newFileLock creates the lock guarding an export directory
var newFileLock = func(path string) FileLock {
	return flock.New(path)
}
