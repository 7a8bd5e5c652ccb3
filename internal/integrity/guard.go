package integrity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockRetryDelayConstant           = 50 * time.Millisecond
	lockDirectoryPermissionsConstant = 0o755
	lockDirectoryErrorTemplate       = "unable to prepare lock directory %s: %w"
	lockAcquireErrorTemplate         = "unable to acquire lock %s: %w"
	lockNotAcquiredErrorTemplate     = "lock %s held by another process"
	lockReleaseErrorTemplate         = "unable to release lock %s: %w"
)

// Guard serialises reconciliations against scans. Scans share access while a
// reconciliation holds it exclusively. When a lock file path is configured the
// same discipline is enforced across processes with an advisory file lock.
type Guard struct {
	mutex         sync.RWMutex
	fileLock      *flock.Flock
	lockTimeout   time.Duration
	sharedMutex   sync.Mutex
	sharedHolders int
}

// NewGuard constructs a Guard. An empty lockFilePath keeps locking in-process.
func NewGuard(lockFilePath string, lockTimeout time.Duration) *Guard {
	guard := &Guard{lockTimeout: lockTimeout}
	if len(lockFilePath) > 0 {
		guard.fileLock = flock.New(lockFilePath)
	}
	return guard
}

// AcquireShared takes shared access for a scan and returns the release function.
func (guard *Guard) AcquireShared(executionContext context.Context) (func(), error) {
	if guard == nil {
		return func() {}, nil
	}
	guard.mutex.RLock()
	if guard.fileLock == nil {
		return guard.mutex.RUnlock, nil
	}
	guard.sharedMutex.Lock()
	if guard.sharedHolders == 0 {
		if lockError := guard.lockFile(executionContext, guard.fileLock.TryRLockContext); lockError != nil {
			guard.sharedMutex.Unlock()
			guard.mutex.RUnlock()
			return nil, lockError
		}
	}
	guard.sharedHolders++
	guard.sharedMutex.Unlock()
	return guard.releaseShared, nil
}

// releaseShared drops one shared holder; the last holder releases the file lock.
func (guard *Guard) releaseShared() {
	guard.sharedMutex.Lock()
	guard.sharedHolders--
	if guard.sharedHolders == 0 {
		_ = guard.fileLock.Unlock()
	}
	guard.sharedMutex.Unlock()
	guard.mutex.RUnlock()
}

// AcquireExclusive takes exclusive access for a reconciliation and returns the release function.
func (guard *Guard) AcquireExclusive(executionContext context.Context) (func() error, error) {
	if guard == nil {
		return func() error { return nil }, nil
	}
	guard.mutex.Lock()
	if guard.fileLock == nil {
		return func() error {
			guard.mutex.Unlock()
			return nil
		}, nil
	}
	if lockError := guard.lockFile(executionContext, guard.fileLock.TryLockContext); lockError != nil {
		guard.mutex.Unlock()
		return nil, lockError
	}
	return func() error {
		defer guard.mutex.Unlock()
		if unlockError := guard.fileLock.Unlock(); unlockError != nil {
			return fmt.Errorf(lockReleaseErrorTemplate, guard.fileLock.Path(), unlockError)
		}
		return nil
	}, nil
}

func (guard *Guard) lockFile(executionContext context.Context, tryLock func(context.Context, time.Duration) (bool, error)) error {
	lockDirectory := filepath.Dir(guard.fileLock.Path())
	if directoryError := os.MkdirAll(lockDirectory, lockDirectoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(lockDirectoryErrorTemplate, lockDirectory, directoryError)
	}

	if executionContext == nil {
		executionContext = context.Background()
	}
	if guard.lockTimeout > 0 {
		var cancel context.CancelFunc
		executionContext, cancel = context.WithTimeout(executionContext, guard.lockTimeout)
		defer cancel()
	}

	locked, lockError := tryLock(executionContext, lockRetryDelayConstant)
	if lockError != nil {
		return fmt.Errorf(lockAcquireErrorTemplate, guard.fileLock.Path(), lockError)
	}
	if !locked {
		return fmt.Errorf(lockNotAcquiredErrorTemplate, guard.fileLock.Path())
	}
	return nil
}
