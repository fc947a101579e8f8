// Package kgworkspace prepares the `workspace` profile's overlay cache
// directory: an advisory lock (so two concurrent `keg workspace`
// invocations against the same project don't race setting up the same
// overlay upper/work dirs) plus the directories themselves
// (SPEC_FULL.md "DOMAIN STACK").
package kgworkspace

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gofrs/flock"
	"github.com/keg-project/keg/internal/kgerr"
)

// LockCache acquires an exclusive advisory lock on cacheDir/.lock,
// retrying with bounded exponential backoff (up to 5s total) since
// another `keg workspace` invocation may be mid-setup. The returned
// *flock.Flock must be Unlock()'d by the caller once overlay
// preparation is done.
func LockCache(cacheDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, kgerr.New("lock_workspace_cache", kgerr.ExecFailed, err)
	}
	lock := flock.New(filepath.Join(cacheDir, ".lock"))

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 5 * time.Second

	err := backoff.Retry(func() error {
		ok, err := lock.TryLock()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return kgerr.New("lock_workspace_cache", kgerr.ExecFailed, nil)
		}
		return nil
	}, b)
	if err != nil {
		return nil, kgerr.New("lock_workspace_cache", kgerr.ExecFailed, err)
	}
	return lock, nil
}

// EnsureTreeAndWork creates upperDir, upperDir/tree and upperDir/work
// if they don't already exist.
func EnsureTreeAndWork(upperDir, tree, work string) error {
	for _, dir := range []string{upperDir, filepath.Join(upperDir, tree), filepath.Join(upperDir, work)} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.Mkdir(dir, 0o755); err != nil {
				return kgerr.New("create_workspace_dir", kgerr.ExecFailed, err)
			}
		}
	}
	return nil
}
