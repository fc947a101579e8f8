package kgworkspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureTreeAndWorkCreatesDirs(t *testing.T) {
	base := filepath.Join(t.TempDir(), "cache")
	if err := EnsureTreeAndWork(base, "tree", "work"); err != nil {
		t.Fatalf("EnsureTreeAndWork: %v", err)
	}
	for _, d := range []string{base, filepath.Join(base, "tree"), filepath.Join(base, "work")} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %q to exist", d)
		}
	}
}

func TestEnsureTreeAndWorkIdempotent(t *testing.T) {
	base := filepath.Join(t.TempDir(), "cache")
	if err := EnsureTreeAndWork(base, "tree", "work"); err != nil {
		t.Fatalf("first EnsureTreeAndWork: %v", err)
	}
	if err := EnsureTreeAndWork(base, "tree", "work"); err != nil {
		t.Fatalf("second EnsureTreeAndWork should not error: %v", err)
	}
}

func TestLockCacheAcquiresAndUnlocks(t *testing.T) {
	dir := t.TempDir()
	lock, err := LockCache(dir)
	if err != nil {
		t.Fatalf("LockCache: %v", err)
	}
	defer lock.Unlock()
	if _, err := os.Stat(filepath.Join(dir, ".lock")); err != nil {
		t.Errorf("lock file not created: %v", err)
	}
}
