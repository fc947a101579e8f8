package cgroup

import (
	"os"
	"path/filepath"
	"testing"
)

// writeFakeCgroupLine rewrites the faked /proc/self/cgroup to report
// self's v2 cgroup as rel (relative to the faked sysfs root) — used to
// simulate the kernel-visible effect of a moveOne("0", ...) call
// without a real cgroup v2 mount.
func writeFakeCgroupLine(t *testing.T, procPath, rel string) {
	t.Helper()
	if err := os.WriteFile(procPath, []byte("0::/"+rel+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestStage0DiscoverPopSequence exercises the regression class of the
// Init->Preexec->Postexec stage0 sequence: discoverRootStage0 always
// reports self's *current* cgroup, which after each move is one
// sibling deeper than the base the four siblings live under, so every
// call after InitStage0 must pop that segment back off before joining
// the next sibling name. Without the pop, Preexec/Postexec compute a
// path nested inside the previous sibling (e.g.
// base/unit.container_spawn/unit.container_children) that mkdirAll4
// never created.
func TestStage0DiscoverPopSequence(t *testing.T) {
	sysfsRoot := t.TempDir()
	procPath := filepath.Join(t.TempDir(), "cgroup")

	origProc, origUnified, origDefault := procSelfCgroupPath, cgroupUnifiedRoot, cgroupDefaultRoot
	procSelfCgroupPath = procPath
	cgroupUnifiedRoot = filepath.Join(sysfsRoot, "does-not-exist")
	cgroupDefaultRoot = sysfsRoot
	defer func() {
		procSelfCgroupPath, cgroupUnifiedRoot, cgroupDefaultRoot = origProc, origUnified, origDefault
	}()

	// Before InitStage0: self is at the bare discovered root.
	writeFakeCgroupLine(t, procPath, "unit.test_root")
	base, err := discoverRootStage0()
	if err != nil {
		t.Fatalf("discoverRootStage0 (initial): %v", err)
	}
	wantBase := filepath.Join(sysfsRoot, "unit.test_root")
	if base != wantBase {
		t.Fatalf("base = %q, want %q", base, wantBase)
	}
	if err := mkdirAll4(base); err != nil {
		t.Fatalf("mkdirAll4: %v", err)
	}

	// InitStage0 ends by moving self into base/unit.container_spawn.
	writeFakeCgroupLine(t, procPath, "unit.test_root/"+dirSpawn)
	preexecBase, err := discoverPoppedRootStage0()
	if err != nil {
		t.Fatalf("discoverPoppedRootStage0 (preexec): %v", err)
	}
	if preexecBase != wantBase {
		t.Fatalf("PreexecStage0 base = %q, want %q (popped back to the siblings' base)", preexecBase, wantBase)
	}
	childrenDir := filepath.Join(preexecBase, dirChildren)
	if info, err := os.Stat(childrenDir); err != nil || !info.IsDir() {
		t.Fatalf("PreexecStage0 would target %q, which mkdirAll4 never created: %v", childrenDir, err)
	}

	// PreexecStage0 ends by moving self into base/unit.container_children.
	writeFakeCgroupLine(t, procPath, "unit.test_root/"+dirChildren)
	postexecBase, err := discoverPoppedRootStage0()
	if err != nil {
		t.Fatalf("discoverPoppedRootStage0 (postexec): %v", err)
	}
	if postexecBase != wantBase {
		t.Fatalf("PostexecStage0 base = %q, want %q (popped back to the siblings' base)", postexecBase, wantBase)
	}
	parentDir := filepath.Join(postexecBase, dirParent)
	if info, err := os.Stat(parentDir); err != nil || !info.IsDir() {
		t.Fatalf("PostexecStage0 would target %q, which mkdirAll4 never created: %v", parentDir, err)
	}
	if info, err := os.Stat(filepath.Join(postexecBase, dirChildren)); err != nil || !info.IsDir() {
		t.Fatalf("PostexecStage0's source dir %q missing: %v", filepath.Join(postexecBase, dirChildren), err)
	}
}

func TestReadProcsParsesLines(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cgroup.procs"), []byte("12\n34\n56\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	procs, err := readProcs(dir)
	if err != nil {
		t.Fatalf("readProcs: %v", err)
	}
	want := []string{"12", "34", "56"}
	if len(procs) != len(want) {
		t.Fatalf("procs = %v, want %v", procs, want)
	}
	for i := range want {
		if procs[i] != want[i] {
			t.Errorf("procs[%d] = %q, want %q", i, procs[i], want[i])
		}
	}
}

func TestReadProcsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cgroup.procs"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	procs, err := readProcs(dir)
	if err != nil {
		t.Fatalf("readProcs: %v", err)
	}
	if len(procs) != 0 {
		t.Errorf("procs = %v, want empty", procs)
	}
}

func TestMkdirAll4CreatesFourSiblings(t *testing.T) {
	dir := t.TempDir()
	if err := mkdirAll4(dir); err != nil {
		t.Fatalf("mkdirAll4: %v", err)
	}
	for _, name := range []string{dirParent, dirChildren, dirSpawn, dirOther} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("sibling %q not created: %v", name, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("sibling %q is not a directory", name)
		}
	}
}
