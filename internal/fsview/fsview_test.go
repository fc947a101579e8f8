package fsview

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadSortedOrderAndSymlinks(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zeta", "alpha", "mu"} {
		if err := os.Mkdir(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Symlink("/somewhere", filepath.Join(dir, "link")); err != nil {
		t.Fatal(err)
	}

	entries, err := ReadSorted(dir)
	if err != nil {
		t.Fatalf("ReadSorted: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d: %+v", len(entries), entries)
	}
	wantOrder := []string{"alpha", "link", "mu", "zeta"}
	for i, name := range wantOrder {
		if entries[i].Name != name {
			t.Errorf("entries[%d].Name = %q, want %q (order not stable/sorted)", i, entries[i].Name, name)
		}
	}
	for _, e := range entries {
		if e.Name == "link" {
			if !e.IsSymlink || e.Target != "/somewhere" {
				t.Errorf("link entry not preserved as symlink: %+v", e)
			}
		} else if e.IsSymlink {
			t.Errorf("plain dir %q misreported as symlink", e.Name)
		}
	}
}

func TestReadSortedStableAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c", "a", "b"} {
		if err := os.Mkdir(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	first, err := ReadSorted(dir)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ReadSorted(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("length differs across calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("entry %d differs across calls: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRoBindSubentriesKeepSymlinks(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "etc"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("/usr/lib", filepath.Join(dir, "lib")); err != nil {
		t.Fatal(err)
	}

	argv, err := RoBindSubentriesKeepSymlinks(dir, "/container_staging_image")
	if err != nil {
		t.Fatalf("RoBindSubentriesKeepSymlinks: %v", err)
	}

	want := []string{
		"--ro-bind", filepath.Join(dir, "etc"), "/container_staging_image/etc",
		"--symlink", "/usr/lib", "/container_staging_image/lib",
	}
	if len(argv) != len(want) {
		t.Fatalf("argv = %v, want %v", argv, want)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Errorf("argv[%d] = %q, want %q", i, argv[i], want[i])
		}
	}
}
