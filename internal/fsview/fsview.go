// Package fsview enumerates the canonical top-level directories of a
// host root and the entries of a directory tree to bind, preserving
// symlinks verbatim (§4.3).
package fsview

import (
	"os"
	"path/filepath"
	"sort"
)

// requiredDirs is the always-present set of top-level host dirs.
var requiredDirs = []string{"bin", "etc", "lib", "opt", "sbin", "usr"}

// optionalDirs are bound only if present.
var optionalDirs = []string{"lib64"}

// Entry is one (name, symlinkTarget) pair yielded by Iterate: IsSymlink
// is false and Target empty if name is a real directory at "/";
// otherwise IsSymlink is true and Target holds the link target.
type Entry struct {
	Name      string
	IsSymlink bool
	Target    string
}

// Iterate walks the fixed set of top-level host paths (§4.3): required
// = {bin, etc, lib, opt, sbin, usr} plus var if includeVar, optional =
// {lib64} (skipped if absent). For each path, if it is a symlink, f is
// called with the link target; otherwise with no target.
func Iterate(includeVar bool, f func(Entry)) error {
	required := requiredDirs
	if includeVar {
		required = append(append([]string(nil), requiredDirs...), "var")
	}
	for _, name := range required {
		entry, err := statTop(name)
		if err != nil {
			return err
		}
		f(entry)
	}
	for _, name := range optionalDirs {
		if _, err := os.Lstat(filepath.Join("/", name)); os.IsNotExist(err) {
			continue
		} else if err != nil {
			return err
		}
		entry, err := statTop(name)
		if err != nil {
			return err
		}
		f(entry)
	}
	return nil
}

func statTop(name string) (Entry, error) {
	rooted := filepath.Join("/", name)
	target, err := os.Readlink(rooted)
	if err != nil {
		// Not a symlink (or unreadable as one); treat as a plain dir.
		return Entry{Name: name}, nil
	}
	return Entry{Name: name, IsSymlink: true, Target: target}, nil
}

// SubEntry is one directory entry yielded by ReadSorted.
type SubEntry struct {
	Name      string
	IsSymlink bool
	Target    string
}

// ReadSorted reads src's directory entries and returns them sorted
// lexicographically by name, preserving symlink-ness. Stability is
// required so stage-to-stage retransmissions of the same tree produce
// identical argv (§4.3, §8 property 3) regardless of the kernel's
// directory-iteration order.
func ReadSorted(src string) ([]SubEntry, error) {
	dirEntries, err := os.ReadDir(src)
	if err != nil {
		return nil, err
	}
	entries := make([]SubEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			return nil, err
		}
		if info.Mode()&os.ModeSymlink == 0 {
			entries = append(entries, SubEntry{Name: de.Name()})
			continue
		}
		target, err := os.Readlink(filepath.Join(src, de.Name()))
		if err != nil {
			return nil, err
		}
		entries = append(entries, SubEntry{Name: de.Name(), IsSymlink: true, Target: target})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
