package fsview

import "path/filepath"

// RoBindFilesystem returns the --ro-bind/--symlink argv pairs for
// binding the host's canonical top-level dirs at dest (§4.4 stage 0,
// ro_bind_filesystem in isolation.rs). includeVar controls whether
// "var" is part of the required set (open question 3 — the caller
// decides, the builder never guesses).
func RoBindFilesystem(dest string, includeVar bool) ([]string, error) {
	var args []string
	err := Iterate(includeVar, func(e Entry) {
		if !e.IsSymlink {
			args = append(args, "--ro-bind", filepath.Join("/", e.Name), filepath.Join(dest, e.Name))
		} else {
			args = append(args, "--symlink", e.Target, filepath.Join(dest, e.Name))
		}
	})
	if err != nil {
		return nil, err
	}
	return args, nil
}

// RoBindSubentriesKeepSymlinks is the general form (§4.3): read src's
// directory entries in sorted order and emit one --ro-bind or
// --symlink directive per entry at dest.
func RoBindSubentriesKeepSymlinks(src, dest string) ([]string, error) {
	entries, err := ReadSorted(src)
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, len(entries)*3)
	for _, e := range entries {
		if !e.IsSymlink {
			args = append(args, "--ro-bind", filepath.Join(src, e.Name), filepath.Join(dest, e.Name))
		} else {
			args = append(args, "--symlink", e.Target, filepath.Join(dest, e.Name))
		}
	}
	return args, nil
}
