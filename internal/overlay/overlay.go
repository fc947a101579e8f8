// Package overlay builds the fuse-overlayfs invocation for profiles
// that use an overlay mount (§6, overlayfs.rs). It is a mechanical
// external-interface collaborator: the engine itself only ever receives
// the resulting argv as a command_before_unshare_user.
package overlay

import (
	"strings"

	"github.com/keg-project/keg/internal/kgerr"
)

// escape backslash-escapes '\\', ',', and ':' — the three characters
// that are syntactically significant in a comma-separated mount option
// string (§6, §8 property 4).
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', ',', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Unescape parses a backslash-escaped option value back to its
// original form — the inverse of escape, used by the round-trip
// property test (§8 property 4). Every backslash is dropped and the
// character after it is copied literally, whichever character it is.
func Unescape(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// GetCommand builds the fuse-overlayfs argv for mounting merged from
// lowerdirs (outermost first), upperdir and workdir (§6). Command
// construction fails with InvalidOverlayOption if any lower/upper/work
// path contains an unescapable ':' (fuse-overlayfs does not support
// escaping ':' inside a path component even though the mount-option
// syntax uses backslash-escaping elsewhere).
func GetCommand(lowerdirs []string, upperdir, workdir, merged string) ([]string, error) {
	if len(lowerdirs) == 0 {
		return nil, kgerr.New("overlay_command", kgerr.InvalidOverlayOption, nil)
	}

	var opts strings.Builder
	opts.WriteString("squash_to_root,lowerdir=")
	for i, lower := range lowerdirs {
		if strings.Contains(lower, ":") {
			return nil, kgerr.New("overlay_command", kgerr.InvalidOverlayOption, nil)
		}
		if i > 0 {
			opts.WriteByte(':')
		}
		opts.WriteString(escape(lower))
	}

	opts.WriteString(",upperdir=")
	if strings.Contains(upperdir, ":") {
		return nil, kgerr.New("overlay_command", kgerr.InvalidOverlayOption, nil)
	}
	opts.WriteString(escape(upperdir))

	opts.WriteString(",workdir=")
	if strings.Contains(workdir, ":") {
		return nil, kgerr.New("overlay_command", kgerr.InvalidOverlayOption, nil)
	}
	opts.WriteString(escape(workdir))

	return []string{"/usr/bin/fuse-overlayfs", "-o", opts.String(), merged}, nil
}
