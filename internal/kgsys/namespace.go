// Package kgsys holds the thin OS primitive wrappers of §4.1: namespace
// unshare, the death-signal prctl, keyring session join, the seccomp
// filter, and the close-on-exec-managed socket pair. Each function maps
// to exactly one syscall (or a short sequence around one), the way the
// teacher keeps its own raw-syscall call sites — sandbox.go reaches for
// golang.org/x/sys/unix directly rather than a higher-level namespace
// library, and we do the same here.
package kgsys

import (
	"fmt"

	"github.com/keg-project/keg/internal/kgerr"
	"golang.org/x/sys/unix"
)

// UnshareTime unshares CLONE_NEWTIME for the calling thread.
func UnshareTime() error {
	if err := unix.Unshare(unix.CLONE_NEWTIME); err != nil {
		return kgerr.New("unshare_time", kgerr.NamespaceError, err)
	}
	return nil
}

// UnshareUser unshares CLONE_NEWUSER for the calling thread.
func UnshareUser() error {
	if err := unix.Unshare(unix.CLONE_NEWUSER); err != nil {
		return kgerr.New("unshare_user", kgerr.NamespaceError, err)
	}
	return nil
}

// SetDieWithParent requests SIGKILL on parent death (§4.1). Idempotent;
// safe to call more than once.
func SetDieWithParent() error {
	if err := unix.Prctl(unix.PR_SET_PDEATHSIG, uintptr(unix.SIGKILL), 0, 0, 0); err != nil {
		return kgerr.New("set_die_with_parent", kgerr.NamespaceError, err)
	}
	return nil
}

// WriteIDMapLine returns "<id> 0 1\n", the single-id mapping line Exec
// writes to /proc/self/{uid,gid}_map after CLONE_NEWUSER (§4.4 Exec
// stage, S5).
func WriteIDMapLine(id uint32) string {
	return fmt.Sprintf("%d 0 1\n", id)
}
