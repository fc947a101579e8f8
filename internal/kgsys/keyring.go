package kgsys

import "golang.org/x/sys/unix"

// keyctlJoinSessionKeyring is the KEYCTL_JOIN_SESSION_KEYRING operation
// code for the keyctl(2) syscall. golang.org/x/sys/unix does not wrap
// keyctl itself (it is rarely needed outside keyring management), so we
// invoke it through unix.Syscall the way the original calls the raw
// SYS_keyctl syscall directly.
const keyctlJoinSessionKeyring = 1

// JoinNewKeyringSession starts a fresh, unnamed session keyring for the
// calling process (§4.1). Purpose: the child must not share or poison
// the invoker's session keys. Returns false on error, matching the
// original's fail-open-to-caller signature — a failure here is logged
// by the caller but does not itself abort the stage ladder.
func JoinNewKeyringSession() bool {
	_, _, errno := unix.Syscall(unix.SYS_KEYCTL, keyctlJoinSessionKeyring, 0, 0)
	return errno == 0
}
