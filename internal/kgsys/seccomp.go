package kgsys

import (
	"runtime"
	"syscall"

	"github.com/keg-project/keg/internal/kglog"
	seccomp "github.com/seccomp/libseccomp-golang"
)

// ApplySeccomp builds a default-allow filter, adds the alternate
// 32-bit architecture for the host ABI, and installs EPERM rules for
// add_key, request_key, and ioctl when arg1 masked-equals TIOCSTI or
// TIOCLINUX (§4.1). Purpose: deny terminal-injection and keyring-abuse
// paths that common hardening guides flag.
func ApplySeccomp() bool {
	filter, err := seccomp.NewFilter(seccomp.ActAllow)
	if err != nil {
		kglog.Warningf("seccomp: cannot create filter: %v", err)
		return false
	}
	defer filter.Release()

	if err := filter.AddArch(compatArch()); err != nil {
		kglog.Warningf("seccomp: cannot add compat arch: %v", err)
		return false
	}

	denyErrno := seccomp.ActErrno.SetReturnCode(int16(syscall.EPERM))

	for _, name := range []string{"add_key", "request_key"} {
		call, err := seccomp.GetSyscallFromName(name)
		if err != nil {
			kglog.Warningf("seccomp: unknown syscall %s: %v", name, err)
			return false
		}
		if err := filter.AddRule(call, denyErrno); err != nil {
			kglog.Warningf("seccomp: cannot add rule for %s: %v", name, err)
			return false
		}
	}

	ioctl, err := seccomp.GetSyscallFromName("ioctl")
	if err != nil {
		kglog.Warningf("seccomp: unknown syscall ioctl: %v", err)
		return false
	}
	for _, cmd := range []uint64{tiocsti, tioclinux} {
		cond, err := seccomp.MakeCondition(1, seccomp.CompareMaskedEqual, 0xffffffff, cmd)
		if err != nil {
			kglog.Warningf("seccomp: cannot build ioctl condition: %v", err)
			return false
		}
		if err := filter.AddRuleConditional(ioctl, denyErrno, []seccomp.ScmpCondition{cond}); err != nil {
			kglog.Warningf("seccomp: cannot add ioctl rule: %v", err)
			return false
		}
	}

	if err := filter.Load(); err != nil {
		kglog.Warningf("seccomp: cannot load filter: %v", err)
		return false
	}
	return true
}

// TIOCSTI/TIOCLINUX are architecture-independent ioctl request codes on
// Linux (defined in asm-generic/ioctls.h / linux/tiocl.h).
const (
	tiocsti   = 0x5412
	tioclinux = 0x541c
)

// compatArch returns the alternate 32-bit architecture for the host's
// native ABI, the one the original adds via #[cfg(target_arch)].
func compatArch() seccomp.ScmpArch {
	switch runtime.GOARCH {
	case "arm64":
		return seccomp.ArchARM
	default: // amd64 and others default to the x86 compat layer
		return seccomp.ArchX86
	}
}
