package kgsys

import (
	"os"
	"os/exec"
)

// PassFD arranges for fd to be inherited by cmd (an exec.Cmd that has
// not yet been started) and returns the fd number it will have inside
// the child. Go's os/exec closes every inherited descriptor it wasn't
// told about before calling execve, unlike a plain fork+exec — so
// "leave it non-cloexec and let it ride along" (which is what the
// original Rust code relies on) does not work here. We instead donate
// it explicitly via cmd.ExtraFiles, the same sequential-numbering
// scheme the teacher's own donation.Agency uses in sandbox.go
// (cmd.ExtraFiles are always renumbered starting at 3, after stdin,
// stdout, and stderr).
func PassFD(cmd *exec.Cmd, fd int) int {
	cmd.ExtraFiles = append(cmd.ExtraFiles, os.NewFile(uintptr(fd), "keg-donated-fd"))
	return 3 + len(cmd.ExtraFiles) - 1
}

// CloseLastPassedFD sets close-on-exec on the parent's copy of the most
// recently PassFD-donated descriptor and then closes it. Call once the
// child has been started (the kernel's fork+exec has already dup'd it
// into the child); holding the parent's copy open past that point would
// leak it into any later child spawned from the same process (§4.6
// "File descriptors").
func CloseLastPassedFD(cmd *exec.Cmd) error {
	if len(cmd.ExtraFiles) == 0 {
		return nil
	}
	f := cmd.ExtraFiles[len(cmd.ExtraFiles)-1]
	if err := SetCloseOnExec(int(f.Fd())); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
