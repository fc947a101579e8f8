// Package sandbox launches the two external binaries the engine drives
// directly: bwrap (the sandboxing primitive) and slirp4netns (userspace
// networking), per §4.1 and §6. Neither binary's own output is parsed;
// the engine only cares about exit status and, for slirp, a one-byte
// readiness signal delivered over a socket it already holds.
package sandbox

import (
	"os"
	"os/exec"
	"strconv"

	"github.com/keg-project/keg/internal/kgerr"
	"github.com/keg-project/keg/internal/kgsys"
)

const bwrapPath = "/usr/bin/bwrap"

// NewBwrapCmd prepares (but does not start) a bwrap invocation. argv is
// everything up to but not including the trailing
// "-- /keg-bin --inner <fd>" that every stage appends once it knows
// which child-side fd its socket will land on (see WithInnerSocket).
func NewBwrapCmd(argv []string, envClear bool) *exec.Cmd {
	cmd := exec.Command(bwrapPath)
	cmd.Args = append([]string{bwrapPath}, argv...)
	if envClear {
		cmd.Env = []string{}
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// WithInnerSocket donates sockFD to cmd and appends
// "-- /keg-bin --inner <child-fd>" to its argv, returning the child-fd
// number used (for callers that want to log it).
func WithInnerSocket(cmd *exec.Cmd, sockFD int) int {
	childFD := kgsys.PassFD(cmd, sockFD)
	cmd.Args = append(cmd.Args, "--", "/keg-bin", "--inner", strconv.Itoa(childFD))
	return childFD
}

// Start starts cmd (already prepared by NewBwrapCmd), returning
// SandboxLaunchFailed on error.
func Start(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return kgerr.New("bwrap", kgerr.SandboxLaunchFailed, err)
	}
	return nil
}

// Run starts cmd and waits for it, returning SandboxLaunchFailed if the
// process could not be started or exited non-zero. Used for the
// one-shot nft loader, which has no further protocol after exit.
func Run(cmd *exec.Cmd) error {
	if err := Start(cmd); err != nil {
		return err
	}
	if err := cmd.Wait(); err != nil {
		return kgerr.New("bwrap", kgerr.SandboxLaunchFailed, err)
	}
	return nil
}
