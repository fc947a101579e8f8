// Package kgrelaunch implements the systemd-scope self-relaunch of §6,
// `run_in_scope` in run/utils.rs: re-exec the caller under
// `systemd-run --user --scope` so the engine's cgroup delegation (§4.2)
// has a systemd-managed unit to work beneath, unless the caller opted
// out or no systemd user session is available.
package kgrelaunch

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/coreos/go-systemd/v22/util"
	"github.com/keg-project/keg/internal/kgerr"
)

// Available reports whether the host was booted with systemd
// (go-systemd's IsRunningSystemd). It does not check that a systemd
// user session is running.
func Available() bool {
	return util.IsRunningSystemd()
}

// Relaunch execs
// `systemd-run --user --scope -q -- <self> <subcommand> -- --no-new-scope
// <subArgs...>`, replacing the current process. subcommand is the
// front-end profile name (e.g. "base"), reissued first since our CLI
// dispatches on it the way the original's separate per-profile binaries
// didn't need to; the "--" after it keeps the profile options away from
// the subcommand's own flag set. It only returns on error.
func Relaunch(subcommand string, subArgs []string) error {
	self, err := os.Executable()
	if err != nil {
		return kgerr.New("relaunch", kgerr.ExecFailed, err)
	}

	scopeArgs := append([]string{"--user", "--scope", "-q", "--", self, subcommand, "--", "--no-new-scope"}, subArgs...)
	path, err := exec.LookPath("systemd-run")
	if err != nil {
		return kgerr.New("relaunch", kgerr.ExecFailed, err)
	}

	argv := append([]string{"systemd-run"}, scopeArgs...)
	err = syscall.Exec(path, argv, os.Environ())
	return kgerr.New("relaunch", kgerr.ExecFailed, err)
}
