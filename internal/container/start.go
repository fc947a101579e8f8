package container

import (
	"fmt"
	"os"

	"github.com/keg-project/keg/internal/kgerr"
	"github.com/keg-project/keg/internal/kglog"
	"github.com/keg-project/keg/internal/kgsys"
)

// Dispatch runs the stage handler named by stage and returns its exit
// code (§3 Stage dispatch: Isolation(n) -> isolation.go,
// Mounting -> mounting.go, Exec -> exec.go — exec never returns on
// success since it replaces the process image).
func Dispatch(stage Stage, req *Request, env []EnvPair) (int, error) {
	switch stage.Kind {
	case "isolation":
		state, err := RunIsolation(stage.N, req, env)
		return exitCodeOf(state, err)
	case "mounting":
		state, err := RunMounting(req, env)
		return exitCodeOf(state, err)
	case "exec":
		err := RunExec(req, env)
		return 1, err
	default:
		return 1, kgerr.New("dispatch", kgerr.ExecFailed, fmt.Errorf("unknown stage %q", stage.Kind))
	}
}

func exitCodeOf(state *os.ProcessState, err error) (int, error) {
	if err != nil {
		return 1, err
	}
	if state == nil {
		return 1, nil
	}
	return state.ExitCode(), nil
}

// StartOnce installs the process-wide, set-exactly-once hardening of
// §4.1 — seccomp filter and a fresh session keyring — then enters
// Isolation(0). Called exactly once, by the outermost front-end, before
// any stage runs (§8 "Global state").
func StartOnce(req *Request, env []EnvPair) (int, error) {
	if !kgsys.ApplySeccomp() {
		kglog.Warningf("seccomp filter could not be installed, continuing without it")
	}
	if !kgsys.JoinNewKeyringSession() {
		kglog.Warningf("could not join a new session keyring, continuing without it")
	}
	return Dispatch(Isolation(0), req, env)
}
