package container

import (
	"os"
	"os/exec"

	"github.com/keg-project/keg/internal/cgroup"
	"github.com/keg-project/keg/internal/kgerr"
	"github.com/keg-project/keg/internal/kglog"
	"github.com/keg-project/keg/internal/kgsys"
	"github.com/keg-project/keg/internal/sandbox"
	"github.com/keg-project/keg/internal/transport"
)

// RunMounting executes the Mounting stage (§4.4 "Mounting stage"): lays
// out the container's final mount tree and spawns the sandbox that
// transitions to Exec.
func RunMounting(req *Request, env []EnvPair) (*os.ProcessState, error) {
	log := kglog.WithStage(Mounting.String(), os.Getpid())

	if err := cgroup.Init(false); err != nil {
		return nil, err
	}

	if !req.ShareTime {
		if err := kgsys.UnshareTime(); err != nil {
			return nil, err
		}
	}

	argv, err := BuildMountingArgv(req)
	if err != nil {
		return nil, err
	}

	conn, childFD, err := kgsys.SocketPair()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	cmd := sandbox.NewBwrapCmd(argv, false)
	innerFD := sandbox.WithInnerSocket(cmd, childFD)
	log.Debugf("spawning bwrap with inner socket fd %d", innerFD)

	if err := cgroup.Preexec(false); err != nil {
		return nil, err
	}

	if err := sandbox.Start(cmd); err != nil {
		return nil, err
	}
	if err := kgsys.CloseLastPassedFD(cmd); err != nil {
		log.Warningf("cannot close donated socket fd: %v", err)
	}

	msg := &RunnerMessage{Stage: Exec, Request: *ForMounting(req), Env: env}
	if err := transport.WriteMessage(conn, msg); err != nil {
		return nil, err
	}

	if _, err := transport.ReadResponse(conn); err != nil {
		return nil, err
	}

	if err := cgroup.Postexec(false); err != nil {
		return nil, err
	}

	if err := transport.WriteGoAhead(conn); err != nil {
		return nil, err
	}

	if err := cmd.Wait(); err != nil {
		if _, isExit := err.(*exec.ExitError); !isExit {
			return cmd.ProcessState, kgerr.New("bwrap_wait", kgerr.SandboxLaunchFailed, err)
		}
	}
	return cmd.ProcessState, nil
}
