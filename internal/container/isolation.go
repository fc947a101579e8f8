// Package container's isolation.go drives the seven-state isolation
// ladder of §4.4: each call forks one more bwrap sandbox, hands it the
// next Request over a socket, and waits for its exit.
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

const nftRulesPath = "/container_net_nft_rules"

// RunIsolation executes isolation stage n for req/env (§4.4 numbered
// steps 1-13) and returns the spawned sandbox's exit state.
func RunIsolation(n uint8, req *Request, env []EnvPair) (*os.ProcessState, error) {
	log := kglog.WithStage(Isolation(n).String(), os.Getpid())
	stage0 := n == 0

	if err := cgroup.Init(stage0); err != nil {
		return nil, err
	}

	if stage0 {
		env = ProcessEnv(req, env)
	}

	if !req.ShareTime && n > 0 {
		if err := kgsys.UnshareTime(); err != nil {
			return nil, err
		}
	}

	if n == 4 {
		if err := runNft(req); err != nil {
			return nil, err
		}
	}

	argv, err := BuildIsolationArgv(n, req)
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

	if err := cgroup.Preexec(stage0); err != nil {
		return nil, err
	}

	if err := sandbox.Start(cmd); err != nil {
		return nil, err
	}
	if err := kgsys.CloseLastPassedFD(cmd); err != nil {
		log.Warningf("cannot close donated socket fd: %v", err)
	}

	successor := req.Clone()
	if stage0 {
		CleanupAfterStage0(successor)
	}
	if n == 4 {
		ClearNftRules(successor)
	}

	msg := &RunnerMessage{Stage: nextOf(n), Request: *successor, Env: env}
	if err := transport.WriteMessage(conn, msg); err != nil {
		return nil, err
	}

	resp, err := transport.ReadResponse(conn)
	if err != nil {
		return nil, err
	}

	if err := cgroup.Postexec(stage0); err != nil {
		return nil, err
	}

	if runSlirpAtStage(n) {
		if err := runSlirpHandshake(int(resp.Pid)); err != nil {
			return nil, err
		}
	}

	if err := transport.WriteGoAhead(conn); err != nil {
		return nil, err
	}

	if err := cmd.Wait(); err != nil {
		// A non-zero exit is reported through ProcessState, not err, via
		// *exec.ExitError; anything else means bwrap itself could not
		// be waited on.
		if _, isExit := err.(*exec.ExitError); !isExit {
			return cmd.ProcessState, kgerr.New("bwrap_wait", kgerr.SandboxLaunchFailed, err)
		}
	}
	return cmd.ProcessState, nil
}

func nextOf(n uint8) Stage { return Isolation(n).Next() }

// runNft implements §4.4 step 3: write the rules, run the stage-4 nft
// loader in its own minimal sandbox, always delete the rules file.
func runNft(req *Request) error {
	if err := os.WriteFile(nftRulesPath, req.NetNftRules, 0o600); err != nil {
		os.Remove(nftRulesPath)
		return kgerr.New("write_nft_rules", kgerr.NftLoadFailed, err)
	}
	defer os.Remove(nftRulesPath)

	argv, err := NftLoaderArgv(nftRulesPath)
	if err != nil {
		return err
	}
	cmd := sandbox.NewBwrapCmd(argv, false)
	if err := sandbox.Run(cmd); err != nil {
		return kgerr.New("run_nft", kgerr.NftLoadFailed, err)
	}
	return nil
}

// runSlirpHandshake implements §4.6: launch slirp4netns against pid and
// block until it signals readiness on the other end of a fresh socket
// pair.
func runSlirpHandshake(pid int) error {
	conn, childFD, err := kgsys.SocketPair()
	if err != nil {
		return err
	}
	defer conn.Close()

	cmd, err := sandbox.Slirp(pid, childFD)
	if err != nil {
		return err
	}
	if err := kgsys.CloseLastPassedFD(cmd); err != nil {
		kglog.Warningf("slirp: cannot close donated ready fd: %v", err)
	}

	return transport.ReadOneByte(conn)
}
