package container

import (
	"os"
	"os/exec"
	"strings"

	"github.com/keg-project/keg/internal/cgroup"
	"github.com/keg-project/keg/internal/kgerr"
	"github.com/keg-project/keg/internal/kglog"
	"github.com/keg-project/keg/internal/kgsys"
	"github.com/syndtr/gocapability/capability"
	"golang.org/x/sys/unix"
)

const (
	dummyLoadavg = "1.00 1.00 1.00 1/100 1\n"
	dummyStat    = `cpu  0 0 0 0 0 0 0 0 0 0
cpu0 0 0 0 0 0 0 0 0 0 0
intr 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0
ctxt 0
btime 100
processes 100
procs_running 1
procs_blocked 0
softirq 0 0 0 0 0 0 0 0 0 0 0
`
	dummyUptime = "100.00 100.00\n"
)

// RunExec executes the terminal Exec stage (§4.4 "Exec stage"). On
// success it never returns — the process image is replaced by
// req.Command. On failure it returns the ExecFailed/PreExecFailed/
// InvalidEnv error describing why.
func RunExec(req *Request, env []EnvPair) error {
	if req.CreateDummyFiles {
		if err := writeDummyFiles(); err != nil {
			return err
		}
	}

	if err := cgroup.Mount("/sys/fs/cgroup"); err != nil {
		return err
	}
	if err := cgroup.InitStageExec(); err != nil {
		return err
	}

	for _, kv := range env {
		if err := validateEnvPair(kv); err != nil {
			return err
		}
		if err := os.Setenv(kv.Key, kv.Value); err != nil {
			return kgerr.New("set_env", kgerr.InvalidEnv, err)
		}
	}

	if len(req.CommandBeforeUnshareUser) > 0 {
		if err := runPreExecCommand(req.CommandBeforeUnshareUser); err != nil {
			return err
		}
	}

	if req.UnshareUser != nil {
		if err := kgsys.UnshareUser(); err != nil {
			return err
		}
		u := req.UnshareUser
		if err := os.WriteFile("/proc/self/uid_map", []byte(kgsys.WriteIDMapLine(u.UID)), 0); err != nil {
			return kgerr.New("write_uid_map", kgerr.ExecFailed, err)
		}
		if err := os.WriteFile("/proc/self/setgroups", []byte("deny"), 0); err != nil {
			return kgerr.New("write_setgroups", kgerr.ExecFailed, err)
		}
		if err := os.WriteFile("/proc/self/gid_map", []byte(kgsys.WriteIDMapLine(u.GID)), 0); err != nil {
			return kgerr.New("write_gid_map", kgerr.ExecFailed, err)
		}
	}

	if len(req.Command) == 0 {
		return kgerr.New("exec", kgerr.ExecFailed, nil)
	}

	logBoundingCapabilities()

	kglog.Debugf("exec: replacing image with %s", strings.Join(req.Command, " "))
	err := unix.Exec(req.Command[0], req.Command, os.Environ())
	return kgerr.New("execv", kgerr.ExecFailed, err)
}

// logBoundingCapabilities reports the process's own bounding capability
// set at debug level right before the image is replaced — the last
// point at which a stage that skipped or mis-ordered one of the earlier
// --cap-drop/--cap-add stages is still observable from inside Go.
func logBoundingCapabilities() {
	caps, err := capability.NewPid2(0)
	if err != nil {
		kglog.Warningf("exec: could not load capability set: %v", err)
		return
	}
	if err := caps.Load(); err != nil {
		kglog.Warningf("exec: could not read capability set: %v", err)
		return
	}
	var held []string
	for _, c := range capability.List() {
		if caps.Get(capability.BOUNDING, c) {
			held = append(held, c.String())
		}
	}
	kglog.Debugf("exec: bounding capability set: %s", strings.Join(held, ","))
}

func validateEnvPair(kv EnvPair) error {
	if kv.Key == "" || strings.ContainsAny(kv.Key, "=\x00") || strings.ContainsRune(kv.Value, 0) {
		return kgerr.New("validate_env", kgerr.InvalidEnv, nil)
	}
	return nil
}

func writeDummyFiles() error {
	files := []struct {
		path, content string
	}{
		{"/container_dummy_loadavg", dummyLoadavg},
		{"/container_dummy_stat", dummyStat},
		{"/container_dummy_uptime", dummyUptime},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, []byte(f.content), 0o444); err != nil {
			return kgerr.New("write_dummy_file", kgerr.ExecFailed, err)
		}
		if err := os.Chmod(f.path, 0o444); err != nil {
			return kgerr.New("chmod_dummy_file", kgerr.ExecFailed, err)
		}
	}
	return nil
}

func runPreExecCommand(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return kgerr.New("command_before_unshare_user", kgerr.PreExecFailed, err)
	}
	return nil
}
