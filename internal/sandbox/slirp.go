package sandbox

import (
	"os/exec"
	"strconv"

	"github.com/keg-project/keg/internal/kgerr"
	"github.com/keg-project/keg/internal/kgsys"
)

const slirpPath = "/usr/bin/slirp4netns"

// Slirp spawns /usr/bin/slirp4netns targeting pid's network namespace,
// with readyFD (the child end of a fresh socket pair; the caller keeps
// the other end to read the ready byte) donated to it
// as --ready-fd (§4.1, §6). stdin/out/err are nulled, matching the
// original's Stdio::null() on all three.
func Slirp(pid int, readyFD int) (*exec.Cmd, error) {
	cmd := exec.Command(slirpPath)
	childFD := kgsys.PassFD(cmd, readyFD)
	cmd.Args = []string{
		slirpPath,
		"--configure",
		"--ready-fd", strconv.Itoa(childFD),
		"--enable-ipv6",
		"--disable-host-loopback",
		strconv.Itoa(pid),
		"tap0",
	}
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return nil, kgerr.New("slirp4netns", kgerr.NetworkHelperFailed, err)
	}
	return cmd, nil
}
