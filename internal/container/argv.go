package container

import (
	"os"
	"path/filepath"

	"github.com/keg-project/keg/internal/fsview"
)

// runSlirpAtStage reports whether isolation stage n launches slirp4netns
// after spawning its sandbox (§4.4 table, open question 1: the exact
// stage set {1, 3, 5} is preserved rather than derived from the
// pid/net combination it happens to coincide with).
func runSlirpAtStage(n uint8) bool { return n == 1 || n == 3 || n == 5 }

// sharesPidAtStage reports whether isolation stage n shares the pid
// namespace with its parent instead of unsharing it.
func sharesPidAtStage(n uint8) bool { return n == 1 || n == 3 || n == 5 }

// sharesNetAtStage reports whether isolation stage n's sandbox shares
// the net namespace when the request allows it — stages 0, 2, 4, 6 may
// share; 1, 3, 5 always unshare so slirp has a namespace to attach to.
func sharesNetAtStage(n uint8) bool { return n == 0 || n == 2 || n == 4 || n == 6 }

// baseIsolationArgv builds the argv common to every isolation stage,
// up to (but not including) the filesystem bind section (§4.4 step 4).
func baseIsolationArgv(n uint8, req *Request) []string {
	args := []string{"--unshare-user", "--unshare-ipc"}
	if !sharesPidAtStage(n) {
		args = append(args, "--unshare-pid")
	}
	if !req.ShareNet || !sharesNetAtStage(n) {
		args = append(args, "--unshare-net")
	}
	args = append(args,
		"--unshare-uts", "--unshare-cgroup",
		"--uid", "0", "--gid", "0",
		"--hostname", "container",
		"--chdir", "/",
		"--die-with-parent",
		"--cap-drop", "all",
		"--cap-add", "cap_setfcap",
		"--cap-add", "cap_sys_admin",
	)
	if n == 3 {
		args = append(args, "--cap-add", "cap_net_admin")
	}
	return args
}

const stagingImage = "/container_staging_image"

// imageBindArgv emits the stage-0 or deeper-stage filesystem bind
// section (§4.4 step 4).
func imageBindArgv(n uint8, req *Request) ([]string, error) {
	var args []string
	if n == 0 {
		if req.HasBaseImage {
			for _, dest := range []string{"/", stagingImage} {
				b, err := fsview.RoBindSubentriesKeepSymlinks(req.BaseImage, dest)
				if err != nil {
					return nil, err
				}
				args = append(args, b...)
			}
		} else {
			for _, dest := range []string{"/", stagingImage} {
				b, err := fsview.RoBindFilesystem(dest, false)
				if err != nil {
					return nil, err
				}
				args = append(args, b...)
			}
		}
		exe, err := os.Executable()
		if err != nil {
			return nil, err
		}
		args = append(args,
			"--ro-bind", exe, "/keg-bin",
			"--ro-bind", exe, filepath.Join(stagingImage, "keg-bin"),
		)
	} else {
		for _, dest := range []string{"/", stagingImage} {
			b, err := fsview.RoBindSubentriesKeepSymlinks(stagingImage, dest)
			if err != nil {
				return nil, err
			}
			args = append(args, b...)
		}
	}
	return args, nil
}

// commonMountsArgv is the --proc/--tmpfs/--dev/... tail every isolation
// stage appends (§4.4 step 4, last sentence).
func commonMountsArgv() []string {
	return []string{
		"--proc", "/proc",
		"--tmpfs", "/tmp",
		"--dev", "/dev",
		"--mqueue", "/dev/mqueue",
		"--dev-bind", "/dev/fuse", "/dev/fuse",
		"--dev-bind", "/dev/net/tun", "/dev/net/tun",
	}
}

// bindDirectiveArgv emits, in source order, the bwrap flag for every
// user Bind/DevBind/RoBind directive (§4.4 step 5). Symlink and Dir
// directives are ignored at isolation stages — they are realized in
// Mounting. stage0 uses the real source path; deeper stages use the
// placeholder already exposed by the previous stage.
func bindDirectiveArgv(stage0 bool, req *Request) []string {
	var args []string
	var bindIndex uint64
	for _, opt := range req.Options {
		flag, ok := bindFlag(opt.Kind)
		if !ok {
			continue
		}
		placeholder := BindPlaceholder(bindIndex)
		bindIndex++
		src := placeholder
		if stage0 {
			src = opt.Src
		}
		args = append(args, flag, src, placeholder)
	}
	return args
}

func bindFlag(k DirectiveKind) (string, bool) {
	switch k {
	case KindBind:
		return "--bind", true
	case KindDevBind:
		return "--dev-bind", true
	case KindRoBind:
		return "--ro-bind", true
	default:
		return "", false
	}
}

// BuildIsolationArgv assembles the full bwrap argv for isolation stage
// n, up to but not including the trailing "-- /keg-bin --inner <fd>"
// (which the caller appends once the socket's child-fd number is
// known).
func BuildIsolationArgv(n uint8, req *Request) ([]string, error) {
	args := baseIsolationArgv(n, req)
	imageArgs, err := imageBindArgv(n, req)
	if err != nil {
		return nil, err
	}
	args = append(args, imageArgs...)
	args = append(args, commonMountsArgv()...)
	args = append(args, bindDirectiveArgv(n == 0, req)...)
	return args, nil
}

// BuildMountingArgv assembles the full bwrap argv for the Mounting
// stage (§4.4 "Mounting stage").
func BuildMountingArgv(req *Request) ([]string, error) {
	args := []string{
		"--unshare-user", "--unshare-ipc", "--unshare-pid",
		"--unshare-uts", "--unshare-cgroup",
		"--uid", "0", "--gid", "0",
		"--hostname", "container",
		"--chdir", "/",
		"--die-with-parent",
		"--cap-drop", "all",
		"--cap-add", "all",
	}
	b, err := fsview.RoBindSubentriesKeepSymlinks(stagingImage, "/")
	if err != nil {
		return nil, err
	}
	args = append(args, b...)
	args = append(args,
		"--proc", "/proc",
		"--tmpfs", "/tmp",
		"--tmpfs", "/run",
		"--dir", "/root",
		"--dir", "/home",
		"--dir", "/home/user",
		"--dev", "/dev",
		"--mqueue", "/dev/mqueue",
		"--dev-bind", "/dev/fuse", "/dev/fuse",
		"--dev-bind", "/dev/net/tun", "/dev/net/tun",
		"--tmpfs", "/sys",
	)

	var bindIndex uint64
	for _, opt := range req.Options {
		switch opt.Kind {
		case KindSymlink:
			args = append(args, "--symlink", opt.Src, opt.Dest)
		case KindDir:
			args = append(args, "--dir", opt.Dest)
		}
		if flag, ok := bindFlag(opt.Kind); ok {
			args = append(args, flag, BindPlaceholder(bindIndex), opt.Dest)
			bindIndex++
		}
	}

	args = append(args, "--tmpfs", "/sys/fs/cgroup")
	return args, nil
}

// NftLoaderArgv builds the bwrap argv for the one-shot stage-4 nft
// loader (§4.4 step 3, run_nft in isolation.rs).
func NftLoaderArgv(rulesPath string) ([]string, error) {
	args := []string{
		"--unshare-ipc", "--unshare-pid", "--unshare-uts", "--unshare-cgroup",
		"--uid", "0", "--gid", "0",
		"--hostname", "",
		"--chdir", "/",
	}
	b, err := fsview.RoBindSubentriesKeepSymlinks(stagingImage, "/")
	if err != nil {
		return nil, err
	}
	args = append(args, b...)
	args = append(args,
		"--ro-bind", rulesPath, "/container_net_nft_rules",
		"--die-with-parent",
		"--cap-drop", "all",
		"--cap-add", "cap_net_admin",
		"--",
		"/usr/sbin/nft", "-f", "/container_net_nft_rules",
	)
	return args, nil
}
