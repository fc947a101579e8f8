// Package cgroup implements the delegation manager of §4.2: the
// sibling-cgroup dance cgroup v2's "no internal processes" rule and the
// nsdelegate mount option require before a transited-to sandbox is
// allowed to manage its own cgroup namespace.
//
// Process moves and controller enablement go through containerd/cgroups'
// cgroup2.Manager. Creating the sibling directories (os.Mkdir), reading
// cgroup.procs for the sweeps, the nsdelegate mount/unmount, and the
// /proc/self/cgroup v2-line discovery are raw file and syscall
// operations, the same way cgroup.rs implements them with libc calls
// rather than a crate.
package cgroup

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/containerd/cgroups/cgroup2"
	"github.com/keg-project/keg/internal/kgerr"
	"github.com/keg-project/keg/internal/kglog"
	"golang.org/x/sys/unix"
)

const (
	dirParent   = "unit.container_parent"
	dirChildren = "unit.container_children"
	dirSpawn    = "unit.container_spawn"
	dirOther    = "unit.container_other"

	innerCgroupPath = "/container_cgroup"
)

func op(name string, err error) error {
	if err == nil {
		return nil
	}
	return kgerr.New(name, kgerr.CgroupOperationFailed, err)
}

// procSelfCgroupPath and the two candidate sysfs roots are indirected
// through vars, not constants, so a test can point them at a fake
// hierarchy without a real cgroup v2 mount (cgroup_test.go).
var (
	procSelfCgroupPath = "/proc/self/cgroup"
	cgroupUnifiedRoot  = "/sys/fs/cgroup/unified"
	cgroupDefaultRoot  = "/sys/fs/cgroup"
)

// discoverRootStage0 parses procSelfCgroupPath for the v2 ("0::") line
// and returns the absolute path of the caller's *current* cgroup under
// whichever of cgroupUnifiedRoot or cgroupDefaultRoot is mounted (§4.2).
// Callers made after InitStage0 has already moved self into a sibling
// directory must pop that trailing segment back off before joining a
// new sibling name — discoverRootStage0 always reports where self
// actually is, not the original root.
func discoverRootStage0() (string, error) {
	data, err := os.ReadFile(procSelfCgroupPath)
	if err != nil {
		return "", kgerr.New("discover_cgroup_root", kgerr.CgroupUnsupported, err)
	}
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if !strings.HasPrefix(line, "0::") {
			continue
		}
		rel := strings.TrimPrefix(line, "0::")
		rel = strings.TrimPrefix(rel, "/")

		root := cgroupUnifiedRoot
		if _, err := os.Stat(root); err != nil {
			root = cgroupDefaultRoot
		}
		return filepath.Join(root, rel), nil
	}
	return "", kgerr.New("discover_cgroup_root", kgerr.CgroupUnsupported, nil)
}

// mgr loads (without requiring prior creation) a cgroup2 manager rooted
// at an arbitrary mountpoint — used because our cgroups live under a
// discovered or bind-mounted path, not always the system default
// /sys/fs/cgroup.
func mgr(path string) (*cgroup2.Manager, error) {
	return cgroup2.NewManager(filepath.Dir(path), "/"+filepath.Base(path), &cgroup2.Resources{})
}

func moveOne(pid string, to string) error {
	m, err := mgr(to)
	if err != nil {
		return op("move_one", err)
	}
	if pid == "0" {
		return op("move_one", m.AddProc(0))
	}
	var n uint64
	for _, c := range pid {
		n = n*10 + uint64(c-'0')
	}
	return op("move_one", m.AddProc(n))
}

func cgroupNS(pid string) (string, error) {
	link, err := os.Readlink(filepath.Join("/proc", pid, "ns/cgroup"))
	if err != nil {
		return "", kgerr.New("cgroup_ns", kgerr.CgroupOperationFailed, err)
	}
	return link, nil
}

// moveAll moves every pid out of from's cgroup.procs into to,
// refusing to ever move the literal pid "0" (defence in depth against
// an ambiguous self-reference — the sweep never actually produces "0"
// since it reads concrete pids from cgroup.procs, but the check is kept
// per the design's open question 2).
func moveAll(from, to string) error {
	for {
		procs, err := readProcs(from)
		if err != nil {
			return err
		}
		if len(procs) == 0 {
			return nil
		}
		for _, p := range procs {
			if p == "0" {
				return kgerr.New("move_all", kgerr.CgroupOperationFailed, nil)
			}
			if err := moveOne(p, to); err != nil {
				return err
			}
		}
	}
}

// moveAllMatchingNS loops moving every pid in from whose cgroup
// namespace equals ns into to, restarting the scan from scratch after
// every move (pids may be concurrently added by the just-forked
// sandbox) until a full pass makes no moves (§4.2 ordering guarantees).
func moveAllMatchingNS(from, to string, ns string) error {
	for {
		procs, err := readProcs(from)
		if err != nil {
			return err
		}
		moved := false
		for _, p := range procs {
			if p == "0" {
				return kgerr.New("move_all_matching_ns", kgerr.CgroupOperationFailed, nil)
			}
			thisNS, err := cgroupNS(p)
			if err != nil {
				return err
			}
			if thisNS == ns {
				moved = true
				if err := moveOne(p, to); err != nil {
					return err
				}
				break
			}
		}
		if !moved {
			return nil
		}
	}
}

func readProcs(cgroupDir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(cgroupDir, "cgroup.procs"))
	if err != nil {
		return nil, op("read_cgroup_procs", err)
	}
	var out []string
	for _, p := range strings.Split(string(data), "\n") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// addSubtreeControl reads cgroup.controllers and writes every
// controller listed, "+"-prefixed, to cgroup.subtree_control (§4.2
// Init), via cgroup2.Manager.Controllers/ToggleControllers.
func addSubtreeControl(cgroupDir string) error {
	m, err := mgr(cgroupDir)
	if err != nil {
		return op("add_subtree_control", err)
	}
	controllers, err := m.Controllers()
	if err != nil {
		return op("add_subtree_control", err)
	}
	if len(controllers) == 0 {
		return nil
	}
	if err := m.ToggleControllers(controllers, cgroup2.Enable); err != nil {
		return op("add_subtree_control", err)
	}
	return nil
}

func mkdirAll4(base string) error {
	for _, d := range []string{dirParent, dirChildren, dirSpawn, dirOther} {
		if err := os.Mkdir(filepath.Join(base, d), 0o755); err != nil {
			return op("create_cgroup", err)
		}
	}
	return nil
}

// initSequence is the common body shared by stage0 and inner Init:
// create the four siblings, sweep pre-existing processes into other,
// move self into spawn, enable every controller.
func initSequence(base string) error {
	if err := mkdirAll4(base); err != nil {
		return err
	}
	if err := moveAll(base, filepath.Join(base, dirOther)); err != nil {
		return err
	}
	if err := moveOne("0", filepath.Join(base, dirSpawn)); err != nil {
		return err
	}
	return addSubtreeControl(base)
}

// InitStage0 discovers the caller's own v2 cgroup and lays out the
// sibling cgroups within it (§4.2 "Discovering the root (stage 0
// only)" + "Init (stage 0)").
func InitStage0() error {
	base, err := discoverRootStage0()
	if err != nil {
		return err
	}
	kglog.Debugf("cgroup: stage0 init at %s", base)
	return initSequence(base)
}

// discoverPoppedRootStage0 is discoverRootStage0 with the trailing
// sibling segment popped back off. Every stage0 call after InitStage0
// reads its *current* cgroup, which is always one sibling deeper than
// the base the siblings were laid out under (InitStage0 moves self
// into spawn; PreexecStage0 below then moves it again into children),
// so a caller that wants the base back must undo that one segment
// first — mirrors cgroup.pop() in cgroup.rs's
// cgroup_preexec_stage0/cgroup_postexec_stage0.
func discoverPoppedRootStage0() (string, error) {
	base, err := discoverRootStage0()
	if err != nil {
		return "", err
	}
	return filepath.Dir(base), nil
}

// PreexecStage0 moves the caller from spawn into children so the
// about-to-be-spawned sandbox can manage its own cgroup namespace.
func PreexecStage0() error {
	base, err := discoverPoppedRootStage0()
	if err != nil {
		return err
	}
	return moveOne("0", filepath.Join(base, dirChildren))
}

// PostexecStage0 sweeps children back into parent for every pid whose
// cgroup namespace matches self's.
func PostexecStage0() error {
	base, err := discoverPoppedRootStage0()
	if err != nil {
		return err
	}
	selfNS, err := cgroupNS("self")
	if err != nil {
		return err
	}
	return moveAllMatchingNS(filepath.Join(base, dirChildren), filepath.Join(base, dirParent), selfNS)
}

// Mount mounts a fresh cgroup2 view with the nsdelegate option at path,
// purely to access the current namespace's own cgroup root (§4.1
// mount_cgroup, §4.2 and §4.4 Exec stage).
func Mount(path string) error {
	if err := unix.Mount("none", path, "cgroup2", unix.MS_SILENT, "nsdelegate"); err != nil {
		return op("mount_cgroup", err)
	}
	return nil
}

func mountInnerCgroup() error {
	if err := os.Mkdir(innerCgroupPath, 0o755); err != nil && !os.IsExist(err) {
		return op("mount_cgroup", err)
	}
	if err := Mount(innerCgroupPath); err != nil {
		os.Remove(innerCgroupPath)
		return err
	}
	return nil
}

func unmountInnerCgroup() error {
	if err := unix.Unmount(innerCgroupPath, 0); err != nil {
		return op("unmount_cgroup", err)
	}
	return op("remove_cgroup_dir", os.Remove(innerCgroupPath))
}

// InitStageInner operates on the canonical path /container_cgroup: it
// creates and mounts a fresh cgroup2 view (with nsdelegate, purely to
// access the current namespace's own cgroup root), runs the same init
// sequence as stage0, then tears the mount back down (§4.2 "Init (inner
// stages)").
func InitStageInner() error {
	if err := mountInnerCgroup(); err != nil {
		return err
	}
	if err := initSequence(innerCgroupPath); err != nil {
		unmountInnerCgroup()
		return err
	}
	return unmountInnerCgroup()
}

func PreexecStageInner() error {
	if err := mountInnerCgroup(); err != nil {
		return err
	}
	if err := moveOne("0", filepath.Join(innerCgroupPath, dirChildren)); err != nil {
		unmountInnerCgroup()
		return err
	}
	return unmountInnerCgroup()
}

func PostexecStageInner() error {
	if err := mountInnerCgroup(); err != nil {
		return err
	}
	selfNS, err := cgroupNS("self")
	if err != nil {
		unmountInnerCgroup()
		return err
	}
	if err := moveAllMatchingNS(filepath.Join(innerCgroupPath, dirChildren), filepath.Join(innerCgroupPath, dirParent), selfNS); err != nil {
		unmountInnerCgroup()
		return err
	}
	return unmountInnerCgroup()
}

// InitStageExec operates directly on /sys/fs/cgroup (already the
// child's own view by the time Exec runs) and creates only spawn and
// other, moving pre-existing processes to other, self to spawn, and
// enabling subtree controllers (§4.2 "Exec-time init").
func InitStageExec() error {
	const cg = "/sys/fs/cgroup"
	if err := os.Mkdir(filepath.Join(cg, dirSpawn), 0o755); err != nil {
		return op("create_cgroup", err)
	}
	if err := os.Mkdir(filepath.Join(cg, dirOther), 0o755); err != nil {
		return op("create_cgroup", err)
	}
	if err := moveAll(cg, filepath.Join(cg, dirOther)); err != nil {
		return err
	}
	if err := moveOne("0", filepath.Join(cg, dirSpawn)); err != nil {
		return err
	}
	return addSubtreeControl(cg)
}

// Init dispatches to the stage0 or inner variant (§4.2).
func Init(stage0 bool) error {
	if stage0 {
		return InitStage0()
	}
	return InitStageInner()
}

// Preexec dispatches to the stage0 or inner variant.
func Preexec(stage0 bool) error {
	if stage0 {
		return PreexecStage0()
	}
	return PreexecStageInner()
}

// Postexec dispatches to the stage0 or inner variant.
func Postexec(stage0 bool) error {
	if stage0 {
		return PostexecStage0()
	}
	return PostexecStageInner()
}
