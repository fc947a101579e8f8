package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
	"github.com/keg-project/keg/internal/container"
	"github.com/keg-project/keg/internal/kgconfig"
	"github.com/keg-project/keg/internal/kgpodman"
	"github.com/keg-project/keg/internal/kgworkspace"
	"github.com/keg-project/keg/internal/overlay"
)

// workspaceCommand implements the `workspace` profile (SPEC_FULL.md
// supplemented feature 1, grounded on run/workspace.rs and
// run/rootfs.rs): like base, but reads a project-local `.keg.toml`,
// builds a fuse-overlayfs view backed by a persistent cache directory,
// and runs the final command through podman against that overlay's
// merged tree.
type workspaceCommand struct{}

func (*workspaceCommand) Name() string     { return "workspace" }
func (*workspaceCommand) Synopsis() string { return "launch a project workspace container" }
func (*workspaceCommand) Usage() string {
	return "workspace -- [-w workspace-dir] [--base-image PATH] [options] [--] command...\n" +
		"Profile options are only recognized after the first \"--\".\n"
}
func (*workspaceCommand) SetFlags(*flag.FlagSet) {}

func (*workspaceCommand) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	args := f.Args()

	workspaceDir := "."
	var baseImage string
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-w", "--workspace-dir":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "-w requires an argument")
				return subcommands.ExitUsageError
			}
			i++
			workspaceDir = args[i]
		case "--base-image":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--base-image requires an argument")
				return subcommands.ExitUsageError
			}
			i++
			baseImage = args[i]
		default:
			rest = append(rest, args[i])
		}
	}

	proj, err := kgconfig.Load(filepath.Join(workspaceDir, ".keg.toml"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	c, err := parseBaseArgs(rest)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	req := c.Request

	// Project directives go first so that the CLI-specified ones, which
	// follow, take precedence.
	var projOpts []container.Directive
	for _, b := range proj.Binds {
		kind := container.KindBind
		if b.RO {
			kind = container.KindRoBind
		} else if b.Dev {
			kind = container.KindDevBind
		}
		projOpts = append(projOpts, container.Directive{Kind: kind, Src: b.Src, Dest: b.Dest})
	}
	for k, v := range proj.Env {
		projOpts = append(projOpts, container.Directive{Kind: container.KindSetEnv, Key: k, Value: v})
	}
	req.Options = append(projOpts, req.Options...)

	upperDir := proj.OverlayUpper
	if upperDir == "" {
		upperDir = filepath.Join(workspaceDir, ".keg-cache")
	}
	const tree, work = "tree", "work"
	if err := kgworkspace.EnsureTreeAndWork(upperDir, tree, work); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	lock, err := kgworkspace.LockCache(upperDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer lock.Unlock()

	const lowerMount = "/container_overlay_lower_0"
	const upperMount = "/container_overlay_upper"
	const rootfsMount = "/container_rootfs"

	if baseImage != "" {
		req.Options = append(req.Options, container.Directive{Kind: container.KindRoBind, Src: baseImage, Dest: lowerMount})
	} else {
		req.Options = append(req.Options, container.Directive{Kind: container.KindRoBind, Src: "/", Dest: lowerMount})
	}
	req.Options = append(req.Options, container.Directive{Kind: container.KindBind, Src: upperDir, Dest: upperMount})
	req.Options = append(req.Options, container.Directive{Kind: container.KindDir, Dest: rootfsMount})

	overlayCmd, err := overlay.GetCommand(
		[]string{lowerMount},
		filepath.Join(upperMount, tree),
		filepath.Join(upperMount, work),
		rootfsMount,
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	req.CommandBeforeUnshareUser = overlayCmd

	podmanCmd := []string{
		"/usr/bin/podman", "run",
		"--cap-add", "sys_chroot",
		"-i", "-t",
		"--mount=type=tmpfs,dst=/tmp",
		kgpodman.MaskArg(),
		"--rootfs", rootfsMount,
	}
	podmanCmd = append(podmanCmd, c.Command...)
	req.Command = podmanCmd

	return runFrontEnd("workspace", args, c)
}
