package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/keg-project/keg/internal/container"
	"github.com/keg-project/keg/internal/kgcli"
	"github.com/keg-project/keg/internal/kgerr"
	"github.com/keg-project/keg/internal/kglog"
	"github.com/keg-project/keg/internal/kgrelaunch"
	"github.com/keg-project/keg/internal/kgsys"
)

// baseCommand implements the `base` profile (SPEC_FULL.md supplemented
// feature 1, grounded on run/base.rs): the plain front end with no
// base-image requirement and no overlay — the host filesystem is bound
// directly.
type baseCommand struct{}

func (*baseCommand) Name() string     { return "base" }
func (*baseCommand) Synopsis() string { return "launch a container rooted at the host filesystem" }
func (*baseCommand) Usage() string {
	return "base -- [options] [--] command...\n" +
		"Profile options are only recognized after the first \"--\".\n"
}
func (*baseCommand) SetFlags(*flag.FlagSet) {}

func (*baseCommand) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	c, err := parseBaseArgs(f.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	return runFrontEnd("base", f.Args(), c)
}

// parseBaseArgs implements run/base.rs's option loop: §6's manual
// vocabulary, terminated by "--" or the first non-dash argument, which
// begins the command.
func parseBaseArgs(args []string) (*kgcli.Common, error) {
	c := kgcli.NewCommon()
	req := c.Request

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--no-die-with-parent":
			c.NoDieWithParent = true
		case arg == "--no-new-scope":
			c.NoNewScope = true
		case arg == "--share-net":
			req.ShareNet = true
		case arg == "--keep-env":
			req.KeepEnv = true
		case arg == "--net-nft-rules":
			path, err := kgcli.ParseOne(arg, args, &i)
			if err != nil {
				return nil, err
			}
			rules, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read nft rules: %w", err)
			}
			req.NetNftRules = rules
		case arg == "--unshare-user":
			if i+2 >= len(args) {
				return nil, fmt.Errorf("--unshare-user requires 2 arguments")
			}
			uid, err := kgcli.ParseUint32(args[i+1])
			if err != nil {
				return nil, err
			}
			gid, err := kgcli.ParseUint32(args[i+2])
			if err != nil {
				return nil, err
			}
			i += 2
			req.UnshareUser = &container.UnshareUser{UID: uid, GID: gid}
		case arg == "--set-env":
			if i+2 >= len(args) {
				return nil, fmt.Errorf("--set-env requires 2 arguments")
			}
			req.Options = append(req.Options, container.Directive{Kind: container.KindSetEnv, Key: args[i+1], Value: args[i+2]})
			i += 2
		case arg == "--unset-env":
			key, err := kgcli.ParseOne(arg, args, &i)
			if err != nil {
				return nil, err
			}
			req.Options = append(req.Options, container.Directive{Kind: container.KindUnsetEnv, Key: key})
		case arg == "--ro-bind" || arg == "--rw-bind" || arg == "--dev-bind" || arg == "--symlink":
			src, dest, err := kgcli.ParseBind(arg, args, &i)
			if err != nil {
				return nil, err
			}
			req.Options = append(req.Options, container.Directive{Kind: bindKind(arg), Src: src, Dest: dest})
		case arg == "--dir":
			path, err := kgcli.ParseOne(arg, args, &i)
			if err != nil {
				return nil, err
			}
			req.Options = append(req.Options, container.Directive{Kind: container.KindDir, Dest: path})
		case arg == "--" || len(arg) == 0 || arg[0] != '-':
			c.Command = append(c.Command, argsFrom(arg, args[i+1:])...)
			i = len(args)
		default:
			return nil, fmt.Errorf("unknown argument %s", arg)
		}
	}

	if len(c.Command) == 0 {
		c.Command = kgcli.DefaultCommand()
	}
	req.Command = c.Command
	return c, nil
}

func bindKind(flagName string) container.DirectiveKind {
	switch flagName {
	case "--ro-bind":
		return container.KindRoBind
	case "--rw-bind":
		return container.KindBind
	case "--dev-bind":
		return container.KindDevBind
	default:
		return container.KindSymlink
	}
}

// argsFrom reconstructs the command slice: if first itself is not "--",
// it is the first command word; "--" is only ever a terminator.
func argsFrom(first string, rest []string) []string {
	if first == "--" {
		return append([]string(nil), rest...)
	}
	return append([]string{first}, rest...)
}

// runFrontEnd applies die-with-parent / systemd-scope relaunch, then
// starts the engine, exactly as run/base.rs's run() does.
func runFrontEnd(subcommand string, subArgs []string, c *kgcli.Common) subcommands.ExitStatus {
	if !c.NoDieWithParent {
		if err := kgsys.SetDieWithParent(); err != nil {
			kglog.Errorf("failed to set die-with-parent: %v", err)
			return subcommands.ExitFailure
		}
	}
	if !c.NoNewScope && kgrelaunch.Available() {
		if err := kgrelaunch.Relaunch(subcommand, subArgs); err != nil {
			kglog.Errorf("%v", err)
			return subcommands.ExitFailure
		}
	}

	env := container.EnvFromOS(os.Environ())
	code, err := container.StartOnce(c.Request, env)
	if err != nil {
		kglog.Errorf("%v: %s", kgerr.KindOf(err), err)
		return subcommands.ExitFailure
	}
	os.Exit(code)
	return subcommands.ExitSuccess
}
