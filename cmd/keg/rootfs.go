package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// rootfsCommand implements the `rootfs` profile (SPEC_FULL.md
// supplemented feature 1): like base, but requires an explicit
// --base-image and never falls back to the host's canonical
// directories — the container's view of "/" is entirely the given
// image.
type rootfsCommand struct{}

func (*rootfsCommand) Name() string     { return "rootfs" }
func (*rootfsCommand) Synopsis() string { return "launch a container rooted at a base image" }
func (*rootfsCommand) Usage() string {
	return "rootfs -- --base-image PATH [options] [--] command...\n" +
		"Profile options are only recognized after the first \"--\".\n"
}
func (*rootfsCommand) SetFlags(*flag.FlagSet) {}

func (*rootfsCommand) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	args := f.Args()

	var baseImage string
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] == "--base-image" {
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--base-image requires an argument")
				return subcommands.ExitUsageError
			}
			i++
			baseImage = args[i]
			continue
		}
		rest = append(rest, args[i])
	}
	if baseImage == "" {
		fmt.Fprintln(os.Stderr, "rootfs requires --base-image PATH")
		return subcommands.ExitUsageError
	}

	c, err := parseBaseArgs(rest)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	c.Request.BaseImage = baseImage
	c.Request.HasBaseImage = true
	return runFrontEnd("rootfs", args, c)
}
