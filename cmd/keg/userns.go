package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// userNSCommand implements the `user-ns` profile (SPEC_FULL.md
// supplemented feature 1): like base, but requires --unshare-user and
// is meant for unprivileged nested use under an already-sandboxed
// caller.
type userNSCommand struct{}

func (*userNSCommand) Name() string { return "user-ns" }
func (*userNSCommand) Synopsis() string {
	return "launch a container that unshares a user namespace for nested use"
}
func (*userNSCommand) Usage() string {
	return "user-ns -- --unshare-user uid gid [options] [--] command...\n" +
		"Profile options are only recognized after the first \"--\".\n"
}
func (*userNSCommand) SetFlags(*flag.FlagSet) {}

func (*userNSCommand) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	c, err := parseBaseArgs(f.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if c.Request.UnshareUser == nil {
		fmt.Fprintln(os.Stderr, "user-ns requires --unshare-user uid gid")
		return subcommands.ExitUsageError
	}
	return runFrontEnd("user-ns", f.Args(), c)
}
