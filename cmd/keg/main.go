// Command keg is the rootless container launcher's single entrypoint.
// It doubles as both the user-facing CLI (dispatching to one of the
// front-end profiles below) and, via the `--inner <fd>` form, the
// re-invocation target every bwrap stage execs back into (§6
// self-invocation contract) — that check happens before anything else,
// since a re-invoked stage never goes through subcommands flag parsing.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/keg-project/keg/internal/container"
	"github.com/keg-project/keg/internal/kglog"
)

func main() {
	if len(os.Args) >= 3 && os.Args[1] == "--inner" {
		os.Exit(container.RunInner(os.Args[2]))
	}

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&baseCommand{}, "")
	subcommands.Register(&rootfsCommand{}, "")
	subcommands.Register(&workspaceCommand{}, "")
	subcommands.Register(&userNSCommand{}, "")

	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()
	if *debug {
		kglog.SetDebug()
	}

	os.Exit(int(subcommands.Execute(context.Background())))
}
