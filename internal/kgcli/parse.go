// Package kgcli holds the small manual option-parsing helpers every
// front-end profile shares. All four profiles run the same option loop
// (parseBaseArgs in cmd/keg); rootfs and workspace first strip their
// own extra flags, and user-ns checks its required flag afterwards. The
// loop is hand-rolled over these helpers rather than a generic flag
// table.
package kgcli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/keg-project/keg/internal/container"
)

// Common holds the result of parsing the option vocabulary every
// profile shares (§6 "the manual option vocabulary").
type Common struct {
	NoDieWithParent bool
	NoNewScope      bool
	Request         *container.Request
	Command         []string
}

// NewCommon returns a Common ready for a parse loop to fill in.
func NewCommon() *Common {
	return &Common{Request: &container.Request{}}
}

// ParseBind consumes two positional arguments (src, dest) for a
// Bind/DevBind/RoBind/Symlink option.
func ParseBind(name string, args []string, i *int) (src, dest string, err error) {
	if *i+2 >= len(args) {
		return "", "", fmt.Errorf("%s requires 2 arguments", name)
	}
	*i++
	src = args[*i]
	*i++
	dest = args[*i]
	return src, dest, nil
}

// ParseOne consumes one positional argument for flags like --dir or
// --unset-env.
func ParseOne(name string, args []string, i *int) (string, error) {
	if *i+1 >= len(args) {
		return "", fmt.Errorf("%s requires an argument", name)
	}
	*i++
	return args[*i], nil
}

// ParseUint32 parses s as a uid/gid.
func ParseUint32(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric id %q", s)
	}
	return uint32(n), nil
}

// DefaultCommand returns the fallback command when none was given on
// the command line: $SHELL, or /bin/sh.
func DefaultCommand() []string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return []string{sh}
	}
	return []string{"/bin/sh"}
}
