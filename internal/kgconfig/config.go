// Package kgconfig reads the optional per-directory `.keg.toml` project
// file the `workspace` profile merges under its CLI-specified
// directives (SPEC_FULL.md "Configuration").
package kgconfig

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/keg-project/keg/internal/kgerr"
)

// Project is the decoded shape of a `.keg.toml` file.
type Project struct {
	Binds        []Bind            `toml:"binds"`
	Env          map[string]string `toml:"env"`
	OverlayUpper string            `toml:"overlay_upper"`
}

// Bind is one [[binds]] table entry.
type Bind struct {
	Src  string `toml:"src"`
	Dest string `toml:"dest"`
	Dev  bool   `toml:"dev"`
	RO   bool   `toml:"ro"`
}

// Load reads and decodes path. A missing file is not an error — it
// returns a zero Project, since `.keg.toml` is optional.
func Load(path string) (*Project, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Project{}, nil
	}
	var p Project
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return nil, kgerr.New("load_project_config", kgerr.InvalidEnv, err)
	}
	return &p, nil
}
