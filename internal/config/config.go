// Package config loads the optional per-project settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// FileName is looked for in the project root.
const FileName = ".project-intel.toml"

// Limits are the default result counts of each command. Zero means the
// built-in default.
type Limits struct {
	Callers     int `toml:"callers"`
	Callees     int `toml:"callees"`
	Dead        int `toml:"dead"`
	Importers   int `toml:"importers"`
	Search      int `toml:"search"`
	Investigate int `toml:"investigate"`
	Docs        int `toml:"docs"`
	Hotspots    int `toml:"hotspots"`
	OutputLines int `toml:"output_lines"`
}

// Config is the decoded settings file.
type Config struct {
	// Index overrides the index path, relative to the project root.
	Index string `toml:"index"`
	// Exclude patterns are appended after the defaults and .gitignore.
	Exclude []string `toml:"exclude"`
	Limits  Limits   `toml:"limits"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Index: "PROJECT_INDEX.json",
		Limits: Limits{
			Callers:     20,
			Callees:     20,
			Dead:        50,
			Importers:   50,
			Search:      20,
			Investigate: 5,
			Docs:        10,
			Hotspots:    10,
			OutputLines: 200,
		},
	}
}

// Load reads <projectRoot>/.project-intel.toml over the defaults. A missing
// file yields the defaults.
func Load(projectRoot string) (Config, error) {
	cfg := Default()
	path := filepath.Join(projectRoot, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	var file Config
	if err := toml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.merge(file)
	return cfg, nil
}

func (c *Config) merge(o Config) {
	if o.Index != "" {
		c.Index = o.Index
	}
	c.Exclude = append(c.Exclude, o.Exclude...)
	pick(&c.Limits.Callers, o.Limits.Callers)
	pick(&c.Limits.Callees, o.Limits.Callees)
	pick(&c.Limits.Dead, o.Limits.Dead)
	pick(&c.Limits.Importers, o.Limits.Importers)
	pick(&c.Limits.Search, o.Limits.Search)
	pick(&c.Limits.Investigate, o.Limits.Investigate)
	pick(&c.Limits.Docs, o.Limits.Docs)
	pick(&c.Limits.Hotspots, o.Limits.Hotspots)
	pick(&c.Limits.OutputLines, o.Limits.OutputLines)
}

func pick(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
