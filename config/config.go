// Package config handles decaf.toml configuration.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"

	"github.com/chazu/decaf/cfg"
	"github.com/chazu/decaf/decompile"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "decaf.toml"

//go:embed schema.cue
var schemaSource []byte

// Config represents a decaf.toml file.
type Config struct {
	Structure Structure `toml:"structure" json:"structure"`
	Decompile Decompile `toml:"decompile" json:"decompile"`
	Locals    Locals    `toml:"locals" json:"locals"`
	Logging   Logging   `toml:"logging" json:"logging"`
	Cache     Cache     `toml:"cache" json:"cache"`

	// Dir is the directory containing the decaf.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Structure tunes the block pipeline.
type Structure struct {
	LoopExitThreshold int `toml:"loop-exit-threshold" json:"loop-exit-threshold"`
}

// Decompile tunes the class driver.
type Decompile struct {
	Workers    int  `toml:"workers" json:"workers"`
	KeepGraphs bool `toml:"keep-graphs" json:"keep-graphs"`
}

// Locals tunes variable naming.
type Locals struct {
	IgnoreTable bool `toml:"ignore-table" json:"ignore-table"`
}

// Logging configures commonlog.
type Logging struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	File      string `toml:"file" json:"file"`
}

// Cache selects the result store.
type Cache struct {
	Backend string `toml:"backend" json:"backend"`
	Path    string `toml:"path" json:"path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	opts := decompile.DefaultOptions()
	return &Config{
		Structure: Structure{LoopExitThreshold: cfg.DefaultLoopExitPredecessorThreshold},
		Decompile: Decompile{Workers: opts.Workers},
		Cache:     Cache{Backend: "none"},
	}
}

// Parse decodes TOML data over the defaults and validates the result.
// name is used in error messages.
func Parse(data []byte, name string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", name, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", name, undecoded[0].String())
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

// Load parses a decaf.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if c.Cache.Path != "" && !filepath.IsAbs(c.Cache.Path) {
		c.Cache.Path = filepath.Join(c.Dir, c.Cache.Path)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a decaf.toml file, then loads
// and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks c against the embedded CUE schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSource)
	if schema.Err() != nil {
		return fmt.Errorf("compiling schema: %w", schema.Err())
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if def.Err() != nil {
		return fmt.Errorf("looking up #Config: %w", def.Err())
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	value := ctx.CompileBytes(data)
	if value.Err() != nil {
		return fmt.Errorf("compiling config as CUE: %w", value.Err())
	}
	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Options returns the decompiler options c selects.
func (c *Config) Options() decompile.Options {
	return decompile.Options{
		LoopExitThreshold: c.Structure.LoopExitThreshold,
		Workers:           c.Decompile.Workers,
		IgnoreLocalTable:  c.Locals.IgnoreTable,
		KeepGraphs:        c.Decompile.KeepGraphs,
	}
}
