// Package manifest handles lumen.toml engine configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up in a project directory.
const FileName = "lumen.toml"

// Manifest represents a lumen.toml engine configuration.
type Manifest struct {
	VM    VMConfig    `toml:"vm"`
	Cache CacheConfig `toml:"cache"`
	Log   LogConfig   `toml:"log"`

	// Dir is the directory containing the lumen.toml file (set at load time).
	Dir string `toml:"-"`
}

// VMConfig bounds and instruments the virtual machine.
type VMConfig struct {
	StackSize int  `toml:"stack-size"`
	MaxFrames int  `toml:"max-frames"`
	Trace     bool `toml:"trace"`
}

// CacheConfig configures the compiled-module cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LogConfig configures logging verbosity.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no lumen.toml exists.
func Default() *Manifest {
	return &Manifest{
		VM:    VMConfig{StackSize: 256, MaxFrames: 64},
		Cache: CacheConfig{Path: ".lumen-cache.db"},
		Log:   LogConfig{Level: "info"},
	}
}

// Load parses a lumen.toml file from the given directory. A missing file
// yields the defaults; a malformed one is an error.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		m := Default()
		m.Dir = dir
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if m.VM.StackSize <= 0 {
		m.VM.StackSize = 256
	}
	if m.VM.MaxFrames <= 0 {
		m.VM.MaxFrames = 64
	}
	return m, nil
}
