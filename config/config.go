// Package config handles stackchunk.toml tool configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked for by FindAndLoad.
const FileName = "stackchunk.toml"

// Config represents a stackchunk.toml file.
type Config struct {
	Store  Store  `toml:"store"`
	Disasm Disasm `toml:"disasm"`
	Log    Log    `toml:"log"`

	// Dir is the directory containing the stackchunk.toml file (set at load time).
	Dir string `toml:"-"`
}

// Store configures the chunk database.
type Store struct {
	Path string `toml:"path"`
}

// Disasm configures disassembly listings.
type Disasm struct {
	ShowPool bool `toml:"show-pool"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no file is found, rooted at dir.
func Default(dir string) *Config {
	return &Config{
		Store:  Store{Path: filepath.Join(".stackchunk", "chunks.db")},
		Disasm: Disasm{ShowPool: true},
		Log:    Log{Verbosity: 1},
		Dir:    dir,
	}
}

// Load parses a stackchunk.toml file from the given directory. Keys missing
// from the file keep their default values.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	c := Default(abs)
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if c.Store.Path == "" {
		return nil, fmt.Errorf("%s: store.path must not be empty", path)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a stackchunk.toml file and
// loads it. Without one it returns Default rooted at startDir.
func FindAndLoad(startDir string) (*Config, error) {
	start, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for dir := start; ; {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(start), nil
		}
		dir = parent
	}
}

// StorePath returns the database path, resolved against Dir when relative.
func (c *Config) StorePath() string {
	if filepath.IsAbs(c.Store.Path) || c.Store.Path == ":memory:" {
		return c.Store.Path
	}
	return filepath.Join(c.Dir, c.Store.Path)
}

// LogFile returns the log file path, or nil for stderr.
func (c *Config) LogFile() *string {
	if c.Log.File == "" {
		return nil
	}
	p := c.Log.File
	if !filepath.IsAbs(p) {
		p = filepath.Join(c.Dir, p)
	}
	return &p
}
