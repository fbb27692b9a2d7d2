// Package config loads and validates a fuzzing project's YAML
// configuration file, grounded on the teacher's layered-defaults config
// loader and serialized with gopkg.in/yaml.v3 per the rest of the
// example pack.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the corresponding field is left empty/zero in
// the project file.
const (
	DefaultShmemSize     = 4096
	DefaultStatsFile     = "fuzzer_stats"
	DefaultInputFileName = "cur_input"
)

// ErrMissingField is wrapped with the offending field name when a
// required config value is absent.
var ErrMissingField = errors.New("missing required config field")

// Config is the on-disk shape of a project configuration file.
type Config struct {
	Input       string            `yaml:"input"`
	State       string            `yaml:"state"`
	Results     string            `yaml:"results"`
	Target      string            `yaml:"target"`
	TargetArgs  []string          `yaml:"target_args"`
	FuzzLoop    []string          `yaml:"fuzz_loop"`
	PreFuzzLoop []string          `yaml:"pre_fuzz_loop"`
	Cwd         string            `yaml:"cwd"`
	ShmemSize   int               `yaml:"shmem_size"`
	StatsFile   string            `yaml:"stats_file"`
	InputFile   string            `yaml:"input_file_name"`
	PluginConf  map[string]string `yaml:"plugin_conf"`

	// dir is the directory containing the loaded file; relative path
	// fields below are resolved against it.
	dir string
}

// Load reads and validates the project configuration at path, applying
// defaults for optional fields and resolving relative path fields
// against the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg.dir = filepath.Dir(path)

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.ShmemSize == 0 {
		c.ShmemSize = DefaultShmemSize
	}

	if c.StatsFile == "" {
		c.StatsFile = DefaultStatsFile
	}

	if c.InputFile == "" {
		c.InputFile = DefaultInputFileName
	}

	if c.Cwd == "" {
		c.Cwd = c.dir
	} else if !filepath.IsAbs(c.Cwd) {
		c.Cwd = filepath.Join(c.dir, c.Cwd)
	}

	c.Input = c.resolve(c.Input)
	c.State = c.resolve(c.State)
	c.Results = c.resolve(c.Results)
	c.Target = c.resolve(c.Target)

	return nil
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(c.dir, p)
}

func (c *Config) validate() error {
	required := map[string]string{
		"input":   c.Input,
		"state":   c.State,
		"results": c.Results,
		"target":  c.Target,
	}

	for name, v := range required {
		if v == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}

	if len(c.FuzzLoop) == 0 {
		return fmt.Errorf("%w: fuzz_loop", ErrMissingField)
	}

	return nil
}
