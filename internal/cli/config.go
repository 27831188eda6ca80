package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/structmine/structmine/pkg/detect"
	"github.com/structmine/structmine/pkg/pipeline"
)

// =============================================================================
// Config - TOML Configuration File
// =============================================================================

// Cache backends selectable in the config file.
const (
	cacheBackendFile = "file"
	cacheBackendNone = "none"
)

// Config is the on-disk CLI configuration. All fields are optional; zero
// values fall back to pipeline defaults. Flags override config values.
type Config struct {
	MaxRounds          int    `toml:"max_rounds"`
	Score              string `toml:"score"`
	UseConssAdjacency  bool   `toml:"use_conss_adjacency"`
	AdjacencyThreshold int    `toml:"adjacency_threshold"`

	Cache    CacheConfig               `toml:"cache"`
	Detector map[string]DetectorConfig `toml:"detector"`
}

// CacheConfig selects the detection cache backend.
type CacheConfig struct {
	Backend string `toml:"backend"` // "file" (default) or "none"
	Dir     string `toml:"dir"`     // file backend directory, defaults to XDG cache
}

// DetectorConfig overrides a built-in detector's defaults. Pointer fields
// distinguish "not set" from an explicit zero.
type DetectorConfig struct {
	Enabled        *bool `toml:"enabled"`
	Finishing      *bool `toml:"finishing"`
	Postprocessing *bool `toml:"postprocessing"`
	MinRound       *int  `toml:"min_round"`
	MaxRound       *int  `toml:"max_round"`
	Freq           *int  `toml:"freq"`
	SkipIfFound    *bool `toml:"skip_if_found"`
}

// loadConfig reads the config file. A missing default config file is not an
// error; an explicitly requested path must exist.
func (c *CLI) loadConfig() (*Config, error) {
	path := c.configPath
	explicit := path != ""
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return &Config{}, nil
		}
		path = filepath.Join(dir, "config.toml")
	}

	cfg := &Config{}
	if _, err := os.Stat(path); err != nil {
		if explicit {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// apply copies config values into pipeline options, without overriding
// values already set by flags.
func (cfg *Config) apply(opts *pipeline.Options) error {
	if opts.MaxRounds == 0 && cfg.MaxRounds > 0 {
		opts.MaxRounds = cfg.MaxRounds
	}
	if opts.Score == "" && cfg.Score != "" {
		opts.Score = cfg.Score
	}
	if cfg.UseConssAdjacency {
		opts.UseConssAdjacency = true
	}
	if opts.AdjacencyThreshold == 0 && cfg.AdjacencyThreshold > 0 {
		opts.AdjacencyThreshold = cfg.AdjacencyThreshold
	}
	if len(cfg.Detector) > 0 {
		reg, err := cfg.registry(opts.Detectors)
		if err != nil {
			return err
		}
		opts.Registry = reg
	}
	return nil
}

// registry builds a detector registry from the built-ins with per-detector
// overrides applied. When names is non-empty only those detectors are kept.
func (cfg *Config) registry(names []string) (*detect.Registry, error) {
	keep := func(string) bool { return true }
	if len(names) > 0 {
		set := make(map[string]bool, len(names))
		for _, n := range names {
			set[n] = true
		}
		keep = func(name string) bool { return set[name] }
	}

	for name := range cfg.Detector {
		if _, ok := detect.DefaultRegistry().Lookup(name); !ok {
			return nil, fmt.Errorf("config: unknown detector %q", name)
		}
	}

	reg := detect.NewRegistry()
	for _, e := range detect.DefaultRegistry().Entries() {
		name := e.Detector.Name()
		if !keep(name) {
			continue
		}
		dc := e.Config
		if over, ok := cfg.Detector[name]; ok {
			over.apply(&dc)
		}
		if err := reg.Register(e.Detector, dc); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// apply overlays the set fields onto a detector config.
func (o DetectorConfig) apply(dc *detect.Config) {
	if o.Enabled != nil {
		dc.Enabled = *o.Enabled
	}
	if o.Finishing != nil {
		dc.FinishingEnabled = *o.Finishing
	}
	if o.Postprocessing != nil {
		dc.PostprocessingEnabled = *o.Postprocessing
	}
	if o.MinRound != nil {
		dc.MinRound = *o.MinRound
	}
	if o.MaxRound != nil {
		dc.MaxRound = *o.MaxRound
	}
	if o.Freq != nil {
		dc.Freq = *o.Freq
	}
	if o.SkipIfFound != nil {
		dc.SkipIfFound = *o.SkipIfFound
	}
}
