// Package config loads and validates the engine's tunables (spec §6.4):
// page size, buffer pages, size ratio, Bloom target false-positive rate,
// value encoding, the testing switch, and the hard level cap.
//
// Configuration is read from a single hujson (JSON-with-comments) file so
// that a tuned deployment config can carry inline rationale for its
// constants. A missing file is not an error: defaults are written out so
// the next run has something to edit.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// Encoding selects how a level's value array is stored on disk.
type Encoding string

const (
	EncodingOff  Encoding = "off"
	EncodingDict Encoding = "dict"
)

// Config holds every tunable recognized at startup.
type Config struct {
	// DataDir is the working directory holding catalog.data, k<l>.data,
	// v<l>.data, t<l>.data and the dictionary sidecars (spec §6.2).
	DataDir string `json:"data_dir"`

	// PageSize is the number of entries per page (fence granularity).
	// Zero means "use DefaultPageSize()".
	PageSize uint64 `json:"page_size"`

	// BufferPages is the number of pages in level 0; B = PageSize * BufferPages.
	BufferPages uint64 `json:"buffer_pages"`

	// SizeRatio (T) is the level growth factor: C(l) = B * T^l.
	SizeRatio uint64 `json:"size_ratio"`

	// BloomTargetFPR is the per-level Bloom filter target false-positive
	// rate, default 0.01.
	BloomTargetFPR float64 `json:"bloom_target_fpr"`

	// Encoding selects raw or dictionary-encoded value storage.
	Encoding Encoding `json:"encoding"`

	// TestingSwitch, when true, makes the engine additionally accumulate
	// the sum of returned range values modulo 10^6 for cross-validation
	// against an oracle (spec §6.4).
	TestingSwitch bool `json:"testing_switch"`

	// MaxLevels (L_max) is the hard cap beyond which propagation is fatal.
	MaxLevels uint64 `json:"max_levels"`
}

// DefaultPageSize mirrors the original implementation's
// `sysconf(_SC_PAGESIZE) / sizeof(int64_t)`: the OS memory page divided by
// the width of the widest stored field (the int64 value), so one page's
// worth of entries lines up with one page of the mapping.
func DefaultPageSize() uint64 {
	return uint64(os.Getpagesize()) / 8
}

func defaultConfig() *Config {
	return &Config{
		DataDir:        "data",
		PageSize:       DefaultPageSize(),
		BufferPages:    4,
		SizeRatio:      10,
		BloomTargetFPR: 0.01,
		Encoding:       EncodingOff,
		TestingSwitch:  false,
		MaxLevels:      10,
	}
}

// Buffer returns B = PageSize * BufferPages, the capacity of level 0.
func (c *Config) Buffer() uint64 {
	return c.PageSize * c.BufferPages
}

// LevelCapacity returns C(l) = B * T^l.
func (c *Config) LevelCapacity(l int) uint64 {
	cap := c.Buffer()
	for i := 0; i < l; i++ {
		cap *= c.SizeRatio
	}
	return cap
}

// Validate rejects tunables that would make the engine's invariants
// meaningless, the way the teacher's validateConfig does for its own
// DBConfig.
func (c *Config) Validate() error {
	if c.PageSize == 0 {
		return fieldErr("page_size", "must be at least 1")
	}
	if c.BufferPages == 0 {
		return fieldErr("buffer_pages", "must be at least 1")
	}
	if c.SizeRatio < 2 {
		return fieldErr("size_ratio", "must be at least 2")
	}
	if c.BloomTargetFPR <= 0 || c.BloomTargetFPR >= 1 {
		return fieldErr("bloom_target_fpr", "must be between 0 and 1")
	}
	if c.Encoding != EncodingOff && c.Encoding != EncodingDict {
		return fieldErr("encoding", "must be one of: off, dict")
	}
	if c.MaxLevels < 1 {
		return fieldErr("max_levels", "must be at least 1")
	}
	if c.DataDir == "" {
		return fieldErr("data_dir", "cannot be empty")
	}
	return nil
}

// Load reads the config at path, or writes and returns the default config
// if the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := defaultConfig()
		if err := save(cfg, path); err != nil {
			return nil, fmt.Errorf("config: writing default config: %w", err)
		}
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := hujson.Unmarshal(standardized, cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling %s: %w", path, err)
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return atomic.WriteFile(path, bytes.NewReader(data))
}

// callerConfigPath returns app.json next to this source file, mirroring
// the teacher's runtime.Caller-based config discovery used when no
// explicit path is supplied by the embedder.
func callerConfigPath() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "app.json")
}

// LoadDefault loads the config from the package-relative app.json,
// creating it with defaults on first run.
func LoadDefault() (*Config, error) {
	return Load(callerConfigPath())
}
