// Package engine implements the tree itself (spec §3-§6): level 0
// accepts writes directly, propagation drains full levels downward, point
// reads search the levels from newest to oldest, and range reads merge them
// from oldest to newest so the newest write wins. The engine
// is single-threaded by design (spec §5) — callers wanting concurrent
// access must serialize it themselves.
package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mrsladoje-successor/lsmkv/config"
	"github.com/mrsladoje-successor/lsmkv/level"
	"github.com/mrsladoje-successor/lsmkv/storage"
)

// Engine is a single-node, single-writer LSM key-value tree over
// fixed-width int32 keys and int64 values.
type Engine struct {
	cfg    *config.Config
	log    *zap.Logger
	levels []*level.Level
	stats  Stats
}

// Open loads the engine's tree from cfg.DataDir if a catalog already
// exists there, or starts a fresh tree with an empty level 0 otherwise
// (spec §6.3's startup path). A nil logger defaults to a no-op logger.
func Open(cfg *config.Config, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, log: log}

	if storage.DataDirExists(cfg) {
		counts, err := storage.ReadCatalog(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		log.Info("loading persisted tree", zap.Int("levels", len(counts)))
		for l, n := range counts {
			lv, err := level.Open(cfg.DataDir, l, int(cfg.LevelCapacity(l)), int(cfg.PageSize), cfg.BloomTargetFPR, cfg.Encoding, n)
			if err != nil {
				e.closeLevels()
				return nil, err
			}
			e.levels = append(e.levels, lv)
		}
		return e, nil
	}

	log.Info("starting fresh tree", zap.String("data_dir", cfg.DataDir))
	l0, err := level.Open(cfg.DataDir, 0, int(cfg.LevelCapacity(0)), int(cfg.PageSize), cfg.BloomTargetFPR, cfg.Encoding, 0)
	if err != nil {
		return nil, err
	}
	e.levels = append(e.levels, l0)
	return e, nil
}

// Put inserts or updates key with value (spec §4.1).
func (e *Engine) Put(key int32, value int64) error {
	e.stats.Puts++
	return e.appendPair(0, key, value, false)
}

// Delete marks key as removed with a tombstone, which shadows any older
// value until it is itself dropped at the bottommost level (spec §4.1,
// §4.5).
func (e *Engine) Delete(key int32) error {
	e.stats.Deletes++
	return e.appendPair(0, key, 0, true)
}

// NumLevels reports how many levels the tree currently has, including the
// buffer.
func (e *Engine) NumLevels() int { return len(e.levels) }

// Shutdown persists the catalog and every level's dictionary, then
// releases all memory mappings (the "s" command of spec §6.3).
func (e *Engine) Shutdown() error {
	counts := make([]int, len(e.levels))
	for i, lv := range e.levels {
		counts[i] = lv.Count()
		if err := lv.Persist(); err != nil {
			return fmt.Errorf("persisting level %d: %w", i, err)
		}
	}
	if err := storage.WriteCatalog(e.cfg.DataDir, counts); err != nil {
		return err
	}
	return e.closeLevels()
}

// Wipe discards the entire data directory instead of persisting it (the
// "sw" command of spec §6.3).
func (e *Engine) Wipe() error {
	if err := e.closeLevels(); err != nil {
		return err
	}
	return storage.Wipe(e.cfg.DataDir)
}

func (e *Engine) closeLevels() error {
	var firstErr error
	for _, lv := range e.levels {
		if err := lv.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
