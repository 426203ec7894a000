package engine

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/mrsladoje-successor/lsmkv/level"
	"github.com/mrsladoje-successor/lsmkv/lsmerrors"
)

// appendPair writes (key, value, tombstone) to level l, cascading into a
// propagation if that fills it. This is the write path used by Put,
// Delete, and propagation, mirroring the source implementation's single
// appendPair entry point; sortLevel writes its merged entries back through
// Level.Append directly.
func (e *Engine) appendPair(l int, key int32, value int64, tombstone bool) error {
	lv := e.levels[l]
	if err := lv.Append(key, value, tombstone); err != nil {
		if errors.Is(err, lsmerrors.ErrDictionaryOverflow) {
			e.log.Error("dictionary overflow", zap.Int("level", l), zap.Int32("key", key))
		}
		return err
	}
	if lv.IsFull() {
		return e.propagateLevel(l)
	}
	return nil
}

// propagateLevel drains level l into level l+1, creating l+1 first if it
// does not exist yet. Returns ErrTreeFull, before any level is modified, if
// the drain (or the cascade of drains it triggers in the levels below)
// would need a level beyond the configured cap.
func (e *Engine) propagateLevel(l int) error {
	// Each level the incoming entries fill drains in turn into the next,
	// carrying its whole capacity, so walk that chain up front.
	carry := e.levels[l].Count()
	for j := l + 1; ; j++ {
		if j >= int(e.cfg.MaxLevels) {
			e.log.Error("tree full", zap.Int("level", j-1), zap.Uint64("max_levels", e.cfg.MaxLevels))
			return lsmerrors.ErrTreeFull
		}
		if j >= len(e.levels) || e.levels[j].Count()+carry < int(e.cfg.LevelCapacity(j)) {
			break
		}
		carry = int(e.cfg.LevelCapacity(j))
	}
	if l == len(e.levels)-1 {
		next, err := level.Open(e.cfg.DataDir, l+1, int(e.cfg.LevelCapacity(l+1)), int(e.cfg.PageSize), e.cfg.BloomTargetFPR, e.cfg.Encoding, 0)
		if err != nil {
			return err
		}
		e.levels = append(e.levels, next)
		e.log.Info("materialized new level", zap.Int("level", l+1), zap.Uint64("capacity", e.cfg.LevelCapacity(l+1)))
	}
	e.log.Info("propagating level", zap.Int("from", l), zap.Int("to", l+1), zap.Int("count", e.levels[l].Count()))
	return e.propagateData(l)
}

// propagateData copies every live entry out of level l into level l+1,
// clears l, then sort-merges l+1.
func (e *Engine) propagateData(l int) error {
	src := e.levels[l]
	n := src.Count()
	for i := 0; i < n; i++ {
		if err := e.appendPair(l+1, src.Key(i), src.Value(i), src.Tombstone(i)); err != nil {
			return err
		}
	}
	if err := src.Clear(); err != nil {
		return err
	}
	return e.sortLevel(l + 1)
}

// sortLevel sorts level l by key, keeping only the most recently written
// value for each key and dropping tombstones that have reached the
// bottommost level (spec §4.5). "Bottommost" is re-evaluated here, at the
// moment of the sort, rather than cached: the tree can grow a new deepest
// level between one sortLevel call and the next, so a tombstone that was
// correctly dropped while l was the bottom must NOT be dropped once a
// level l+1 exists beneath it.
func (e *Engine) sortLevel(l int) error {
	lv := e.levels[l]

	type slot struct {
		value     int64
		tombstone bool
	}
	// Iterate oldest-written-first is not required for correctness here:
	// a plain last-write-wins map built over a single level's own array
	// already has every duplicate key written in append order, so a
	// single forward pass capturing the last occurrence per key is
	// equivalent to the source implementation's ordered-map collapse.
	merged := make(map[int32]slot, lv.Count())
	keys := make([]int32, 0, lv.Count())
	for i := 0; i < lv.Count(); i++ {
		k := lv.Key(i)
		if _, seen := merged[k]; !seen {
			keys = append(keys, k)
		}
		merged[k] = slot{value: lv.Value(i), tombstone: lv.Tombstone(i)}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	if err := lv.Clear(); err != nil {
		return err
	}
	bottommost := l == len(e.levels)-1
	for _, k := range keys {
		s := merged[k]
		if bottommost && s.tombstone {
			continue
		}
		if err := lv.Append(k, s.value, s.tombstone); err != nil {
			return err
		}
	}
	lv.RebuildFence()
	return nil
}
