package engine

import (
	"sort"

	"github.com/mrsladoje-successor/lsmkv/entry"
	"github.com/mrsladoje-successor/lsmkv/level"
)

// searchLevel looks for key within lv. In point mode it returns the entry
// index of an exact match, or -1 if the level's Bloom filter rules the key
// out or no exact match exists (spec §4.3). In range mode it instead
// returns the smallest index i such that keys[i] >= key, used to bound a
// range scan; an out-of-range bound resolves to 0 (below all keys) or
// Count() (above all keys), and it never consults the Bloom filter since
// range scans need every key in the bound, not just one.
func searchLevel(lv *level.Level, key int32, rangeMode bool, stats *Stats) int {
	if !rangeMode {
		stats.SearchLevelCalls++
		if lv.IsEmpty() || !lv.Bloom().MayContain(key) {
			return -1
		}
	} else {
		if lv.IsEmpty() || key < lv.Key(0) {
			return 0
		}
		if key > lv.Key(lv.Count()-1) {
			return lv.Count()
		}
	}

	if lv.Index() == 0 {
		for i := lv.Count() - 1; i >= 0; i-- {
			if lv.Key(i) == key {
				if !rangeMode {
					stats.BloomTruePositives++
				}
				return i
			}
		}
	} else {
		page := lv.Fence().Page(key)
		if page >= 0 {
			lo, hi := lv.Fence().PageBounds(page, lv.Count())
			l, r := lo, hi-1
			for l <= r {
				m := (l + r) / 2
				switch {
				case lv.Key(m) == key:
					if !rangeMode {
						stats.BloomTruePositives++
					}
					return m
				case lv.Key(m) < key:
					l = m + 1
				default:
					r = m - 1
				}
			}
			if rangeMode {
				if l > lv.Count() {
					l = lv.Count()
				}
				return l
			}
		}
	}

	if !rangeMode {
		stats.BloomFalsePositives++
	}
	return -1
}

// Get looks up key across every level, newest (level 0) to oldest,
// returning the first match found. A tombstone at the first match stops
// the search: the key has been deleted since any older value was written
// (spec §4.1).
func (e *Engine) Get(key int32) (int64, bool) {
	e.stats.Gets++
	for _, lv := range e.levels {
		i := searchLevel(lv, key, false, &e.stats)
		if i >= 0 {
			if lv.Tombstone(i) {
				break
			}
			e.stats.Hits++
			return lv.Value(i), true
		}
	}
	e.stats.Misses++
	return 0, false
}

// Range returns every live key in [lo, hi) across all levels, scanning
// from the oldest level to the newest so that a newer write or tombstone
// always overrides whatever an older level holds for the same key (spec
// §4.1). The result is sorted ascending by key.
func (e *Engine) Range(lo, hi int32) []entry.KV {
	e.stats.Ranges++
	results := make(map[int32]int64)

	for i := len(e.levels) - 1; i >= 0; i-- {
		lv := e.levels[i]
		if lv.Index() == 0 {
			for j := 0; j < lv.Count(); j++ {
				k := lv.Key(j)
				if lo <= k && k < hi {
					if lv.Tombstone(j) {
						delete(results, k)
					} else {
						results[k] = lv.Value(j)
					}
				}
			}
			continue
		}
		start := searchLevel(lv, lo, true, &e.stats)
		end := searchLevel(lv, hi, true, &e.stats)
		for j := start; j < end; j++ {
			k := lv.Key(j)
			if lv.Tombstone(j) {
				delete(results, k)
			} else {
				results[k] = lv.Value(j)
			}
		}
	}

	out := make([]entry.KV, 0, len(results))
	for k, v := range results {
		out = append(out, entry.KV{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	e.stats.RangeLengthSum += uint64(len(out))
	if e.cfg.TestingSwitch {
		for _, kv := range out {
			e.stats.RangeValueSum = (e.stats.RangeValueSum + kv.Value) % 1_000_000
		}
	}
	return out
}
