// Package level implements a single level of the tree (spec §3, §4.2): the
// in-memory view over one level's memory-mapped key/value/tombstone
// arrays, its Bloom filter, its fence index, and its optional value
// dictionary. Level 0 is the unsorted buffer and never carries a fence.
package level

import (
	"fmt"

	"github.com/mrsladoje-successor/lsmkv/bloom"
	"github.com/mrsladoje-successor/lsmkv/config"
	"github.com/mrsladoje-successor/lsmkv/dict"
	"github.com/mrsladoje-successor/lsmkv/fence"
	"github.com/mrsladoje-successor/lsmkv/storage"
)

// Level is one level of the tree: level 0 is the unsorted write buffer,
// levels 1..n-1 are sorted, fenced, and Bloom-filtered runs.
type Level struct {
	index     int
	dataDir   string
	files     *storage.LevelFiles
	numPairs  int
	capacity  int
	pageSize  int
	targetFPR float64

	fence *fence.Index
	bloom *bloom.Filter
	dict  *dict.Dictionary // nil when encoding is off
}

// Open opens or creates the backing storage for level index, sized to
// capacity, and reconstructs its fence and Bloom filter from whatever
// live entries it already holds (numPairs, as read from the catalog).
func Open(dataDir string, index, capacity, pageSize int, targetFPR float64, encoding config.Encoding, numPairs int) (*Level, error) {
	useDict := encoding == config.EncodingDict
	files, err := storage.OpenLevel(dataDir, index, capacity, useDict)
	if err != nil {
		return nil, err
	}

	lv := &Level{
		index:     index,
		dataDir:   dataDir,
		files:     files,
		numPairs:  numPairs,
		capacity:  capacity,
		pageSize:  pageSize,
		targetFPR: targetFPR,
	}

	if useDict {
		reverse, err := storage.ReadDictReverse(dataDir, index)
		if err != nil {
			files.Close()
			return nil, err
		}
		lv.dict = dict.Load(reverse)
	}

	lv.RebuildBloom()
	if index > 0 {
		lv.RebuildFence()
	}
	return lv, nil
}

// Index returns the level's position in the tree (0 = buffer).
func (lv *Level) Index() int { return lv.index }

// Count returns n(l), the number of live entries currently stored.
func (lv *Level) Count() int { return lv.numPairs }

// Capacity returns C(l), the level's entry capacity.
func (lv *Level) Capacity() int { return lv.capacity }

// IsEmpty reports whether the level holds no entries.
func (lv *Level) IsEmpty() bool { return lv.numPairs == 0 }

// IsFull reports whether the level has reached capacity and must
// propagate before accepting another entry.
func (lv *Level) IsFull() bool { return lv.numPairs >= lv.capacity }

// Fence returns the level's fence index. For level 0 it is nil until the
// first Clear or RebuildFence, and an empty index after that.
func (lv *Level) Fence() *fence.Index { return lv.fence }

// Bloom returns the level's Bloom filter.
func (lv *Level) Bloom() *bloom.Filter { return lv.bloom }

// Dict returns the level's value dictionary, or nil if dictionary
// encoding is off.
func (lv *Level) Dict() *dict.Dictionary { return lv.dict }

// Key returns the key stored at entry index i.
func (lv *Level) Key(i int) int32 { return lv.files.Key(i) }

// Value returns the (decoded, if applicable) value stored at entry index i.
func (lv *Level) Value(i int) int64 {
	if lv.dict != nil {
		return lv.dict.Resolve(lv.files.DictID(i))
	}
	return lv.files.RawValue(i)
}

// Tombstone reports whether entry index i is a deletion marker.
func (lv *Level) Tombstone(i int) bool { return lv.files.Tombstone(i) }

// Append writes (key, value, tombstone) to the next free slot and updates
// the Bloom filter in place. It does not rebuild the fence — callers that
// append in bulk (propagation, sort-merge) rebuild once at the end via
// RebuildFence. Returns ErrDictionaryOverflow if the level is
// dictionary-encoded and already holds the maximum number of distinct
// values.
func (lv *Level) Append(key int32, value int64, tombstone bool) error {
	if lv.numPairs >= lv.capacity {
		return errLevelFull{index: lv.index}
	}
	i := lv.numPairs
	lv.files.SetKey(i, key)
	if lv.dict != nil {
		id, err := lv.dict.Encode(value)
		if err != nil {
			return err
		}
		lv.files.SetDictID(i, id)
	} else {
		lv.files.SetRawValue(i, value)
	}
	lv.files.SetTombstone(i, tombstone)
	lv.numPairs++
	lv.bloom.Add(key)
	return nil
}

// Clear empties the level: entry count resets to zero, the fence is
// dropped, and the Bloom filter and dictionary are cleared. The
// underlying mapped arrays are left with stale bytes past the new count,
// which is safe since nothing reads past Count(). If the level is
// dictionary-encoded, its on-disk dictreverse sidecar is removed too, so
// a cleared level never leaves behind ids for a dictionary no longer in
// memory.
func (lv *Level) Clear() error {
	lv.numPairs = 0
	lv.fence = fence.Build(nil, lv.pageSize)
	lv.bloom.Clear()
	if lv.dict != nil {
		lv.dict.Clear()
		return storage.RemoveDict(lv.dataDir, lv.index)
	}
	return nil
}

// RebuildFence reconstructs the fence index from the level's current live
// keys. Callers must ensure the level is sorted ascending by key first;
// level 0 is never fenced.
func (lv *Level) RebuildFence() {
	if lv.index == 0 {
		lv.fence = fence.Build(nil, lv.pageSize)
		return
	}
	keys := make([]int32, lv.numPairs)
	for i := 0; i < lv.numPairs; i++ {
		keys[i] = lv.files.Key(i)
	}
	lv.fence = fence.Build(keys, lv.pageSize)
}

// RebuildBloom recreates the Bloom filter sized to the level's capacity
// and re-adds every live key. Called by Open at startup; a sort-merge
// instead empties the filter through Clear and refills it key by key
// through Append.
func (lv *Level) RebuildBloom() {
	lv.bloom = bloom.New(lv.capacity, lv.targetFPR)
	for i := 0; i < lv.numPairs; i++ {
		lv.bloom.Add(lv.files.Key(i))
	}
}

// UniqueKeyCount reports the number of distinct keys currently stored
// (diagnostic use; a live level's keys are already unique except in the
// unsorted buffer).
func (lv *Level) UniqueKeyCount() int {
	seen := make(map[int32]struct{}, lv.numPairs)
	for i := 0; i < lv.numPairs; i++ {
		seen[lv.files.Key(i)] = struct{}{}
	}
	return len(seen)
}

// UniqueValueCount reports the number of distinct values currently
// stored.
func (lv *Level) UniqueValueCount() int {
	seen := make(map[int64]struct{}, lv.numPairs)
	for i := 0; i < lv.numPairs; i++ {
		seen[lv.Value(i)] = struct{}{}
	}
	return len(seen)
}

// Persist flushes the level's dictionary sidecar, if any, to disk. The
// memory-mapped key/value/tombstone arrays are written through on every
// mutation already; only the dictionary needs an explicit write.
func (lv *Level) Persist() error {
	if lv.dict == nil {
		return nil
	}
	return storage.WriteDictReverse(lv.dataDir, lv.index, lv.dict.ReverseValues())
}

// Close releases the level's memory mapping.
func (lv *Level) Close() error { return lv.files.Close() }

type errLevelFull struct{ index int }

func (e errLevelFull) Error() string {
	return fmt.Sprintf("level %d is at capacity, caller must propagate before appending", e.index)
}
