// Package storage owns the on-disk layout backing each level (spec §6.2):
// memory-mapped key/value/tombstone arrays sized to the level's capacity,
// plus the text catalog and dictionary sidecars. It is the only package
// that touches the filesystem or a memory mapping directly.
package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"

	"github.com/mrsladoje-successor/lsmkv/config"
	"github.com/mrsladoje-successor/lsmkv/lsmerrors"
)

// LevelFiles holds the three memory-mapped regions backing one level: raw
// keys, raw or dictionary-encoded values, and tombstone flags. Keys/values
// "arrays" are views into the mapped region — reads never copy.
type LevelFiles struct {
	dir   string
	level int

	keyFile *os.File
	keyMap  mmap.MMap

	valFile   *os.File
	valMap    mmap.MMap
	valIsDict bool // true: 1 byte/entry dictionary ids; false: 8 bytes/entry raw values

	tombFile *os.File
	tombMap  mmap.MMap

	capacity int
}

func levelFileName(dir, prefix string, level int) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d.data", prefix, level))
}

// OpenLevel creates (if needed) and maps the backing files for level,
// truncating them to capacity entries if they are being created fresh.
// valIsDict selects the per-entry width of the values file (1 byte for
// dictionary ids, 8 bytes for raw int64 values), per spec §6.1 encoding.
func OpenLevel(dir string, level int, capacity int, valIsDict bool) (*LevelFiles, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, lsmerrors.NewIOError("mkdir", dir, err)
	}

	lf := &LevelFiles{dir: dir, level: level, capacity: capacity, valIsDict: valIsDict}

	valWidth := 8
	if valIsDict {
		valWidth = 1
	}

	var err error
	lf.keyFile, lf.keyMap, err = openAndMap(levelFileName(dir, "k", level), capacity*4)
	if err != nil {
		return nil, err
	}
	lf.valFile, lf.valMap, err = openAndMap(levelFileName(dir, "v", level), capacity*valWidth)
	if err != nil {
		lf.Close()
		return nil, err
	}
	lf.tombFile, lf.tombMap, err = openAndMap(levelFileName(dir, "t", level), capacity*1)
	if err != nil {
		lf.Close()
		return nil, err
	}
	return lf, nil
}

func openAndMap(path string, size int) (*os.File, mmap.MMap, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, nil, lsmerrors.NewIOError("open", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, lsmerrors.NewIOError("stat", path, err)
	}
	if info.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, nil, lsmerrors.NewIOError("ftruncate", path, err)
		}
	}
	if size == 0 {
		// mmap of a zero-length region is invalid on most platforms; the
		// level simply has no mapped storage until its capacity is > 0,
		// which cannot happen for a well-formed config (capacity is
		// always B*T^l >= B >= 1).
		size = 1
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, nil, lsmerrors.NewIOError("ftruncate", path, err)
		}
	}
	m, err := mmap.MapRegion(f, size, mmap.RDWR, 0, 0)
	if err != nil {
		f.Close()
		return nil, nil, lsmerrors.NewIOError("mmap", path, err)
	}
	return f, m, nil
}

// Key returns the key stored at index i.
func (lf *LevelFiles) Key(i int) int32 {
	return int32(binary.LittleEndian.Uint32(lf.keyMap[i*4 : i*4+4]))
}

// SetKey writes the key at index i.
func (lf *LevelFiles) SetKey(i int, key int32) {
	binary.LittleEndian.PutUint32(lf.keyMap[i*4:i*4+4], uint32(key))
}

// RawValue returns the 8-byte value at index i. Valid only when the level
// is not dictionary-encoded.
func (lf *LevelFiles) RawValue(i int) int64 {
	return int64(binary.LittleEndian.Uint64(lf.valMap[i*8 : i*8+8]))
}

// SetRawValue writes an 8-byte value at index i.
func (lf *LevelFiles) SetRawValue(i int, value int64) {
	binary.LittleEndian.PutUint64(lf.valMap[i*8:i*8+8], uint64(value))
}

// DictID returns the 1-byte dictionary id at index i. Valid only when the
// level is dictionary-encoded.
func (lf *LevelFiles) DictID(i int) uint8 {
	return lf.valMap[i]
}

// SetDictID writes a 1-byte dictionary id at index i.
func (lf *LevelFiles) SetDictID(i int, id uint8) {
	lf.valMap[i] = id
}

// Tombstone returns the tombstone flag at index i.
func (lf *LevelFiles) Tombstone(i int) bool {
	return lf.tombMap[i] != 0
}

// SetTombstone writes the tombstone flag at index i.
func (lf *LevelFiles) SetTombstone(i int, tombstone bool) {
	if tombstone {
		lf.tombMap[i] = 1
	} else {
		lf.tombMap[i] = 0
	}
}

// Capacity returns C(l), the number of entries the mapping was sized for.
func (lf *LevelFiles) Capacity() int { return lf.capacity }

// ValueIsDict reports whether this level's value array holds dictionary
// ids rather than raw values.
func (lf *LevelFiles) ValueIsDict() bool { return lf.valIsDict }

// Close unmaps all three regions and closes their files. Safe to call on a
// partially-opened LevelFiles (as happens when OpenLevel fails partway).
func (lf *LevelFiles) Close() error {
	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if lf.keyMap != nil {
		note(lf.keyMap.Unmap())
	}
	if lf.keyFile != nil {
		note(lf.keyFile.Close())
	}
	if lf.valMap != nil {
		note(lf.valMap.Unmap())
	}
	if lf.valFile != nil {
		note(lf.valFile.Close())
	}
	if lf.tombMap != nil {
		note(lf.tombMap.Unmap())
	}
	if lf.tombFile != nil {
		note(lf.tombFile.Close())
	}
	return firstErr
}

// DataDirExists reports whether cfg's data directory already has a
// catalog, i.e. whether this is a restart rather than a fresh start.
func DataDirExists(cfg *config.Config) bool {
	_, err := os.Stat(CatalogPath(cfg.DataDir))
	return err == nil
}

// Wipe removes the entire data directory (the "sw" shutdown flavor of
// spec §6.3).
func Wipe(dataDir string) error {
	if err := os.RemoveAll(dataDir); err != nil {
		return lsmerrors.NewIOError("remove", dataDir, err)
	}
	return nil
}
