package storage

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/mrsladoje-successor/lsmkv/lsmerrors"
)

func dictReversePath(dataDir string, level int) string {
	return filepath.Join(dataDir, fmt.Sprintf("dictreverse%d.data", level))
}

// WriteDictReverse persists a level's id -> value vector (dictreverse<l>.data),
// one value per line in id order, so it can be reloaded with matching ids
// on restart.
func WriteDictReverse(dataDir string, level int, reverse []int64) error {
	var buf bytes.Buffer
	for _, v := range reverse {
		fmt.Fprintln(&buf, v)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return lsmerrors.NewIOError("mkdir", dataDir, err)
	}
	path := dictReversePath(dataDir, level)
	if err := atomic.WriteFile(path, bytes.NewReader(buf.Bytes())); err != nil {
		return lsmerrors.NewIOError("write", path, err)
	}
	return nil
}

// ReadDictReverse loads a level's persisted id -> value vector. Returns a
// nil slice, no error, if the level has never had a dictionary written
// (the level is dictionary-encoding-disabled, or has never held a value).
func ReadDictReverse(dataDir string, level int) ([]int64, error) {
	path := dictReversePath(dataDir, level)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, lsmerrors.NewIOError("open", path, err)
	}
	defer f.Close()

	var reverse []int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, lsmerrors.NewIOError("parse", path, err)
		}
		reverse = append(reverse, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, lsmerrors.NewIOError("read", path, err)
	}
	return reverse, nil
}

// RemoveDict deletes a level's dictionary sidecar, as happens when the
// level is cleared on propagation.
func RemoveDict(dataDir string, level int) error {
	path := dictReversePath(dataDir, level)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return lsmerrors.NewIOError("remove", path, err)
	}
	return nil
}
