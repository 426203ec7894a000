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

// CatalogPath returns the path of the catalog file within dataDir.
func CatalogPath(dataDir string) string {
	return filepath.Join(dataDir, "catalog.data")
}

// WriteCatalog persists counts, the live entry count n(l) of each level in
// order, one integer per line (spec §6.2). It is written atomically so a
// crash mid-write never leaves a torn catalog behind.
func WriteCatalog(dataDir string, counts []int) error {
	var buf bytes.Buffer
	for _, n := range counts {
		fmt.Fprintln(&buf, n)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return lsmerrors.NewIOError("mkdir", dataDir, err)
	}
	path := CatalogPath(dataDir)
	if err := atomic.WriteFile(path, bytes.NewReader(buf.Bytes())); err != nil {
		return lsmerrors.NewIOError("write", path, err)
	}
	return nil
}

// ReadCatalog reads back the per-level live entry counts written by
// WriteCatalog.
func ReadCatalog(dataDir string) ([]int, error) {
	path := CatalogPath(dataDir)
	f, err := os.Open(path)
	if err != nil {
		return nil, lsmerrors.NewIOError("open", path, err)
	}
	defer f.Close()

	var counts []int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			return nil, lsmerrors.NewIOError("parse", path, err)
		}
		counts = append(counts, n)
	}
	if err := scanner.Err(); err != nil {
		return nil, lsmerrors.NewIOError("read", path, err)
	}
	return counts, nil
}
