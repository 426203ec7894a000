package storage

import (
	"path/filepath"
	"testing"

	"github.com/mrsladoje-successor/lsmkv/config"
)

func TestOpenLevelRoundTripRaw(t *testing.T) {
	dir := t.TempDir()

	lf, err := OpenLevel(dir, 0, 8, false)
	if err != nil {
		t.Fatalf("OpenLevel: %v", err)
	}
	defer lf.Close()

	lf.SetKey(0, 42)
	lf.SetRawValue(0, -100)
	lf.SetTombstone(0, true)
	lf.SetKey(1, 7)
	lf.SetRawValue(1, 1<<40)
	lf.SetTombstone(1, false)

	if got := lf.Key(0); got != 42 {
		t.Errorf("Key(0) = %d, want 42", got)
	}
	if got := lf.RawValue(0); got != -100 {
		t.Errorf("RawValue(0) = %d, want -100", got)
	}
	if !lf.Tombstone(0) {
		t.Error("Tombstone(0) = false, want true")
	}
	if got := lf.Key(1); got != 7 {
		t.Errorf("Key(1) = %d, want 7", got)
	}
	if got := lf.RawValue(1); got != 1<<40 {
		t.Errorf("RawValue(1) = %d, want %d", got, int64(1<<40))
	}
	if lf.Tombstone(1) {
		t.Error("Tombstone(1) = true, want false")
	}
	if lf.Capacity() != 8 {
		t.Errorf("Capacity() = %d, want 8", lf.Capacity())
	}
}

func TestOpenLevelDictValues(t *testing.T) {
	dir := t.TempDir()

	lf, err := OpenLevel(dir, 1, 4, true)
	if err != nil {
		t.Fatalf("OpenLevel: %v", err)
	}
	defer lf.Close()

	if !lf.ValueIsDict() {
		t.Fatal("ValueIsDict() = false, want true")
	}
	lf.SetDictID(2, 200)
	if got := lf.DictID(2); got != 200 {
		t.Errorf("DictID(2) = %d, want 200", got)
	}
}

func TestOpenLevelPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	lf, err := OpenLevel(dir, 0, 4, false)
	if err != nil {
		t.Fatalf("OpenLevel: %v", err)
	}
	lf.SetKey(0, 99)
	lf.SetRawValue(0, 12345)
	if err := lf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lf2, err := OpenLevel(dir, 0, 4, false)
	if err != nil {
		t.Fatalf("reopen OpenLevel: %v", err)
	}
	defer lf2.Close()
	if got := lf2.Key(0); got != 99 {
		t.Errorf("reopened Key(0) = %d, want 99", got)
	}
	if got := lf2.RawValue(0); got != 12345 {
		t.Errorf("reopened RawValue(0) = %d, want 12345", got)
	}
}

func TestCatalogRoundTrip(t *testing.T) {
	dir := t.TempDir()
	counts := []int{3, 10, 0, 250}

	if err := WriteCatalog(dir, counts); err != nil {
		t.Fatalf("WriteCatalog: %v", err)
	}
	got, err := ReadCatalog(dir)
	if err != nil {
		t.Fatalf("ReadCatalog: %v", err)
	}
	if len(got) != len(counts) {
		t.Fatalf("ReadCatalog length = %d, want %d", len(got), len(counts))
	}
	for i, want := range counts {
		if got[i] != want {
			t.Errorf("count[%d] = %d, want %d", i, got[i], want)
		}
	}
}

func TestDataDirExists(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{DataDir: dir}
	if DataDirExists(cfg) {
		t.Error("DataDirExists before WriteCatalog = true, want false")
	}
	if err := WriteCatalog(dir, []int{0}); err != nil {
		t.Fatalf("WriteCatalog: %v", err)
	}
	if _, err := ReadCatalog(dir); err != nil {
		t.Fatalf("ReadCatalog: %v", err)
	}
	if _, err := filepath.Abs(dir); err != nil {
		t.Fatalf("filepath.Abs: %v", err)
	}
	if !DataDirExists(cfg) {
		t.Error("DataDirExists after WriteCatalog = false, want true")
	}
}

func TestDictReverseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	reverse := []int64{10, -20, 1 << 40}

	if err := WriteDictReverse(dir, 2, reverse); err != nil {
		t.Fatalf("WriteDictReverse: %v", err)
	}
	got, err := ReadDictReverse(dir, 2)
	if err != nil {
		t.Fatalf("ReadDictReverse: %v", err)
	}
	if len(got) != len(reverse) {
		t.Fatalf("length = %d, want %d", len(got), len(reverse))
	}
	for i, want := range reverse {
		if got[i] != want {
			t.Errorf("reverse[%d] = %d, want %d", i, got[i], want)
		}
	}
}

func TestDictReverseMissingIsNil(t *testing.T) {
	dir := t.TempDir()
	got, err := ReadDictReverse(dir, 5)
	if err != nil {
		t.Fatalf("ReadDictReverse on missing file: %v", err)
	}
	if got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestRemoveDict(t *testing.T) {
	dir := t.TempDir()
	if err := WriteDictReverse(dir, 0, []int64{1}); err != nil {
		t.Fatalf("WriteDictReverse: %v", err)
	}
	if err := RemoveDict(dir, 0); err != nil {
		t.Fatalf("RemoveDict: %v", err)
	}
	got, err := ReadDictReverse(dir, 0)
	if err != nil {
		t.Fatalf("ReadDictReverse after remove: %v", err)
	}
	if got != nil {
		t.Errorf("got %v, want nil after RemoveDict", got)
	}
}

func TestWipe(t *testing.T) {
	dir := t.TempDir()
	if err := WriteCatalog(dir, []int{1}); err != nil {
		t.Fatalf("WriteCatalog: %v", err)
	}
	if err := Wipe(dir); err != nil {
		t.Fatalf("Wipe: %v", err)
	}
	if _, err := ReadCatalog(dir); err == nil {
		t.Error("ReadCatalog after Wipe: expected error, got nil")
	}
}
