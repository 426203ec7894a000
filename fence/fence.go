// Package fence implements the per-level fence index (spec §4.3, §8
// invariant 2): a sorted array holding the key at each page boundary, used
// to narrow a point or range search to a single page-sized slice before a
// final binary search.
package fence

// Index is the fence pointer array for one level. It is empty for level 0
// (the unsorted buffer has no fence) and for an empty level.
type Index struct {
	keys     []int32
	pageSize int
}

// Build constructs the fence index over keys (assumed sorted ascending,
// i.e. a level l >= 1's live prefix), taking the first key of every
// pageSize-sized page.
func Build(keys []int32, pageSize int) *Index {
	n := len(keys)
	if n == 0 {
		return &Index{pageSize: pageSize}
	}
	length := (n + pageSize - 1) / pageSize
	fenceKeys := make([]int32, length)
	for i, j := 0, 0; i < length; i, j = i+1, j+pageSize {
		fenceKeys[i] = keys[j]
	}
	return &Index{keys: fenceKeys, pageSize: pageSize}
}

// Len returns the number of fence entries (ceil(n/pageSize)).
func (idx *Index) Len() int { return len(idx.keys) }

// Key returns the fence key at position i.
func (idx *Index) Key(i int) int32 { return idx.keys[i] }

// Page binary-searches the fence for the page that may hold key, returning
// its index. A key at or past the last fence entry resolves to the final
// page. A key below the first fence entry, or any key on an empty index,
// yields -1, except on a single-entry index, which always returns page 0.
// The caller still has to binary search within the returned page.
func (idx *Index) Page(key int32) int {
	l, r := 0, len(idx.keys)-1
	for l <= r {
		if l == len(idx.keys)-1 {
			break
		}
		m := (l + r) / 2
		if idx.keys[m] <= key && key < idx.keys[m+1] {
			return m
		} else if idx.keys[m] < key {
			l = m + 1
		} else {
			r = m - 1
		}
	}
	return r
}

// PageBounds returns the half-open entry-index range [lo, hi) of page p
// within a level holding n live entries.
func (idx *Index) PageBounds(p, n int) (lo, hi int) {
	lo = p * idx.pageSize
	hi = (p + 1) * idx.pageSize
	if hi > n {
		hi = n
	}
	return lo, hi
}
