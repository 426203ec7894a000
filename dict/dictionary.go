// Package dict implements the optional per-level value dictionary (spec
// §4.6): a map from value to a small dictionary-id plus the reverse vector
// used to resolve ids back to values. Dictionaries are per-level and are
// not shared across levels — on propagation, values are read through the
// source level's resolver and re-encoded fresh at the destination.
package dict

import "github.com/mrsladoje-successor/lsmkv/lsmerrors"

// MaxEntries is the capacity of the id type (uint8): once a level has seen
// this many distinct values, further inserts of a new value overflow the
// dictionary.
const MaxEntries = 1 << 8

// Dictionary maps values to small ids for one level.
type Dictionary struct {
	toID    map[int64]uint8
	reverse []int64
}

// New returns an empty dictionary.
func New() *Dictionary {
	return &Dictionary{toID: make(map[int64]uint8)}
}

// Encode returns the id for value, assigning it the next available id (the
// current dictionary size) if value has not been seen before at this
// level. Returns ErrDictionaryOverflow if value is new and the dictionary
// is already at capacity.
func (d *Dictionary) Encode(value int64) (uint8, error) {
	if id, ok := d.toID[value]; ok {
		return id, nil
	}
	if len(d.reverse) >= MaxEntries {
		return 0, lsmerrors.ErrDictionaryOverflow
	}
	id := uint8(len(d.reverse))
	d.toID[value] = id
	d.reverse = append(d.reverse, value)
	return id, nil
}

// Resolve returns the raw value for id. The caller must only pass ids it
// received from Encode on this same dictionary; an out-of-range id is a
// programming error, not a runtime condition this API reports.
func (d *Dictionary) Resolve(id uint8) int64 {
	return d.reverse[id]
}

// Len reports how many distinct values the dictionary currently holds.
func (d *Dictionary) Len() int {
	return len(d.reverse)
}

// Clear empties the dictionary, as happens when its level is cleared at
// the end of a propagation out of it.
func (d *Dictionary) Clear() {
	d.toID = make(map[int64]uint8)
	d.reverse = nil
}

// ReverseValues returns the id -> value vector in id order, for persisting
// dictreverse<l>.data.
func (d *Dictionary) ReverseValues() []int64 {
	return d.reverse
}

// Load rebuilds a dictionary from a persisted reverse vector (id -> value,
// in id order), as read back from dictreverse<l>.data at startup.
func Load(reverse []int64) *Dictionary {
	d := &Dictionary{toID: make(map[int64]uint8, len(reverse))}
	for id, v := range reverse {
		d.toID[v] = uint8(id)
	}
	d.reverse = reverse
	return d
}
