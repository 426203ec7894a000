// Package bloom implements the per-level Bloom filter accelerator (spec
// §4.2): a fixed-width bit array with k independent hash functions derived
// from a single 32-bit non-cryptographic hash (murmur3 x86_32), the
// hash-function index supplied as the seed.
package bloom

import (
	"encoding/binary"
	"math"

	"github.com/spaolacci/murmur3"
)

// Filter is a per-level Bloom filter sized from the level's capacity, not
// its current occupancy, so the target false-positive rate holds once the
// level is full (spec §4.2).
type Filter struct {
	m uint32 // number of bits
	k uint32 // number of hash functions
	b []byte
}

// Sizing computes m (bit count) and k (hash count) for n expected elements
// at a target false-positive rate eps, per spec §4.2:
//
//	m = ceil(-n*ln(eps) / ln(2)^2)
//	k = max(1, round((m/n) * ln(2)))
func Sizing(n int, eps float64) (m, k uint32) {
	if n <= 0 {
		n = 1
	}
	fn := float64(n)
	mBits := math.Ceil(-fn * math.Log(eps) / (math.Ln2 * math.Ln2))
	if mBits < 1 {
		mBits = 1
	}
	kHashes := math.Round((mBits / fn) * math.Ln2)
	if kHashes < 1 {
		kHashes = 1
	}
	return uint32(mBits), uint32(kHashes)
}

// New builds a Bloom filter sized for capacity n (the level's C(l), not its
// current entry count) at the given target false-positive rate.
func New(capacity int, targetFPR float64) *Filter {
	m, k := Sizing(capacity, targetFPR)
	return &Filter{
		m: m,
		k: k,
		b: make([]byte, (m+7)/8),
	}
}

func (f *Filter) bitIndex(key int32, seed uint32) uint32 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(key))
	h := murmur3.Sum32WithSeed(buf[:], seed)
	return h % f.m
}

// Add sets all k bits derived from key.
func (f *Filter) Add(key int32) {
	for i := uint32(0); i < f.k; i++ {
		bit := f.bitIndex(key, i)
		f.b[bit/8] |= 1 << (bit % 8)
	}
}

// MayContain reports whether key could be present: false is a definite
// answer, true may be a false positive.
func (f *Filter) MayContain(key int32) bool {
	for i := uint32(0); i < f.k; i++ {
		bit := f.bitIndex(key, i)
		if f.b[bit/8]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}

// Clear zeroes every bit, leaving m and k untouched.
func (f *Filter) Clear() {
	for i := range f.b {
		f.b[i] = 0
	}
}

// NumBits returns m.
func (f *Filter) NumBits() uint32 { return f.m }

// NumHashes returns k.
func (f *Filter) NumHashes() uint32 { return f.k }

// GetBit reports whether bit i is set, for diagnostics (spec §C.1's
// verbose level dump).
func (f *Filter) GetBit(i uint32) bool {
	return f.b[i/8]&(1<<(i%8)) != 0
}

// SetBits returns how many of the m bits are currently set, without
// materializing the whole bit vector.
func (f *Filter) SetBits() uint32 {
	var count uint32
	for _, byteVal := range f.b {
		for byteVal != 0 {
			count += uint32(byteVal & 1)
			byteVal >>= 1
		}
	}
	return count
}
