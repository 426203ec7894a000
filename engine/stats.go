package engine

// Stats accumulates the session counters surfaced for diagnostics and for
// cross-validating the Bloom filter's false-positive rate against its
// configured target (spec §7).
type Stats struct {
	Puts    uint64
	Gets    uint64
	Hits    uint64
	Misses  uint64
	Deletes uint64

	Ranges         uint64
	RangeLengthSum uint64
	RangeValueSum  int64 // valid only when the config's testing switch is on; held mod 10^6

	SearchLevelCalls    uint64
	BloomTruePositives  uint64
	BloomFalsePositives uint64
}

// BloomFalsePositiveRate returns the observed false-positive rate across
// every point lookup that missed its target level's Bloom filter, i.e.
// the same quantity the original implementation prints as "Bloom FPR".
func (s Stats) BloomFalsePositiveRate() float64 {
	denom := s.BloomFalsePositives + (s.SearchLevelCalls - s.BloomTruePositives)
	if denom == 0 {
		return 0
	}
	return float64(s.BloomFalsePositives) / float64(denom)
}

// LevelReport is a snapshot of one level's shape, for diagnostic listing
// (spec §C.1): analogous to the original implementation's verbose level
// printer.
type LevelReport struct {
	Index        int
	Count        int
	Capacity     int
	UniqueKeys   int
	UniqueValues int
	FenceLength  int
	BloomBits    uint32
	BloomHashes  uint32
}

// Levels returns a diagnostic snapshot of every level currently held by
// the engine, outermost (buffer) first.
func (e *Engine) Levels() []LevelReport {
	reports := make([]LevelReport, len(e.levels))
	for i, lv := range e.levels {
		fenceLen := 0
		if lv.Fence() != nil {
			fenceLen = lv.Fence().Len()
		}
		reports[i] = LevelReport{
			Index:        lv.Index(),
			Count:        lv.Count(),
			Capacity:     lv.Capacity(),
			UniqueKeys:   lv.UniqueKeyCount(),
			UniqueValues: lv.UniqueValueCount(),
			FenceLength:  fenceLen,
			BloomBits:    lv.Bloom().NumBits(),
			BloomHashes:  lv.Bloom().NumHashes(),
		}
	}
	return reports
}

// StatsSnapshot returns a copy of the engine's current counters.
func (e *Engine) StatsSnapshot() Stats {
	return e.stats
}
