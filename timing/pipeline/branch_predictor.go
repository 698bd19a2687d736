package pipeline

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Counter states of the 2-bit saturating counter.
const (
	StrongNotTaken uint8 = iota
	WeakNotTaken
	WeakTaken
	StrongTaken
)

// BranchPredictorConfig holds configuration for the branch predictor.
type BranchPredictorConfig struct {
	// Entries is the number of live counters the table holds.
	// Default is 32.
	Entries int
}

// DefaultBranchPredictorConfig returns a default configuration.
func DefaultBranchPredictorConfig() BranchPredictorConfig {
	return BranchPredictorConfig{
		Entries: 32,
	}
}

// BranchPredictorStats holds statistics for the branch predictor.
type BranchPredictorStats struct {
	// Predictions is the number of scored predictions.
	Predictions uint64
	// Correct is the number of correct predictions.
	Correct uint64
	// Mispredictions is the number of incorrect predictions.
	Mispredictions uint64
	// Evictions is the number of LRU evictions from the table.
	Evictions uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s BranchPredictorStats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Predictions) * 100
}

// MispredictionRate returns the misprediction rate as a percentage.
func (s BranchPredictorStats) MispredictionRate() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(s.Predictions) * 100
}

// BranchPredictor is a table of 2-bit saturating counters keyed by branch
// target. The table is fully associative with true LRU replacement; an
// Akita directory with a single set tracks residency and access order.
type BranchPredictor struct {
	directory *akitacache.DirectoryImpl
	counters  []uint8
	entries   int

	stats BranchPredictorStats
}

// NewBranchPredictor creates a new branch predictor with the given configuration.
func NewBranchPredictor(config BranchPredictorConfig) *BranchPredictor {
	entries := config.Entries
	if entries <= 0 {
		entries = 32
	}

	return &BranchPredictor{
		directory: akitacache.NewDirectory(
			1,
			entries,
			1,
			akitacache.NewLRUVictimFinder(),
		),
		counters: make([]uint8, entries),
		entries:  entries,
	}
}

func (bp *BranchPredictor) lookup(target uint16) *akitacache.Block {
	block := bp.directory.Lookup(0, uint64(target))
	if block != nil && block.IsValid {
		return block
	}
	return nil
}

// insert places target in the table, evicting the LRU entry if the table
// is full.
func (bp *BranchPredictor) insert(target uint16, counter uint8) {
	victim := bp.directory.FindVictim(uint64(target))
	if victim.IsValid {
		bp.stats.Evictions++
	}

	victim.Tag = uint64(target)
	victim.IsValid = true
	bp.counters[victim.WayID] = counter
	bp.directory.Visit(victim)
}

// Predict returns whether the branch at current jumping to target is
// predicted taken. A target seen for the first time is seeded by the
// static heuristic: backward branches are taken.
func (bp *BranchPredictor) Predict(current, target uint16) bool {
	if block := bp.lookup(target); block != nil {
		bp.directory.Visit(block)
		return bp.counters[block.WayID] >= WeakTaken
	}

	backward := target < current
	if backward {
		bp.insert(target, WeakTaken)
	} else {
		bp.insert(target, WeakNotTaken)
	}

	return backward
}

// Update scores the prediction for the branch at current against the
// actual outcome and trains the counter for target.
func (bp *BranchPredictor) Update(current, target uint16, taken bool) {
	predicted := bp.Predict(current, target)

	bp.stats.Predictions++
	if predicted == taken {
		bp.stats.Correct++
	} else {
		bp.stats.Mispredictions++
	}

	block := bp.lookup(target)
	c := bp.counters[block.WayID]
	if taken {
		if c < StrongTaken {
			c++
		}
	} else {
		if c > StrongNotTaken {
			c--
		}
	}
	bp.counters[block.WayID] = c
}

// State returns the counter for target, if the table holds one. It does
// not change the access order.
func (bp *BranchPredictor) State(target uint16) (uint8, bool) {
	block := bp.lookup(target)
	if block == nil {
		return 0, false
	}
	return bp.counters[block.WayID], true
}

// Len returns the number of live entries.
func (bp *BranchPredictor) Len() int {
	n := 0
	for _, set := range bp.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid {
				n++
			}
		}
	}
	return n
}

// Capacity returns the maximum number of live entries.
func (bp *BranchPredictor) Capacity() int {
	return bp.entries
}

// Stats returns the branch predictor statistics.
func (bp *BranchPredictor) Stats() BranchPredictorStats {
	return bp.stats
}

// Reset clears all predictor state and statistics.
func (bp *BranchPredictor) Reset() {
	bp.directory.Reset()
	for i := range bp.counters {
		bp.counters[i] = 0
	}
	bp.stats = BranchPredictorStats{}
}
