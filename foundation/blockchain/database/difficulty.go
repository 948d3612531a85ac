package database

import "time"

// Retarget parameters for the difficulty adjustment.
const (
	AdjustInterval = 10               // Number of blocks between adjustments.
	BlockInterval  = 10 * time.Second // Target time to produce one block.
)

// RequiredDifficulty returns the difficulty the next block after the tip of
// the specified blocks must be mined at. Every AdjustInterval blocks the time
// taken by the window is compared to the expected time: half or less raises
// the difficulty by one, double or more lowers it by one (never below zero).
// An empty set of blocks returns the default difficulty.
func RequiredDifficulty(blocks []Block, defaultDifficulty uint) uint {
	if len(blocks) == 0 {
		return defaultDifficulty
	}

	tip := blocks[len(blocks)-1]
	if tip.Index == 0 || tip.Index%AdjustInterval != 0 {
		return tip.Difficulty
	}

	// The window starts AdjustInterval blocks behind the tip.
	pos := tip.Index - AdjustInterval
	if pos >= uint64(len(blocks)) {
		return tip.Difficulty
	}
	windowStart := blocks[pos]

	expected := BlockInterval.Milliseconds() * AdjustInterval
	actual := int64(tip.TimeStamp) - int64(windowStart.TimeStamp)

	switch {
	case actual <= expected/2:
		return windowStart.Difficulty + 1

	case actual >= expected*2:
		if windowStart.Difficulty == 0 {
			return 0
		}
		return windowStart.Difficulty - 1
	}

	return windowStart.Difficulty
}
