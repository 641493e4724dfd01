// Package progression holds the pure XP/leveling math. Nothing in here
// touches storage or the clock.
package progression

import (
	"math"

	"github.com/habitquest/backend/internal/models"
)

const (
	// XPCurveCoef scales the level curve: XP_required = 100 * (level-1)^1.5.
	XPCurveCoef = 100.0

	// StreakBonusRate is the per-completion streak bonus (5% per streak step).
	StreakBonusRate = 0.05

	// StreakBonusCap bounds the streak multiplier. Without it, long streaks
	// would inflate rewards without limit.
	StreakBonusCap = 1.5
)

// Base XP values per habit difficulty.
const (
	baseXPEasy   = 10
	baseXPMedium = 20
	baseXPHard   = 30
)

// XPRequiredForLevel returns the total XP threshold for a level.
// Level 1 requires 0 XP; the curve is strictly increasing above that.
func XPRequiredForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	req := XPCurveCoef * math.Pow(float64(level-1), 1.5)
	return int64(math.Floor(req))
}

// LevelFromXP returns the largest level L with XPRequiredForLevel(L) <= xp.
// Negative XP floors at level 1.
func LevelFromXP(xp int64) int {
	if xp <= 0 {
		return 1
	}

	// Exponential search for an upper bound, then binary search.
	low := 1
	high := 2
	for XPRequiredForLevel(high) <= xp {
		low = high
		high *= 2
		if high > 1_000_000 {
			break
		}
	}

	for low+1 < high {
		mid := low + (high-low)/2
		if XPRequiredForLevel(mid) <= xp {
			low = mid
		} else {
			high = mid
		}
	}
	return low
}

// LevelProgress reports where an XP total sits inside its level band.
func LevelProgress(xp int64) models.LevelProgress {
	if xp < 0 {
		xp = 0
	}
	level := LevelFromXP(xp)
	cur := XPRequiredForLevel(level)
	next := XPRequiredForLevel(level + 1)

	pct := 0
	if next > cur {
		pct = int(100 * (xp - cur) / (next - cur))
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	return models.LevelProgress{
		CurrentLevel:       level,
		CurrentLevelXP:     cur,
		NextLevelXP:        next,
		XPProgress:         xp - cur,
		ProgressPercentage: pct,
	}
}

// HabitCompletionXP computes the XP reward for one habit completion.
// Callers validate the difficulty enum; unknown values score as medium.
func HabitCompletionXP(difficulty models.Difficulty, streakLength int, bonusMultiplier float64) int {
	base := baseXPMedium
	switch difficulty {
	case models.DifficultyEasy:
		base = baseXPEasy
	case models.DifficultyHard:
		base = baseXPHard
	}

	if streakLength < 0 {
		streakLength = 0
	}
	streakMult := 1.0 + StreakBonusRate*float64(streakLength)
	if streakMult > StreakBonusCap {
		streakMult = StreakBonusCap
	}

	return int(math.Floor(float64(base) * streakMult * bonusMultiplier))
}
