package progression

import (
	"testing"

	"github.com/habitquest/backend/internal/models"
)

func TestXPRequiredForLevelMonotonic(t *testing.T) {
	if got := XPRequiredForLevel(1); got != 0 {
		t.Errorf("XPRequiredForLevel(1) = %d, want 0", got)
	}

	prev := XPRequiredForLevel(1)
	for level := 2; level <= 200; level++ {
		cur := XPRequiredForLevel(level)
		if cur <= prev {
			t.Fatalf("curve not strictly increasing: level %d requires %d, level %d requires %d",
				level-1, prev, level, cur)
		}
		prev = cur
	}
}

func TestLevelFromXPBoundaries(t *testing.T) {
	for level := 1; level <= 100; level++ {
		threshold := XPRequiredForLevel(level)

		if got := LevelFromXP(threshold); got != level {
			t.Errorf("LevelFromXP(%d) = %d, want %d", threshold, got, level)
		}
		if level > 1 {
			if got := LevelFromXP(threshold - 1); got >= level {
				t.Errorf("LevelFromXP(%d) = %d, want < %d", threshold-1, got, level)
			}
		}
	}
}

func TestLevelFromXPNegative(t *testing.T) {
	if got := LevelFromXP(-50); got != 1 {
		t.Errorf("LevelFromXP(-50) = %d, want 1", got)
	}
	if got := LevelFromXP(0); got != 1 {
		t.Errorf("LevelFromXP(0) = %d, want 1", got)
	}
}

func TestLevelProgress(t *testing.T) {
	// Exactly at a level boundary → 0%
	p := LevelProgress(XPRequiredForLevel(3))
	if p.CurrentLevel != 3 {
		t.Errorf("CurrentLevel = %d, want 3", p.CurrentLevel)
	}
	if p.ProgressPercentage != 0 {
		t.Errorf("ProgressPercentage = %d, want 0", p.ProgressPercentage)
	}
	if p.XPProgress != 0 {
		t.Errorf("XPProgress = %d, want 0", p.XPProgress)
	}

	// One XP short of the next level → under 100%, above 90%
	p = LevelProgress(XPRequiredForLevel(4) - 1)
	if p.CurrentLevel != 3 {
		t.Errorf("CurrentLevel = %d, want 3", p.CurrentLevel)
	}
	if p.ProgressPercentage >= 100 || p.ProgressPercentage < 90 {
		t.Errorf("ProgressPercentage = %d, want in [90, 100)", p.ProgressPercentage)
	}

	// Negative clamps to level 1 at 0%
	p = LevelProgress(-10)
	if p.CurrentLevel != 1 || p.ProgressPercentage != 0 {
		t.Errorf("LevelProgress(-10) = %+v, want level 1 at 0%%", p)
	}
}

func TestHabitCompletionXP(t *testing.T) {
	tests := []struct {
		difficulty models.Difficulty
		streak     int
		bonus      float64
		want       int
	}{
		{models.DifficultyEasy, 0, 1.0, 10},
		{models.DifficultyMedium, 0, 1.0, 20},
		{models.DifficultyHard, 0, 1.0, 30},
		{models.DifficultyEasy, 4, 1.0, 12},   // 10 * 1.20
		{models.DifficultyMedium, 10, 1.0, 30}, // 20 * 1.50 (cap)
		{models.DifficultyMedium, 100, 1.0, 30}, // capped, not 20*6
		{models.DifficultyHard, 2, 2.0, 66},   // 30 * 1.10 * 2
	}

	for _, tt := range tests {
		got := HabitCompletionXP(tt.difficulty, tt.streak, tt.bonus)
		if got != tt.want {
			t.Errorf("HabitCompletionXP(%s, %d, %.1f) = %d, want %d",
				tt.difficulty, tt.streak, tt.bonus, got, tt.want)
		}
	}
}

func TestHabitCompletionXPMonotonicByDifficulty(t *testing.T) {
	for streak := 0; streak <= 30; streak += 3 {
		easy := HabitCompletionXP(models.DifficultyEasy, streak, 1.0)
		medium := HabitCompletionXP(models.DifficultyMedium, streak, 1.0)
		hard := HabitCompletionXP(models.DifficultyHard, streak, 1.0)
		if easy > medium || medium > hard {
			t.Errorf("streak %d: expected easy(%d) <= medium(%d) <= hard(%d)",
				streak, easy, medium, hard)
		}
	}
}
