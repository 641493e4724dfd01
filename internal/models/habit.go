package models

import "time"

// ── Frequency ─────────────────────────────────────────────

type FrequencyKind string

const (
	FrequencyDaily  FrequencyKind = "daily"
	FrequencyWeekly FrequencyKind = "weekly"
	FrequencyCustom FrequencyKind = "custom"
)

func (k FrequencyKind) IsValid() bool {
	switch k {
	case FrequencyDaily, FrequencyWeekly, FrequencyCustom:
		return true
	}
	return false
}

// HabitFrequency rows are immutable: editing a habit's schedule inserts a
// new row, and the newest row is the habit's current frequency.
type HabitFrequency struct {
	ID         int64         `json:"id"`
	HabitID    int64         `json:"habit_id"`
	Kind       FrequencyKind `json:"kind"`
	CustomDays []int         `json:"custom_days,omitempty"` // weekday ints, 0=Sunday
	CreatedAt  time.Time     `json:"created_at"`
}

// ── Difficulty ────────────────────────────────────────────

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ── Habit / Streak / Completion ───────────────────────────

type Habit struct {
	ID         int64          `json:"id"`
	UserID     int64          `json:"user_id"`
	Name       string         `json:"name"`
	Difficulty Difficulty     `json:"difficulty"`
	Frequency  HabitFrequency `json:"frequency"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type HabitStreak struct {
	HabitID         int64      `json:"habit_id"`
	CurrentStreak   int        `json:"current_streak"`
	LongestStreak   int        `json:"longest_streak"`
	LastCompletedAt *time.Time `json:"last_completed_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HabitCompletion is an append-only log row; the newest row per habit is the
// authoritative last completion.
type HabitCompletion struct {
	ID               int64     `json:"id"`
	HabitID          int64     `json:"habit_id"`
	UserID           int64     `json:"user_id"`
	CompletedAt      time.Time `json:"completed_at"`
	ExperienceEarned int       `json:"experience_earned"`
	Value            int       `json:"value"`
}

// ── Request / Response Types ──────────────────────────────

type CreateHabitRequest struct {
	Name       string        `json:"name"`
	Difficulty Difficulty    `json:"difficulty"`
	Kind       FrequencyKind `json:"frequency"`
	CustomDays []int         `json:"custom_days,omitempty"`
}

type UpdateFrequencyRequest struct {
	Kind       FrequencyKind `json:"frequency"`
	CustomDays []int         `json:"custom_days,omitempty"`
}

type StreakUpdate struct {
	CurrentStreak int  `json:"current_streak"`
	LongestStreak int  `json:"longest_streak"`
	WeeksInStreak int  `json:"weeks_in_streak,omitempty"`
	Maintained    bool `json:"maintained"`
}

type CompleteHabitResponse struct {
	ExperienceEarned int          `json:"experience_earned"`
	NewLevel         int          `json:"new_level"`
	LeveledUp        bool         `json:"leveled_up"`
	StreakUpdate     StreakUpdate `json:"streak_update"`
}

type StreakStatusResponse struct {
	Active        bool   `json:"active"`
	Maintained    bool   `json:"maintained"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	Message       string `json:"message,omitempty"`
}
