// Package habits owns habit CRUD, the streak-continuity calculator, and
// habit completion rewards.
package habits

import (
	"fmt"
	"time"

	"github.com/habitquest/backend/internal/models"
)

// Continuity windows: a daily streak survives a gap of at most one day,
// a weekly streak a gap of at most seven.
const (
	dailyMaxGapDays  = 1
	weeklyMaxGapDays = 7
)

// StreakStatus is the read-only evaluation of a habit's continuity at a
// point in time. It never mutates anything; UpdateStreakAfterCompletion is
// the only mutating path.
type StreakStatus struct {
	Active     bool   // scheduled today (always true for daily/weekly)
	Maintained bool   // a completion now would continue the streak
	DaysSince  int    // calendar days since last completion, -1 if never
	Message    string // availability text for custom-frequency habits
}

// EvaluateStreak applies the frequency rule to the last completion time.
func EvaluateStreak(freq models.HabitFrequency, last *time.Time, now time.Time) StreakStatus {
	status := StreakStatus{Active: true, DaysSince: -1}
	if last != nil {
		status.DaysSince = daysBetween(*last, now)
	}

	switch freq.Kind {
	case models.FrequencyDaily:
		status.Maintained = last != nil && status.DaysSince <= dailyMaxGapDays

	case models.FrequencyWeekly:
		status.Maintained = last != nil && status.DaysSince <= weeklyMaxGapDays

	case models.FrequencyCustom:
		status.Active = containsWeekday(freq.CustomDays, now.Weekday())
		if !status.Active {
			next := nextActiveWeekday(freq.CustomDays, now.Weekday())
			status.Message = fmt.Sprintf("Not scheduled today — next on %s", next)
			return status
		}
		// Maintained iff the last completion is no older than the previous
		// scheduled day, so skipped off-days never break the streak.
		prev := previousScheduledDate(freq.CustomDays, now)
		status.Maintained = last != nil && !startOfDay(*last).Before(prev)
	}

	return status
}

// AdvanceStreak computes the post-completion streak row. The longest-streak
// invariant (longest >= current) holds after every call.
func AdvanceStreak(s models.HabitStreak, maintained bool, now time.Time) models.HabitStreak {
	if maintained {
		s.CurrentStreak++
	} else {
		s.CurrentStreak = 1
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.LastCompletedAt = &now
	return s
}

// WeeksInStreak reports a weekly habit's streak in whole weeks.
func WeeksInStreak(currentStreak int) int {
	return currentStreak / 7
}

// daysBetween counts whole calendar days from a to b in UTC.
func daysBetween(a, b time.Time) int {
	da := startOfDay(a)
	db := startOfDay(b)
	return int(db.Sub(da).Hours() / 24)
}

func startOfDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

func containsWeekday(days []int, wd time.Weekday) bool {
	for _, d := range days {
		if d == int(wd) {
			return true
		}
	}
	return false
}

// nextActiveWeekday scans forward from tomorrow, wrapping into next week
// when no scheduled day remains in the current one.
func nextActiveWeekday(days []int, today time.Weekday) time.Weekday {
	for offset := 1; offset <= 7; offset++ {
		wd := time.Weekday((int(today) + offset) % 7)
		if containsWeekday(days, wd) {
			return wd
		}
	}
	return today
}

// previousScheduledDate returns the start of the most recent scheduled day
// strictly before today.
func previousScheduledDate(days []int, now time.Time) time.Time {
	today := startOfDay(now)
	for offset := 1; offset <= 7; offset++ {
		candidate := today.AddDate(0, 0, -offset)
		if containsWeekday(days, candidate.Weekday()) {
			return candidate
		}
	}
	return today.AddDate(0, 0, -7)
}
