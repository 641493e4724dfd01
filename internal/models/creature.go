package models

import "time"

// Creature is the user's companion. Experience only ever grows; level is
// derived from experience and kept denormalized in sync on every XP grant.
type Creature struct {
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	Level      int       `json:"level"`
	Experience int64     `json:"experience"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Stat names, in canonical order.
const (
	StatStrength     = "strength"
	StatDexterity    = "dexterity"
	StatConstitution = "constitution"
	StatIntelligence = "intelligence"
	StatWisdom       = "wisdom"
	StatCharisma     = "charisma"
)

var StatNames = []string{
	StatStrength, StatDexterity, StatConstitution,
	StatIntelligence, StatWisdom, StatCharisma,
}

func IsValidStat(name string) bool {
	for _, s := range StatNames {
		if s == name {
			return true
		}
	}
	return false
}

type CreatureStats struct {
	UserID          int64     `json:"user_id"`
	Strength        int       `json:"strength"`
	Dexterity       int       `json:"dexterity"`
	Constitution    int       `json:"constitution"`
	Intelligence    int       `json:"intelligence"`
	Wisdom          int       `json:"wisdom"`
	Charisma        int       `json:"charisma"`
	StatBoostPoints int       `json:"stat_boost_points"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Value returns the named stat, or 0 for an unknown name. Callers validate
// the name first via IsValidStat.
func (s CreatureStats) Value(name string) int {
	switch name {
	case StatStrength:
		return s.Strength
	case StatDexterity:
		return s.Dexterity
	case StatConstitution:
		return s.Constitution
	case StatIntelligence:
		return s.Intelligence
	case StatWisdom:
		return s.Wisdom
	case StatCharisma:
		return s.Charisma
	}
	return 0
}

// ── Request / Response Types ──────────────────────────────

type SpendPointsRequest struct {
	Stat   string `json:"stat"`
	Points int    `json:"points"`
}

type SpendPointsResponse struct {
	Stat            string `json:"stat"`
	NewStatValue    int    `json:"new_stat_value"`
	RemainingPoints int    `json:"remaining_points"`
}

type XPGrant struct {
	Experience int   `json:"experience"`
	TotalXP    int64 `json:"total_xp"`
	NewLevel   int   `json:"new_level"`
	LeveledUp  bool  `json:"leveled_up"`
}

type CreatureResponse struct {
	Creature Creature      `json:"creature"`
	Stats    CreatureStats `json:"stats"`
	Progress LevelProgress `json:"progress"`
}

// LevelProgress describes where an XP total sits inside its level band.
type LevelProgress struct {
	CurrentLevel       int   `json:"current_level"`
	CurrentLevelXP     int64 `json:"current_level_xp"`
	NextLevelXP        int64 `json:"next_level_xp"`
	XPProgress         int64 `json:"xp_progress"`
	ProgressPercentage int   `json:"progress_percentage"`
}
