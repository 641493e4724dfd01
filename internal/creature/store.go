package creature

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/habitquest/backend/internal/models"
	"github.com/habitquest/backend/internal/progression"
)

// PostgresStore is the storage backend for the creature aggregate: the
// creature row and its stats row, keyed by user.
type PostgresStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureCreature creates the creature and stats rows if they don't exist
// yet. ON CONFLICT DO NOTHING makes it safe to call on every registration
// and login.
func (s *PostgresStore) EnsureCreature(ctx context.Context, userID int64, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO creatures (user_id, name) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, name)
	if err != nil {
		return fmt.Errorf("insert creature: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO creature_stats (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID)
	if err != nil {
		return fmt.Errorf("insert stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCreature(ctx context.Context, userID int64) (*models.Creature, error) {
	var c models.Creature
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, level, experience, created_at, updated_at
		 FROM creatures WHERE user_id = $1`,
		userID,
	).Scan(&c.UserID, &c.Name, &c.Level, &c.Experience, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get creature: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) GetStats(ctx context.Context, userID int64) (*models.CreatureStats, error) {
	var st models.CreatureStats
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, strength, dexterity, constitution, intelligence, wisdom, charisma,
		        stat_boost_points, updated_at
		 FROM creature_stats WHERE user_id = $1`,
		userID,
	).Scan(&st.UserID, &st.Strength, &st.Dexterity, &st.Constitution, &st.Intelligence,
		&st.Wisdom, &st.Charisma, &st.StatBoostPoints, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &st, nil
}

// AddExperience atomically increments experience and refreshes the
// denormalized level from the new total. The first UPDATE holds the row
// lock until commit, so the level write can't interleave with a concurrent
// grant.
func (s *PostgresStore) AddExperience(ctx context.Context, userID int64, xp int) (*models.Creature, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var c models.Creature
	err = tx.QueryRowContext(ctx,
		`UPDATE creatures
		 SET experience = experience + $1, updated_at = NOW()
		 WHERE user_id = $2
		 RETURNING user_id, name, level, experience, created_at, updated_at`,
		xp, userID,
	).Scan(&c.UserID, &c.Name, &c.Level, &c.Experience, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("add experience: %w", err)
	}

	if newLevel := progression.LevelFromXP(c.Experience); newLevel != c.Level {
		_, err = tx.ExecContext(ctx,
			`UPDATE creatures SET level = $1 WHERE user_id = $2`, newLevel, userID)
		if err != nil {
			return nil, fmt.Errorf("update level: %w", err)
		}
		c.Level = newLevel
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &c, nil
}

// SpendPoints converts boost points into a permanent stat increase in one
// conditional update. The balance predicate in the WHERE clause is the
// InsufficientPoints guard; losing it leaves both columns untouched.
func (s *PostgresStore) SpendPoints(ctx context.Context, userID int64, stat string, points int) (*models.SpendPointsResponse, error) {
	if !models.IsValidStat(stat) {
		return nil, models.ErrInvalidStat
	}

	// stat is from the validated whitelist above, never caller input.
	query := fmt.Sprintf(
		`UPDATE creature_stats
		 SET %s = %s + $1, stat_boost_points = stat_boost_points - $1, updated_at = NOW()
		 WHERE user_id = $2 AND stat_boost_points >= $1
		 RETURNING %s, stat_boost_points`, stat, stat, stat)

	var resp models.SpendPointsResponse
	resp.Stat = stat
	err := s.db.QueryRowContext(ctx, query, points, userID).
		Scan(&resp.NewStatValue, &resp.RemainingPoints)
	if err == sql.ErrNoRows {
		// Zero rows is either a missing stats row or too few points.
		if _, statsErr := s.GetStats(ctx, userID); statsErr != nil {
			return nil, statsErr
		}
		return nil, models.ErrInsufficientPoints
	}
	if err != nil {
		return nil, fmt.Errorf("spend points: %w", err)
	}
	return &resp, nil
}
