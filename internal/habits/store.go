package habits

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/habitquest/backend/internal/models"
)

// PostgresStore is the storage backend for habits, frequencies, streaks and
// the append-only completion log.
type PostgresStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateHabit(ctx context.Context, userID int64, req models.CreateHabitRequest) (*models.Habit, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var h models.Habit
	err = tx.QueryRowContext(ctx,
		`INSERT INTO habits (user_id, name, difficulty)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, name, difficulty, created_at, updated_at`,
		userID, req.Name, req.Difficulty,
	).Scan(&h.ID, &h.UserID, &h.Name, &h.Difficulty, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert habit: %w", err)
	}

	var f models.HabitFrequency
	var days pq.Int64Array
	err = tx.QueryRowContext(ctx,
		`INSERT INTO habit_frequencies (habit_id, kind, custom_days)
		 VALUES ($1, $2, $3)
		 RETURNING id, habit_id, kind, custom_days, created_at`,
		h.ID, req.Kind, weekdayArray(req.CustomDays),
	).Scan(&f.ID, &f.HabitID, &f.Kind, &days, &f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert frequency: %w", err)
	}
	f.CustomDays = intSlice(days)
	h.Frequency = f

	// Streak row exists for the habit's whole lifetime, starting at zero.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO habit_streaks (habit_id) VALUES ($1)`, h.ID)
	if err != nil {
		return nil, fmt.Errorf("insert streak: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &h, nil
}

const habitSelect = `
	SELECT h.id, h.user_id, h.name, h.difficulty, h.created_at, h.updated_at,
	       f.id, f.kind, f.custom_days, f.created_at
	FROM habits h
	JOIN LATERAL (
	    SELECT id, kind, custom_days, created_at
	    FROM habit_frequencies
	    WHERE habit_id = h.id
	    ORDER BY id DESC
	    LIMIT 1
	) f ON true`

func (s *PostgresStore) GetHabit(ctx context.Context, habitID, userID int64) (*models.Habit, error) {
	row := s.db.QueryRowContext(ctx,
		habitSelect+` WHERE h.id = $1 AND h.user_id = $2`, habitID, userID)

	h, err := scanHabit(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return h, nil
}

func (s *PostgresStore) ListHabits(ctx context.Context, userID int64) ([]models.Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		habitSelect+` WHERE h.user_id = $1 ORDER BY h.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	if habits == nil {
		habits = []models.Habit{}
	}
	return habits, rows.Err()
}

// ReplaceFrequency inserts a new frequency row; existing rows are never
// mutated, so completion history keeps the schedule it was earned under.
func (s *PostgresStore) ReplaceFrequency(ctx context.Context, habitID, userID int64, req models.UpdateFrequencyRequest) (*models.HabitFrequency, error) {
	var owner int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM habits WHERE id = $1 AND user_id = $2`,
		habitID, userID,
	).Scan(&owner)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check habit: %w", err)
	}

	var f models.HabitFrequency
	var days pq.Int64Array
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO habit_frequencies (habit_id, kind, custom_days)
		 VALUES ($1, $2, $3)
		 RETURNING id, habit_id, kind, custom_days, created_at`,
		habitID, req.Kind, weekdayArray(req.CustomDays),
	).Scan(&f.ID, &f.HabitID, &f.Kind, &days, &f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert frequency: %w", err)
	}
	f.CustomDays = intSlice(days)
	return &f, nil
}

func (s *PostgresStore) GetStreak(ctx context.Context, habitID int64) (*models.HabitStreak, error) {
	var st models.HabitStreak
	err := s.db.QueryRowContext(ctx,
		`SELECT habit_id, current_streak, longest_streak, last_completed_at, updated_at
		 FROM habit_streaks WHERE habit_id = $1`,
		habitID,
	).Scan(&st.HabitID, &st.CurrentStreak, &st.LongestStreak, &st.LastCompletedAt, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) UpdateStreak(ctx context.Context, st models.HabitStreak) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE habit_streaks SET
		    current_streak = $2, longest_streak = $3, last_completed_at = $4,
		    updated_at = NOW()
		 WHERE habit_id = $1`,
		st.HabitID, st.CurrentStreak, st.LongestStreak, st.LastCompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update streak: %w", err)
	}
	return nil
}

// InsertCompletion appends one completion row. It runs in its own
// transaction on purpose: the completion must be durable before the streak
// and XP updates happen, so a crash in between under-counts rather than
// fabricates.
func (s *PostgresStore) InsertCompletion(ctx context.Context, c *models.HabitCompletion) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO habit_completions (habit_id, user_id, completed_at, experience_earned, value)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		c.HabitID, c.UserID, c.CompletedAt, c.ExperienceEarned, c.Value,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListCompletions(ctx context.Context, habitID, userID int64, limit int) ([]models.HabitCompletion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, habit_id, user_id, completed_at, experience_earned, value
		 FROM habit_completions
		 WHERE habit_id = $1 AND user_id = $2
		 ORDER BY completed_at DESC
		 LIMIT $3`,
		habitID, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []models.HabitCompletion
	for rows.Next() {
		var c models.HabitCompletion
		if err := rows.Scan(&c.ID, &c.HabitID, &c.UserID, &c.CompletedAt, &c.ExperienceEarned, &c.Value); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, c)
	}
	if completions == nil {
		completions = []models.HabitCompletion{}
	}
	return completions, rows.Err()
}

// ── scan helpers ────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHabit(row rowScanner) (*models.Habit, error) {
	var h models.Habit
	var days pq.Int64Array
	err := row.Scan(
		&h.ID, &h.UserID, &h.Name, &h.Difficulty, &h.CreatedAt, &h.UpdatedAt,
		&h.Frequency.ID, &h.Frequency.Kind, &days, &h.Frequency.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	h.Frequency.HabitID = h.ID
	h.Frequency.CustomDays = intSlice(days)
	return &h, nil
}

func weekdayArray(days []int) pq.Int64Array {
	arr := make(pq.Int64Array, len(days))
	for i, d := range days {
		arr[i] = int64(d)
	}
	return arr
}

func intSlice(arr pq.Int64Array) []int {
	if len(arr) == 0 {
		return nil
	}
	out := make([]int, len(arr))
	for i, v := range arr {
		out[i] = int(v)
	}
	return out
}
