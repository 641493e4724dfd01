package habits

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/habitquest/backend/internal/metrics"
	"github.com/habitquest/backend/internal/models"
	"github.com/habitquest/backend/internal/progression"
)

// Store is the persistence surface the service needs. *PostgresStore
// implements it; tests use an in-memory fake.
type Store interface {
	CreateHabit(ctx context.Context, userID int64, req models.CreateHabitRequest) (*models.Habit, error)
	GetHabit(ctx context.Context, habitID, userID int64) (*models.Habit, error)
	ListHabits(ctx context.Context, userID int64) ([]models.Habit, error)
	ReplaceFrequency(ctx context.Context, habitID, userID int64, req models.UpdateFrequencyRequest) (*models.HabitFrequency, error)
	GetStreak(ctx context.Context, habitID int64) (*models.HabitStreak, error)
	UpdateStreak(ctx context.Context, st models.HabitStreak) error
	InsertCompletion(ctx context.Context, c *models.HabitCompletion) error
	ListCompletions(ctx context.Context, habitID, userID int64, limit int) ([]models.HabitCompletion, error)
}

// RewardApplier grants experience to the user's creature. Implemented by
// the creature service.
type RewardApplier interface {
	ApplyHabitXP(ctx context.Context, userID int64, xp int) (*models.XPGrant, error)
}

type Service struct {
	store   Store
	rewards RewardApplier
	now     func() time.Time
}

func NewService(store Store, rewards RewardApplier) *Service {
	return &Service{store: store, rewards: rewards, now: time.Now}
}

func (s *Service) CreateHabit(ctx context.Context, userID int64, req models.CreateHabitRequest) (*models.Habit, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrValidation)
	}
	if req.Difficulty == "" {
		req.Difficulty = models.DifficultyMedium
	}
	if !req.Difficulty.IsValid() {
		return nil, fmt.Errorf("%w: unknown difficulty %q", models.ErrValidation, req.Difficulty)
	}
	if err := validateFrequency(req.Kind, req.CustomDays); err != nil {
		return nil, err
	}
	return s.store.CreateHabit(ctx, userID, req)
}

func (s *Service) ListHabits(ctx context.Context, userID int64) ([]models.Habit, error) {
	return s.store.ListHabits(ctx, userID)
}

func (s *Service) UpdateFrequency(ctx context.Context, habitID, userID int64, req models.UpdateFrequencyRequest) (*models.HabitFrequency, error) {
	if err := validateFrequency(req.Kind, req.CustomDays); err != nil {
		return nil, err
	}
	return s.store.ReplaceFrequency(ctx, habitID, userID, req)
}

// StreakStatus is the read-only availability query used for display. It
// never mutates the streak row.
func (s *Service) StreakStatus(ctx context.Context, habitID, userID int64) (*models.StreakStatusResponse, error) {
	habit, err := s.store.GetHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}
	streak, err := s.store.GetStreak(ctx, habitID)
	if err != nil {
		return nil, err
	}

	status := EvaluateStreak(habit.Frequency, streak.LastCompletedAt, s.now())
	return &models.StreakStatusResponse{
		Active:        status.Active,
		Maintained:    status.Maintained,
		CurrentStreak: streak.CurrentStreak,
		LongestStreak: streak.LongestStreak,
		Message:       status.Message,
	}, nil
}

// RecordCompletion handles one habit completion event: evaluate continuity,
// compute the XP reward, durably append the completion row, then update the
// streak and grant XP. The completion row commits first so a crash midway
// can only under-count, never fabricate.
func (s *Service) RecordCompletion(ctx context.Context, habitID, userID int64) (*models.CompleteHabitResponse, error) {
	habit, err := s.store.GetHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}
	streak, err := s.store.GetStreak(ctx, habitID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := EvaluateStreak(habit.Frequency, streak.LastCompletedAt, now)
	if !status.Active {
		return nil, fmt.Errorf("%w: %s", models.ErrValidation, status.Message)
	}

	updated := AdvanceStreak(*streak, status.Maintained, now)
	xp := progression.HabitCompletionXP(habit.Difficulty, updated.CurrentStreak, 1.0)

	completion := &models.HabitCompletion{
		HabitID:          habitID,
		UserID:           userID,
		CompletedAt:      now,
		ExperienceEarned: xp,
		Value:            1,
	}
	if err := s.store.InsertCompletion(ctx, completion); err != nil {
		return nil, err
	}

	if err := s.store.UpdateStreak(ctx, updated); err != nil {
		// The completion row is already durable; the streak effect is lost
		// until the next completion. Acceptable failure direction.
		log.Printf("[habits] completion %d recorded but streak update failed: %v", completion.ID, err)
		return nil, err
	}

	grant, err := s.rewards.ApplyHabitXP(ctx, userID, xp)
	if err != nil {
		log.Printf("[habits] completion %d recorded but XP grant failed: %v", completion.ID, err)
		return nil, err
	}
	metrics.HabitCompletions.Inc()
	metrics.ExperienceGranted.Add(float64(xp))

	resp := &models.CompleteHabitResponse{
		ExperienceEarned: xp,
		NewLevel:         grant.NewLevel,
		LeveledUp:        grant.LeveledUp,
		StreakUpdate: models.StreakUpdate{
			CurrentStreak: updated.CurrentStreak,
			LongestStreak: updated.LongestStreak,
			Maintained:    status.Maintained,
		},
	}
	if habit.Frequency.Kind == models.FrequencyWeekly {
		resp.StreakUpdate.WeeksInStreak = WeeksInStreak(updated.CurrentStreak)
	}
	return resp, nil
}

func (s *Service) CompletionHistory(ctx context.Context, habitID, userID int64, limit int) ([]models.HabitCompletion, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	return s.store.ListCompletions(ctx, habitID, userID, limit)
}

func validateFrequency(kind models.FrequencyKind, customDays []int) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: unknown frequency %q", models.ErrValidation, kind)
	}
	if kind == models.FrequencyCustom {
		if len(customDays) == 0 {
			return fmt.Errorf("%w: custom frequency needs at least one weekday", models.ErrValidation)
		}
		for _, d := range customDays {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: weekday %d out of range", models.ErrValidation, d)
			}
		}
	}
	return nil
}
