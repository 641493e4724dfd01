package creature

import (
	"context"
	"fmt"
	"log"

	"github.com/habitquest/backend/internal/models"
	"github.com/habitquest/backend/internal/progression"
)

// DefaultName is given to creatures hatched at registration.
const DefaultName = "Sprig"

// Store is the persistence surface the service needs. *PostgresStore
// implements it; tests use an in-memory fake.
type Store interface {
	EnsureCreature(ctx context.Context, userID int64, name string) error
	GetCreature(ctx context.Context, userID int64) (*models.Creature, error)
	GetStats(ctx context.Context, userID int64) (*models.CreatureStats, error)
	AddExperience(ctx context.Context, userID int64, xp int) (*models.Creature, error)
	SpendPoints(ctx context.Context, userID int64, stat string, points int) (*models.SpendPointsResponse, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// EnsureForUser hatches the user's creature if it doesn't exist yet.
// Called on registration; idempotent.
func (s *Service) EnsureForUser(ctx context.Context, userID int64) error {
	return s.store.EnsureCreature(ctx, userID, DefaultName)
}

// Overview is the full client payload: creature, stats, level progress.
func (s *Service) Overview(ctx context.Context, userID int64) (*models.CreatureResponse, error) {
	c, err := s.store.GetCreature(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.CreatureResponse{
		Creature: *c,
		Stats:    *stats,
		Progress: progression.LevelProgress(c.Experience),
	}, nil
}

// GetStats and GetCreature satisfy the quest engine's read interface.
func (s *Service) GetStats(ctx context.Context, userID int64) (*models.CreatureStats, error) {
	return s.store.GetStats(ctx, userID)
}

func (s *Service) GetCreature(ctx context.Context, userID int64) (*models.Creature, error) {
	return s.store.GetCreature(ctx, userID)
}

// ApplyHabitXP grants habit-completion experience to the creature and
// reports whether the grant crossed a level boundary.
func (s *Service) ApplyHabitXP(ctx context.Context, userID int64, xp int) (*models.XPGrant, error) {
	if xp < 0 {
		return nil, fmt.Errorf("%w: negative experience grant", models.ErrValidation)
	}

	c, err := s.store.AddExperience(ctx, userID, xp)
	if err != nil {
		return nil, err
	}

	levelBefore := progression.LevelFromXP(c.Experience - int64(xp))
	if c.Level > levelBefore {
		log.Printf("[creature] user %d leveled up to %d (%d xp)", userID, c.Level, c.Experience)
	}
	return &models.XPGrant{
		Experience: xp,
		TotalXP:    c.Experience,
		NewLevel:   c.Level,
		LeveledUp:  c.Level > levelBefore,
	}, nil
}

// SpendStatBoostPoints converts earned boost points into a permanent stat
// increase. Validation order: amount, stat name, then the balance check
// inside the store's conditional update.
func (s *Service) SpendStatBoostPoints(ctx context.Context, userID int64, req models.SpendPointsRequest) (*models.SpendPointsResponse, error) {
	if req.Points <= 0 {
		return nil, fmt.Errorf("%w: points must be a positive integer", models.ErrValidation)
	}
	if !models.IsValidStat(req.Stat) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStat, req.Stat)
	}
	return s.store.SpendPoints(ctx, userID, req.Stat, req.Points)
}
