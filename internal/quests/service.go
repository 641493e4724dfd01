package quests

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/habitquest/backend/internal/metrics"
	"github.com/habitquest/backend/internal/models"
	"github.com/habitquest/backend/internal/progression"
)

const (
	questionsPerQuest  = 5
	baseCompletionExp  = 50
	bonusCompletionExp = 100
	bonusCorrectCount  = 3
)

// Store is the persistence surface the service needs. *PostgresStore
// implements it; tests use an in-memory fake.
type Store interface {
	GetDailyQuest(ctx context.Context, userID int64, date time.Time) (*models.QuestInstance, error)
	// CreateDailyQuest inserts the instance plus its question rows. Returns
	// false without error when another request already created the day's
	// instance (the uniqueness constraint decides the winner).
	CreateDailyQuest(ctx context.Context, inst *models.QuestInstance, questions []models.QuestQuestion) (bool, error)
	GetInstance(ctx context.Context, questID, userID int64) (*models.QuestInstance, error)
	GetQuestions(ctx context.Context, questID int64) ([]models.QuestQuestion, error)
	GetQuestion(ctx context.Context, questID, questionID int64) (*models.QuestQuestion, error)
	AnsweredQuestionIDs(ctx context.Context, questID int64) (map[int64]bool, error)
	// Activate flips available → active. Returns false when the conditional
	// update matched no row.
	Activate(ctx context.Context, questID, userID int64, at time.Time) (bool, error)
	// RecordAnswer persists the answer, advances the question pointer and
	// counters, and — when completion is non-nil — finalizes the quest and
	// applies the creature rewards, all in one transaction.
	RecordAnswer(ctx context.Context, ans *models.QuestAnswer, expectedPointer int, completion *CompletionUpdate) error
	DeleteDailyQuest(ctx context.Context, userID int64, date time.Time) error
	CountTemplates(ctx context.Context) (int, error)
	TemplateAt(ctx context.Context, offset int) (*models.QuestTemplate, error)
	SaveTemplates(ctx context.Context, templates []models.QuestTemplate) (int, error)
}

// CreatureSource exposes the creature aggregate the quest engine reads.
// Implemented by the creature service.
type CreatureSource interface {
	GetStats(ctx context.Context, userID int64) (*models.CreatureStats, error)
	GetCreature(ctx context.Context, userID int64) (*models.Creature, error)
}

// CompletionUpdate carries the finalization writes RecordAnswer applies when
// the fifth answer lands.
type CompletionUpdate struct {
	CompletedAt     time.Time
	ExperienceDelta int
	NewLevel        int
	BoostPoints     int
}

// fallbackTemplate is used when the template table is empty, so a fresh
// deployment can hand out quests before any seeding or generation has run.
var fallbackTemplate = models.QuestTemplate{
	Title:       "The Daily Trial",
	Description: "Five challenges stand between you and the day's reward.",
	Narrative:   "The road out of the village offers no shortage of trouble today. Face each challenge as it comes.",
}

type Service struct {
	store     Store
	creatures CreatureSource
	now       func() time.Time

	randMu sync.Mutex
	rng    Rand
}

func NewService(store Store, creatures CreatureSource, rng *rand.Rand) *Service {
	return &Service{store: store, creatures: creatures, now: time.Now, rng: rng}
}

// GetOrCreateDailyQuest returns today's quest instance for the user, creating
// it on first request. Concurrent first requests race on the (user, date)
// uniqueness constraint; the loser re-reads the winner's row.
func (s *Service) GetOrCreateDailyQuest(ctx context.Context, userID int64) (*models.QuestInstance, error) {
	date := questDate(s.now())

	inst, err := s.store.GetDailyQuest(ctx, userID, date)
	if err == nil {
		return inst, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	stats, err := s.creatures.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	tmpl, err := s.pickTemplate(ctx)
	if err != nil {
		return nil, err
	}

	s.randMu.Lock()
	questions := generateQuestions(s.rng, *stats, questionsPerQuest)
	s.randMu.Unlock()

	inst = &models.QuestInstance{
		UserID:         userID,
		QuestDate:      date,
		Title:          tmpl.Title,
		Description:    tmpl.Description,
		Narrative:      tmpl.Narrative,
		Status:         models.QuestAvailable,
		TotalQuestions: questionsPerQuest,
	}
	if tmpl.ID != 0 {
		inst.TemplateID = &tmpl.ID
	}

	created, err := s.store.CreateDailyQuest(ctx, inst, questions)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost the race; the winner's instance is the day's instance.
		return s.store.GetDailyQuest(ctx, userID, date)
	}
	return inst, nil
}

// ActivateQuest transitions available → active and returns the first
// question. The conditional update is the concurrency guard: of two
// concurrent activations, exactly one sees a row flip.
func (s *Service) ActivateQuest(ctx context.Context, questID, userID int64) (*models.ActivateQuestResponse, error) {
	flipped, err := s.store.Activate(ctx, questID, userID, s.now())
	if err != nil {
		return nil, err
	}
	if !flipped {
		// Distinguish "no such quest" from "not available" with a re-read.
		inst, err := s.store.GetInstance(ctx, questID, userID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: quest is %s", models.ErrInvalidState, inst.Status)
	}

	inst, err := s.store.GetInstance(ctx, questID, userID)
	if err != nil {
		return nil, err
	}
	questions, err := s.store.GetQuestions(ctx, questID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("quest %d has no questions", questID)
	}

	return &models.ActivateQuestResponse{
		Quest:         *inst,
		FirstQuestion: questions[0].View(false),
	}, nil
}

// AnswerQuestion validates ownership, state, membership, sequence and
// uniqueness in that order, then records the answer. The fifth answer
// finalizes the quest in the same transaction and returns rewards inline.
func (s *Service) AnswerQuestion(ctx context.Context, questID, userID int64, req models.AnswerQuestionRequest) (*models.AnswerQuestionResponse, error) {
	choice := strings.ToUpper(strings.TrimSpace(req.Choice))
	if choice != "A" && choice != "B" {
		return nil, fmt.Errorf("%w: choice must be A or B", models.ErrValidation)
	}

	inst, err := s.store.GetInstance(ctx, questID, userID)
	if err != nil {
		return nil, err
	}
	if inst.Status != models.QuestActive {
		return nil, fmt.Errorf("%w: quest is %s", models.ErrInvalidState, inst.Status)
	}

	question, err := s.store.GetQuestion(ctx, questID, req.QuestionID)
	if err != nil {
		return nil, err
	}

	if question.QuestionNumber != inst.CurrentQuestion+1 {
		answered, err := s.store.AnsweredQuestionIDs(ctx, questID)
		if err != nil {
			return nil, err
		}
		if answered[question.ID] {
			return nil, models.ErrAlreadyAnswered
		}
		return nil, fmt.Errorf("%w: question %d is next, got %d",
			models.ErrSequenceViolation, inst.CurrentQuestion+1, question.QuestionNumber)
	}

	stats, err := s.creatures.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	// The stat check reads the current stat value against the threshold
	// frozen at generation, and is independent of answer correctness.
	wasCorrect := choice == question.CorrectChoice
	passedCheck := stats.Value(question.RequiredStat) >= question.DifficultyThreshold

	now := s.now()
	answer := &models.QuestAnswer{
		QuestInstanceID: questID,
		QuestionID:      question.ID,
		UserChoice:      choice,
		WasCorrect:      wasCorrect,
		PassedStatCheck: passedCheck,
		AnsweredAt:      now,
	}

	correctTotal := inst.CorrectAnswers
	if wasCorrect {
		correctTotal++
	}
	checksTotal := inst.StatChecksPassed
	if passedCheck {
		checksTotal++
	}

	isLast := inst.CurrentQuestion+1 == inst.TotalQuestions

	var completion *CompletionUpdate
	var rewards *models.QuestRewards
	if isLast {
		exp := baseCompletionExp
		if correctTotal >= bonusCorrectCount {
			exp += bonusCompletionExp
		}
		points := 0
		if correctTotal >= bonusCorrectCount {
			points++
		}
		if checksTotal >= inst.TotalQuestions {
			points++
		}

		creature, err := s.creatures.GetCreature(ctx, userID)
		if err != nil {
			return nil, err
		}
		newLevel := progression.LevelFromXP(creature.Experience + int64(exp))

		completion = &CompletionUpdate{
			CompletedAt:     now,
			ExperienceDelta: exp,
			NewLevel:        newLevel,
			BoostPoints:     points,
		}
		rewards = &models.QuestRewards{
			Experience:      exp,
			StatBoostPoints: points,
			NewLevel:        newLevel,
			LeveledUp:       newLevel > creature.Level,
		}
	}

	if err := s.store.RecordAnswer(ctx, answer, inst.CurrentQuestion, completion); err != nil {
		return nil, err
	}
	if isLast {
		metrics.QuestCompletions.Inc()
		metrics.ExperienceGranted.Add(float64(rewards.Experience))
		log.Printf("[quests] user %d completed quest %d: %d/%d correct, %d checks, +%d xp, +%d points",
			userID, questID, correctTotal, inst.TotalQuestions, checksTotal,
			rewards.Experience, rewards.StatBoostPoints)
	}

	resp := &models.AnswerQuestionResponse{
		Correct:         wasCorrect,
		PassedStatCheck: passedCheck,
		QuestComplete:   isLast,
		Rewards:         rewards,
	}
	if !isLast {
		next, err := s.questionAt(ctx, questID, question.QuestionNumber+1)
		if err != nil {
			return nil, err
		}
		resp.NextQuestion = next
	}
	return resp, nil
}

// GetQuestProgress returns the full question list with answered flags. The
// projection never includes answer keys or thresholds.
func (s *Service) GetQuestProgress(ctx context.Context, questID, userID int64) (*models.QuestProgressResponse, error) {
	inst, err := s.store.GetInstance(ctx, questID, userID)
	if err != nil {
		return nil, err
	}
	questions, err := s.store.GetQuestions(ctx, questID)
	if err != nil {
		return nil, err
	}
	answered, err := s.store.AnsweredQuestionIDs(ctx, questID)
	if err != nil {
		return nil, err
	}

	views := make([]models.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, q.View(answered[q.ID]))
	}

	return &models.QuestProgressResponse{
		QuestID:          inst.ID,
		Status:           inst.Status,
		CurrentQuestion:  inst.CurrentQuestion,
		TotalQuestions:   inst.TotalQuestions,
		CorrectAnswers:   inst.CorrectAnswers,
		StatChecksPassed: inst.StatChecksPassed,
		Questions:        views,
	}, nil
}

// ResetDailyQuest deletes today's instance and everything under it. The
// cascade is the only backward path through the state machine, and the
// handler for it is only registered in dev environments.
func (s *Service) ResetDailyQuest(ctx context.Context, userID int64) error {
	return s.store.DeleteDailyQuest(ctx, userID, questDate(s.now()))
}

// ImportTemplates stores generated narrative templates, skipping duplicates.
func (s *Service) ImportTemplates(ctx context.Context, templates []models.QuestTemplate) (int, error) {
	for i := range templates {
		if templates[i].Title == "" || templates[i].Narrative == "" {
			return 0, fmt.Errorf("%w: template %d missing title or narrative", models.ErrValidation, i)
		}
		if templates[i].Source == "" {
			templates[i].Source = "generated"
		}
	}
	return s.store.SaveTemplates(ctx, templates)
}

func (s *Service) pickTemplate(ctx context.Context) (*models.QuestTemplate, error) {
	count, err := s.store.CountTemplates(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		tmpl := fallbackTemplate
		return &tmpl, nil
	}
	s.randMu.Lock()
	offset := s.rng.Intn(count)
	s.randMu.Unlock()
	return s.store.TemplateAt(ctx, offset)
}

func (s *Service) questionAt(ctx context.Context, questID int64, number int) (*models.QuestionView, error) {
	questions, err := s.store.GetQuestions(ctx, questID)
	if err != nil {
		return nil, err
	}
	for _, q := range questions {
		if q.QuestionNumber == number {
			view := q.View(false)
			return &view, nil
		}
	}
	return nil, fmt.Errorf("quest %d has no question %d", questID, number)
}

// questDate normalizes a timestamp to its UTC calendar day.
func questDate(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
