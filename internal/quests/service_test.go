package quests

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/habitquest/backend/internal/models"
)

// fakeCreatures backs the CreatureSource interface and receives the reward
// writes the fake store applies on completion.
type fakeCreatures struct {
	creature models.Creature
	stats    models.CreatureStats
}

func (f *fakeCreatures) GetStats(_ context.Context, userID int64) (*models.CreatureStats, error) {
	s := f.stats
	return &s, nil
}

func (f *fakeCreatures) GetCreature(_ context.Context, userID int64) (*models.Creature, error) {
	c := f.creature
	return &c, nil
}

// fakeStore is an in-memory Store that mimics the database's uniqueness and
// conditional-update behavior.
type fakeStore struct {
	instances map[int64]*models.QuestInstance
	questions map[int64][]models.QuestQuestion
	answers   map[int64]map[int64]models.QuestAnswer
	templates []models.QuestTemplate
	creatures *fakeCreatures
	nextID    int64
}

func newFakeStore(creatures *fakeCreatures) *fakeStore {
	return &fakeStore{
		instances: make(map[int64]*models.QuestInstance),
		questions: make(map[int64][]models.QuestQuestion),
		answers:   make(map[int64]map[int64]models.QuestAnswer),
		creatures: creatures,
		nextID:    1,
	}
}

func (f *fakeStore) id() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeStore) GetDailyQuest(_ context.Context, userID int64, date time.Time) (*models.QuestInstance, error) {
	for _, inst := range f.instances {
		if inst.UserID == userID && inst.QuestDate.Equal(date) {
			copied := *inst
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStore) CreateDailyQuest(_ context.Context, inst *models.QuestInstance, questions []models.QuestQuestion) (bool, error) {
	for _, existing := range f.instances {
		if existing.UserID == inst.UserID && existing.QuestDate.Equal(inst.QuestDate) {
			return false, nil
		}
	}
	inst.ID = f.id()
	inst.CreatedAt = time.Now()
	copied := *inst
	f.instances[inst.ID] = &copied
	for i := range questions {
		questions[i].ID = f.id()
		questions[i].QuestInstanceID = inst.ID
	}
	f.questions[inst.ID] = questions
	f.answers[inst.ID] = make(map[int64]models.QuestAnswer)
	return true, nil
}

func (f *fakeStore) GetInstance(_ context.Context, questID, userID int64) (*models.QuestInstance, error) {
	inst, ok := f.instances[questID]
	if !ok || inst.UserID != userID {
		return nil, models.ErrNotFound
	}
	copied := *inst
	return &copied, nil
}

func (f *fakeStore) GetQuestions(_ context.Context, questID int64) ([]models.QuestQuestion, error) {
	return f.questions[questID], nil
}

func (f *fakeStore) GetQuestion(_ context.Context, questID, questionID int64) (*models.QuestQuestion, error) {
	for _, q := range f.questions[questID] {
		if q.ID == questionID {
			copied := q
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStore) AnsweredQuestionIDs(_ context.Context, questID int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	for qid := range f.answers[questID] {
		out[qid] = true
	}
	return out, nil
}

func (f *fakeStore) Activate(_ context.Context, questID, userID int64, at time.Time) (bool, error) {
	inst, ok := f.instances[questID]
	if !ok || inst.UserID != userID || inst.Status != models.QuestAvailable {
		return false, nil
	}
	inst.Status = models.QuestActive
	inst.ActivatedAt = &at
	return true, nil
}

func (f *fakeStore) RecordAnswer(_ context.Context, ans *models.QuestAnswer, expectedPointer int, completion *CompletionUpdate) error {
	inst, ok := f.instances[ans.QuestInstanceID]
	if !ok {
		return models.ErrNotFound
	}
	if _, dup := f.answers[ans.QuestInstanceID][ans.QuestionID]; dup {
		return models.ErrAlreadyAnswered
	}
	if inst.Status != models.QuestActive || inst.CurrentQuestion != expectedPointer {
		return fmt.Errorf("%w: quest pointer moved", models.ErrSequenceViolation)
	}

	ans.ID = f.id()
	f.answers[ans.QuestInstanceID][ans.QuestionID] = *ans
	inst.CurrentQuestion++
	if ans.WasCorrect {
		inst.CorrectAnswers++
	}
	if ans.PassedStatCheck {
		inst.StatChecksPassed++
	}

	if completion != nil {
		inst.Status = models.QuestCompleted
		inst.CompletedAt = &completion.CompletedAt
		f.creatures.creature.Experience += int64(completion.ExperienceDelta)
		f.creatures.creature.Level = completion.NewLevel
		f.creatures.stats.StatBoostPoints += completion.BoostPoints
	}
	return nil
}

func (f *fakeStore) DeleteDailyQuest(_ context.Context, userID int64, date time.Time) error {
	for id, inst := range f.instances {
		if inst.UserID == userID && inst.QuestDate.Equal(date) {
			delete(f.instances, id)
			delete(f.questions, id)
			delete(f.answers, id)
			return nil
		}
	}
	return models.ErrNotFound
}

func (f *fakeStore) CountTemplates(_ context.Context) (int, error) {
	return len(f.templates), nil
}

func (f *fakeStore) TemplateAt(_ context.Context, offset int) (*models.QuestTemplate, error) {
	if offset < 0 || offset >= len(f.templates) {
		return nil, models.ErrNotFound
	}
	t := f.templates[offset]
	return &t, nil
}

func (f *fakeStore) SaveTemplates(_ context.Context, templates []models.QuestTemplate) (int, error) {
	saved := 0
	for _, t := range templates {
		dup := false
		for _, existing := range f.templates {
			if existing.Title == t.Title {
				dup = true
				break
			}
		}
		if !dup {
			t.ID = f.id()
			f.templates = append(f.templates, t)
			saved++
		}
	}
	return saved, nil
}

// ── test setup ──────────────────────────────────────────

const testUserID = int64(7)

func newTestSetup() (*Service, *fakeStore, *fakeCreatures) {
	creatures := &fakeCreatures{
		creature: models.Creature{UserID: testUserID, Name: "Ember", Level: 1},
		stats: models.CreatureStats{
			UserID: testUserID, Strength: 5, Dexterity: 5, Constitution: 5,
			Intelligence: 5, Wisdom: 5, Charisma: 5,
		},
	}
	store := newFakeStore(creatures)
	svc := NewService(store, creatures, rand.New(rand.NewSource(1)))
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc, store, creatures
}

// activeQuest creates and activates a quest with hand-built questions so the
// answer key and thresholds are under test control.
func activeQuest(t *testing.T, svc *Service, store *fakeStore, thresholds []int) (*models.QuestInstance, []models.QuestQuestion) {
	t.Helper()

	questions := make([]models.QuestQuestion, 5)
	for i := range questions {
		questions[i] = models.QuestQuestion{
			QuestionNumber:      i + 1,
			Prompt:              "test prompt",
			ChoiceA:             "left",
			ChoiceB:             "right",
			CorrectChoice:       "A",
			RequiredStat:        models.StatNames[i],
			DifficultyThreshold: thresholds[i],
		}
	}
	inst := &models.QuestInstance{
		UserID:         testUserID,
		QuestDate:      questDate(svc.now()),
		Title:          "test quest",
		Status:         models.QuestAvailable,
		TotalQuestions: 5,
	}
	created, err := store.CreateDailyQuest(context.Background(), inst, questions)
	if err != nil || !created {
		t.Fatalf("create quest: created=%v err=%v", created, err)
	}
	if _, err := svc.ActivateQuest(context.Background(), inst.ID, testUserID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return inst, store.questions[inst.ID]
}

func answer(t *testing.T, svc *Service, questID, questionID int64, choice string) *models.AnswerQuestionResponse {
	t.Helper()
	resp, err := svc.AnswerQuestion(context.Background(), questID, testUserID,
		models.AnswerQuestionRequest{QuestionID: questionID, Choice: choice})
	if err != nil {
		t.Fatalf("answer question %d: %v", questionID, err)
	}
	return resp
}

// ── tests ───────────────────────────────────────────────

func TestGetOrCreateDailyQuestIdempotent(t *testing.T) {
	svc, store, _ := newTestSetup()
	ctx := context.Background()

	first, err := svc.GetOrCreateDailyQuest(ctx, testUserID)
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != models.QuestAvailable {
		t.Errorf("status = %s, want available", first.Status)
	}
	if len(store.questions[first.ID]) != 5 {
		t.Errorf("question count = %d, want 5", len(store.questions[first.ID]))
	}

	second, err := svc.GetOrCreateDailyQuest(ctx, testUserID)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("second call created a new instance: %d != %d", second.ID, first.ID)
	}
	if len(store.instances) != 1 {
		t.Errorf("instance count = %d, want 1", len(store.instances))
	}
}

func TestGetOrCreateDailyQuestUsesTemplate(t *testing.T) {
	svc, store, _ := newTestSetup()
	store.templates = []models.QuestTemplate{
		{ID: 100, Title: "The Broken Bridge", Description: "d", Narrative: "n", Source: "seed"},
	}

	quest, err := svc.GetOrCreateDailyQuest(context.Background(), testUserID)
	if err != nil {
		t.Fatal(err)
	}
	if quest.Title != "The Broken Bridge" {
		t.Errorf("title = %q, want template title", quest.Title)
	}
	if quest.TemplateID == nil || *quest.TemplateID != 100 {
		t.Errorf("template id = %v, want 100", quest.TemplateID)
	}
}

func TestActivateQuest(t *testing.T) {
	svc, _, _ := newTestSetup()
	ctx := context.Background()

	quest, err := svc.GetOrCreateDailyQuest(ctx, testUserID)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := svc.ActivateQuest(ctx, quest.ID, testUserID)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Quest.Status != models.QuestActive {
		t.Errorf("status = %s, want active", resp.Quest.Status)
	}
	if resp.Quest.ActivatedAt == nil {
		t.Error("activated_at not stamped")
	}
	if resp.FirstQuestion.QuestionNumber != 1 {
		t.Errorf("first question number = %d, want 1", resp.FirstQuestion.QuestionNumber)
	}

	// Second activation loses the conditional update.
	if _, err := svc.ActivateQuest(ctx, quest.ID, testUserID); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("re-activate err = %v, want ErrInvalidState", err)
	}

	// Unknown quest and foreign quest both read as not found.
	if _, err := svc.ActivateQuest(ctx, 9999, testUserID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown quest err = %v, want ErrNotFound", err)
	}
	if _, err := svc.ActivateQuest(ctx, quest.ID, 99); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("foreign quest err = %v, want ErrNotFound", err)
	}
}

func TestAnswerQuestionRequiresActive(t *testing.T) {
	svc, _, _ := newTestSetup()
	ctx := context.Background()

	quest, err := svc.GetOrCreateDailyQuest(ctx, testUserID)
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.AnswerQuestion(ctx, quest.ID, testUserID,
		models.AnswerQuestionRequest{QuestionID: 1, Choice: "A"})
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState before activation", err)
	}
}

func TestAnswerQuestionSequenceViolation(t *testing.T) {
	svc, store, _ := newTestSetup()
	quest, questions := activeQuest(t, svc, store, []int{1, 1, 1, 1, 1})

	_, err := svc.AnswerQuestion(context.Background(), quest.ID, testUserID,
		models.AnswerQuestionRequest{QuestionID: questions[2].ID, Choice: "A"})
	if !errors.Is(err, models.ErrSequenceViolation) {
		t.Errorf("err = %v, want ErrSequenceViolation for question 3 first", err)
	}
	if len(store.answers[quest.ID]) != 0 {
		t.Error("no answer row should persist after a sequence violation")
	}
}

func TestAnswerQuestionDuplicate(t *testing.T) {
	svc, store, _ := newTestSetup()
	quest, questions := activeQuest(t, svc, store, []int{1, 1, 1, 1, 1})
	ctx := context.Background()

	answer(t, svc, quest.ID, questions[0].ID, "A")

	_, err := svc.AnswerQuestion(ctx, quest.ID, testUserID,
		models.AnswerQuestionRequest{QuestionID: questions[0].ID, Choice: "B"})
	if !errors.Is(err, models.ErrAlreadyAnswered) {
		t.Errorf("err = %v, want ErrAlreadyAnswered", err)
	}
	if len(store.answers[quest.ID]) != 1 {
		t.Errorf("answer rows = %d, want exactly 1", len(store.answers[quest.ID]))
	}
	if store.answers[quest.ID][questions[0].ID].UserChoice != "A" {
		t.Error("original answer must survive the duplicate submission")
	}
}

func TestAnswerQuestionInvalidChoice(t *testing.T) {
	svc, store, _ := newTestSetup()
	quest, questions := activeQuest(t, svc, store, []int{1, 1, 1, 1, 1})

	for _, choice := range []string{"", "C", "AB", "1"} {
		_, err := svc.AnswerQuestion(context.Background(), quest.ID, testUserID,
			models.AnswerQuestionRequest{QuestionID: questions[0].ID, Choice: choice})
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("choice %q: err = %v, want ErrValidation", choice, err)
		}
	}

	// Lowercase is accepted and normalized.
	resp := answer(t, svc, quest.ID, questions[0].ID, "a")
	if !resp.Correct {
		t.Error("lowercase 'a' should match correct choice A")
	}
}

func TestQuestRewardsTwoCorrect(t *testing.T) {
	svc, store, creatures := newTestSetup()
	// Thresholds above every stat so no stat check can pass.
	quest, questions := activeQuest(t, svc, store, []int{99, 99, 99, 99, 99})

	choices := []string{"A", "A", "B", "B", "B"} // 2 correct
	var last *models.AnswerQuestionResponse
	for i, q := range questions {
		last = answer(t, svc, quest.ID, q.ID, choices[i])
	}

	if !last.QuestComplete || last.Rewards == nil {
		t.Fatal("fifth answer must complete the quest with rewards")
	}
	if last.Rewards.Experience != 50 {
		t.Errorf("experience = %d, want 50 for 2 correct", last.Rewards.Experience)
	}
	if last.Rewards.StatBoostPoints != 0 {
		t.Errorf("boost points = %d, want 0 for 2 correct", last.Rewards.StatBoostPoints)
	}
	if creatures.creature.Experience != 50 {
		t.Errorf("creature xp = %d, want 50", creatures.creature.Experience)
	}
	if creatures.stats.StatBoostPoints != 0 {
		t.Errorf("creature points = %d, want 0", creatures.stats.StatBoostPoints)
	}
}

func TestQuestRewardsThreeCorrectAllChecks(t *testing.T) {
	svc, store, _ := newTestSetup()
	// Thresholds at 1 against stats of 5: every stat check passes.
	quest, questions := activeQuest(t, svc, store, []int{1, 1, 1, 1, 1})

	choices := []string{"A", "A", "A", "B", "B"} // 3 correct
	var last *models.AnswerQuestionResponse
	for i, q := range questions {
		last = answer(t, svc, quest.ID, q.ID, choices[i])
	}

	if last.Rewards.Experience != 150 {
		t.Errorf("experience = %d, want 150 for 3 correct", last.Rewards.Experience)
	}
	if last.Rewards.StatBoostPoints != 2 {
		t.Errorf("boost points = %d, want 2 for 3 correct + 5 checks", last.Rewards.StatBoostPoints)
	}
}

func TestQuestEndToEndPerfectRun(t *testing.T) {
	svc, store, creatures := newTestSetup()
	quest, questions := activeQuest(t, svc, store, []int{1, 1, 1, 1, 1})

	for i, q := range questions {
		resp := answer(t, svc, quest.ID, q.ID, "A")
		if !resp.Correct || !resp.PassedStatCheck {
			t.Fatalf("question %d: correct=%v passed=%v, want both true", i+1, resp.Correct, resp.PassedStatCheck)
		}
		if i < 4 {
			if resp.QuestComplete {
				t.Fatalf("question %d: quest complete too early", i+1)
			}
			if resp.NextQuestion == nil || resp.NextQuestion.QuestionNumber != i+2 {
				t.Fatalf("question %d: next question = %+v, want number %d", i+1, resp.NextQuestion, i+2)
			}
		} else {
			if !resp.QuestComplete || resp.NextQuestion != nil {
				t.Fatal("fifth answer must complete with no next question")
			}
		}
	}

	final := store.instances[quest.ID]
	if final.Status != models.QuestCompleted {
		t.Errorf("status = %s, want completed", final.Status)
	}
	if final.CorrectAnswers != 5 || final.StatChecksPassed != 5 {
		t.Errorf("counters = %d/%d, want 5/5", final.CorrectAnswers, final.StatChecksPassed)
	}
	if final.CompletedAt == nil {
		t.Error("completed_at not stamped")
	}
	if creatures.creature.Experience != 150 {
		t.Errorf("creature xp = %d, want exactly 150", creatures.creature.Experience)
	}
	if creatures.stats.StatBoostPoints != 2 {
		t.Errorf("boost points = %d, want 2", creatures.stats.StatBoostPoints)
	}
}

func TestGetQuestProgress(t *testing.T) {
	svc, store, _ := newTestSetup()
	quest, questions := activeQuest(t, svc, store, []int{1, 1, 1, 1, 1})
	ctx := context.Background()

	answer(t, svc, quest.ID, questions[0].ID, "A")
	answer(t, svc, quest.ID, questions[1].ID, "B")

	progress, err := svc.GetQuestProgress(ctx, quest.ID, testUserID)
	if err != nil {
		t.Fatal(err)
	}
	if progress.CurrentQuestion != 2 {
		t.Errorf("current question = %d, want 2", progress.CurrentQuestion)
	}
	if progress.CorrectAnswers != 1 {
		t.Errorf("correct = %d, want 1", progress.CorrectAnswers)
	}
	if len(progress.Questions) != 5 {
		t.Fatalf("questions = %d, want 5", len(progress.Questions))
	}
	for i, view := range progress.Questions {
		wantAnswered := i < 2
		if view.Answered != wantAnswered {
			t.Errorf("question %d answered = %v, want %v", i+1, view.Answered, wantAnswered)
		}
	}
}

func TestResetDailyQuest(t *testing.T) {
	svc, store, _ := newTestSetup()
	ctx := context.Background()

	quest, err := svc.GetOrCreateDailyQuest(ctx, testUserID)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.ResetDailyQuest(ctx, testUserID); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.instances[quest.ID]; ok {
		t.Error("instance should be deleted")
	}
	if _, ok := store.questions[quest.ID]; ok {
		t.Error("questions should cascade")
	}

	// A fresh quest can be created after the reset.
	again, err := svc.GetOrCreateDailyQuest(ctx, testUserID)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID == quest.ID {
		t.Error("reset should allow a new instance")
	}
}

func TestImportTemplates(t *testing.T) {
	svc, store, _ := newTestSetup()
	ctx := context.Background()

	n, err := svc.ImportTemplates(ctx, []models.QuestTemplate{
		{Title: "The Broken Bridge", Description: "d", Narrative: "n"},
		{Title: "The Broken Bridge", Description: "d", Narrative: "n"},
		{Title: "The Sunken Bell", Description: "d", Narrative: "n"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("saved = %d, want 2 with duplicate title skipped", n)
	}
	for _, tmpl := range store.templates {
		if tmpl.Source != "generated" {
			t.Errorf("source = %q, want generated default", tmpl.Source)
		}
	}

	if _, err := svc.ImportTemplates(ctx, []models.QuestTemplate{{Title: ""}}); !errors.Is(err, models.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation for empty template", err)
	}
}
