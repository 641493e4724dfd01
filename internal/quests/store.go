package quests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/habitquest/backend/internal/models"
)

// PostgresStore is the storage backend for quest instances, questions,
// answers and narrative templates.
type PostgresStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const instanceColumns = `id, user_id, template_id, quest_date, title, description, narrative,
	status, current_question, total_questions, correct_answers, stat_checks_passed,
	activated_at, completed_at, created_at`

func (s *PostgresStore) GetDailyQuest(ctx context.Context, userID int64, date time.Time) (*models.QuestInstance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM quest_instances
		 WHERE user_id = $1 AND quest_date = $2`,
		userID, date)
	return scanInstance(row)
}

func (s *PostgresStore) GetInstance(ctx context.Context, questID, userID int64) (*models.QuestInstance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM quest_instances
		 WHERE id = $1 AND user_id = $2`,
		questID, userID)
	return scanInstance(row)
}

// CreateDailyQuest inserts the instance and its questions in one
// transaction. ON CONFLICT DO NOTHING makes the (user_id, quest_date)
// constraint decide concurrent creation races: the loser gets no returned id
// and reports created=false.
func (s *PostgresStore) CreateDailyQuest(ctx context.Context, inst *models.QuestInstance, questions []models.QuestQuestion) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO quest_instances
		    (user_id, template_id, quest_date, title, description, narrative, status, total_questions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, quest_date) DO NOTHING
		 RETURNING id, created_at`,
		inst.UserID, inst.TemplateID, inst.QuestDate, inst.Title, inst.Description,
		inst.Narrative, inst.Status, inst.TotalQuestions,
	).Scan(&inst.ID, &inst.CreatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert instance: %w", err)
	}

	for i := range questions {
		q := &questions[i]
		q.QuestInstanceID = inst.ID
		err = tx.QueryRowContext(ctx,
			`INSERT INTO quest_questions
			    (quest_instance_id, question_number, prompt, choice_a, choice_b,
			     correct_choice, required_stat, difficulty_threshold)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			q.QuestInstanceID, q.QuestionNumber, q.Prompt, q.ChoiceA, q.ChoiceB,
			q.CorrectChoice, q.RequiredStat, q.DifficultyThreshold,
		).Scan(&q.ID)
		if err != nil {
			return false, fmt.Errorf("insert question %d: %w", q.QuestionNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) GetQuestions(ctx context.Context, questID int64) ([]models.QuestQuestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quest_instance_id, question_number, prompt, choice_a, choice_b,
		        correct_choice, required_stat, difficulty_threshold
		 FROM quest_questions
		 WHERE quest_instance_id = $1
		 ORDER BY question_number`,
		questID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []models.QuestQuestion
	for rows.Next() {
		var q models.QuestQuestion
		if err := rows.Scan(&q.ID, &q.QuestInstanceID, &q.QuestionNumber, &q.Prompt,
			&q.ChoiceA, &q.ChoiceB, &q.CorrectChoice, &q.RequiredStat, &q.DifficultyThreshold); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *PostgresStore) GetQuestion(ctx context.Context, questID, questionID int64) (*models.QuestQuestion, error) {
	var q models.QuestQuestion
	err := s.db.QueryRowContext(ctx,
		`SELECT id, quest_instance_id, question_number, prompt, choice_a, choice_b,
		        correct_choice, required_stat, difficulty_threshold
		 FROM quest_questions
		 WHERE id = $1 AND quest_instance_id = $2`,
		questionID, questID,
	).Scan(&q.ID, &q.QuestInstanceID, &q.QuestionNumber, &q.Prompt,
		&q.ChoiceA, &q.ChoiceB, &q.CorrectChoice, &q.RequiredStat, &q.DifficultyThreshold)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return &q, nil
}

func (s *PostgresStore) AnsweredQuestionIDs(ctx context.Context, questID int64) (map[int64]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id FROM quest_answers WHERE quest_instance_id = $1`, questID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	answered := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answered[id] = true
	}
	return answered, rows.Err()
}

// Activate is the state-machine guard for available → active. The status
// predicate in the WHERE clause means exactly one of two concurrent
// activations flips the row.
func (s *PostgresStore) Activate(ctx context.Context, questID, userID int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quest_instances
		 SET status = $1, activated_at = $2
		 WHERE id = $3 AND user_id = $4 AND status = $5`,
		models.QuestActive, at, questID, userID, models.QuestAvailable)
	if err != nil {
		return false, fmt.Errorf("activate quest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("activate quest: %w", err)
	}
	return n > 0, nil
}

// RecordAnswer is the one write path for answers. The answer insert, the
// pointer/counter advance, and (on the fifth answer) the completion and
// creature reward writes commit or roll back together. The uniqueness
// constraint on (quest_instance_id, question_id) turns a concurrent
// duplicate into ErrAlreadyAnswered; the pointer predicate turns a lost
// sequence race into ErrSequenceViolation.
func (s *PostgresStore) RecordAnswer(ctx context.Context, ans *models.QuestAnswer, expectedPointer int, completion *CompletionUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO quest_answers
		    (quest_instance_id, question_id, user_choice, was_correct, passed_stat_check, answered_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		ans.QuestInstanceID, ans.QuestionID, ans.UserChoice, ans.WasCorrect,
		ans.PassedStatCheck, ans.AnsweredAt,
	).Scan(&ans.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrAlreadyAnswered
		}
		return fmt.Errorf("insert answer: %w", err)
	}

	correctInc := 0
	if ans.WasCorrect {
		correctInc = 1
	}
	checkInc := 0
	if ans.PassedStatCheck {
		checkInc = 1
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE quest_instances
		 SET current_question = current_question + 1,
		     correct_answers = correct_answers + $1,
		     stat_checks_passed = stat_checks_passed + $2
		 WHERE id = $3 AND status = $4 AND current_question = $5`,
		correctInc, checkInc, ans.QuestInstanceID, models.QuestActive, expectedPointer)
	if err != nil {
		return fmt.Errorf("advance pointer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance pointer: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: quest pointer moved", models.ErrSequenceViolation)
	}

	if completion != nil {
		var userID int64
		err = tx.QueryRowContext(ctx,
			`UPDATE quest_instances
			 SET status = $1, completed_at = $2
			 WHERE id = $3
			 RETURNING user_id`,
			models.QuestCompleted, completion.CompletedAt, ans.QuestInstanceID,
		).Scan(&userID)
		if err != nil {
			return fmt.Errorf("complete quest: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE creatures
			 SET experience = experience + $1, level = $2, updated_at = NOW()
			 WHERE user_id = $3`,
			completion.ExperienceDelta, completion.NewLevel, userID)
		if err != nil {
			return fmt.Errorf("grant experience: %w", err)
		}

		if completion.BoostPoints > 0 {
			_, err = tx.ExecContext(ctx,
				`UPDATE creature_stats
				 SET stat_boost_points = stat_boost_points + $1, updated_at = NOW()
				 WHERE user_id = $2`,
				completion.BoostPoints, userID)
			if err != nil {
				return fmt.Errorf("grant boost points: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DeleteDailyQuest removes the day's instance; questions and answers go with
// it via ON DELETE CASCADE.
func (s *PostgresStore) DeleteDailyQuest(ctx context.Context, userID int64, date time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM quest_instances WHERE user_id = $1 AND quest_date = $2`,
		userID, date)
	if err != nil {
		return fmt.Errorf("delete quest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete quest: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ── templates ───────────────────────────────────────────

func (s *PostgresStore) CountTemplates(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quest_templates`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return count, nil
}

// TemplateAt picks by offset over a stable order, so random selection stays
// in the application instead of ORDER BY RANDOM().
func (s *PostgresStore) TemplateAt(ctx context.Context, offset int) (*models.QuestTemplate, error) {
	var t models.QuestTemplate
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, narrative, source, created_at
		 FROM quest_templates
		 ORDER BY id
		 OFFSET $1 LIMIT 1`,
		offset,
	).Scan(&t.ID, &t.Title, &t.Description, &t.Narrative, &t.Source, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) SaveTemplates(ctx context.Context, templates []models.QuestTemplate) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	saved := 0
	for _, t := range templates {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO quest_templates (title, description, narrative, source)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (title) DO NOTHING`,
			t.Title, t.Description, t.Narrative, t.Source)
		if err != nil {
			return 0, fmt.Errorf("insert template: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert template: %w", err)
		}
		saved += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return saved, nil
}

// ── helpers ─────────────────────────────────────────────

func scanInstance(row *sql.Row) (*models.QuestInstance, error) {
	var inst models.QuestInstance
	err := row.Scan(&inst.ID, &inst.UserID, &inst.TemplateID, &inst.QuestDate,
		&inst.Title, &inst.Description, &inst.Narrative, &inst.Status,
		&inst.CurrentQuestion, &inst.TotalQuestions, &inst.CorrectAnswers,
		&inst.StatChecksPassed, &inst.ActivatedAt, &inst.CompletedAt, &inst.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan instance: %w", err)
	}
	return &inst, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
