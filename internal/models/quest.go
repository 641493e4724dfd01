package models

import "time"

// ── Quest Status ──────────────────────────────────────────

type QuestStatus string

const (
	QuestAvailable QuestStatus = "available"
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
)

// ── Templates ─────────────────────────────────────────────

// QuestTemplate is a reusable narrative shell. Daily quests copy the
// template's text at creation time so later template edits don't rewrite
// history.
type QuestTemplate struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Narrative   string    `json:"narrative"`
	Source      string    `json:"source"` // "seed" or "generated"
	CreatedAt   time.Time `json:"created_at"`
}

// ── Instances / Questions / Answers ───────────────────────

// QuestInstance is one user's 5-question session for a calendar day.
// At most one instance exists per (user, quest_date).
type QuestInstance struct {
	ID               int64       `json:"id"`
	UserID           int64       `json:"user_id"`
	TemplateID       *int64      `json:"template_id,omitempty"`
	QuestDate        time.Time   `json:"quest_date"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Narrative        string      `json:"narrative"`
	Status           QuestStatus `json:"status"`
	CurrentQuestion  int         `json:"current_question"`
	TotalQuestions   int         `json:"total_questions"`
	CorrectAnswers   int         `json:"correct_answers"`
	StatChecksPassed int         `json:"stat_checks_passed"`
	ActivatedAt      *time.Time  `json:"activated_at,omitempty"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// QuestQuestion carries the answer key and the frozen difficulty threshold.
// Neither field may ever reach a client payload — see QuestionView.
type QuestQuestion struct {
	ID                  int64  `json:"id"`
	QuestInstanceID     int64  `json:"quest_instance_id"`
	QuestionNumber      int    `json:"question_number"`
	Prompt              string `json:"prompt"`
	ChoiceA             string `json:"choice_a"`
	ChoiceB             string `json:"choice_b"`
	CorrectChoice       string `json:"-"`
	RequiredStat        string `json:"required_stat"`
	DifficultyThreshold int    `json:"-"`
}

// QuestionView is the client-safe projection of a QuestQuestion.
type QuestionView struct {
	ID             int64  `json:"id"`
	QuestionNumber int    `json:"question_number"`
	Prompt         string `json:"prompt"`
	ChoiceA        string `json:"choice_a"`
	ChoiceB        string `json:"choice_b"`
	RequiredStat   string `json:"required_stat"`
	Answered       bool   `json:"answered"`
}

func (q QuestQuestion) View(answered bool) QuestionView {
	return QuestionView{
		ID:             q.ID,
		QuestionNumber: q.QuestionNumber,
		Prompt:         q.Prompt,
		ChoiceA:        q.ChoiceA,
		ChoiceB:        q.ChoiceB,
		RequiredStat:   q.RequiredStat,
		Answered:       answered,
	}
}

type QuestAnswer struct {
	ID              int64     `json:"id"`
	QuestInstanceID int64     `json:"quest_instance_id"`
	QuestionID      int64     `json:"question_id"`
	UserChoice      string    `json:"user_choice"`
	WasCorrect      bool      `json:"was_correct"`
	PassedStatCheck bool      `json:"passed_stat_check"`
	AnsweredAt      time.Time `json:"answered_at"`
}

// ── Rewards ───────────────────────────────────────────────

type QuestRewards struct {
	Experience      int  `json:"experience"`
	StatBoostPoints int  `json:"stat_boost_points"`
	NewLevel        int  `json:"new_level"`
	LeveledUp       bool `json:"leveled_up"`
}

// ── Request / Response Types ──────────────────────────────

type AnswerQuestionRequest struct {
	QuestionID int64  `json:"question_id"`
	Choice     string `json:"choice"`
}

type ActivateQuestResponse struct {
	Quest         QuestInstance `json:"quest"`
	FirstQuestion QuestionView  `json:"first_question"`
}

type AnswerQuestionResponse struct {
	Correct         bool          `json:"correct"`
	PassedStatCheck bool          `json:"passed_stat_check"`
	NextQuestion    *QuestionView `json:"next_question,omitempty"`
	QuestComplete   bool          `json:"quest_complete"`
	Rewards         *QuestRewards `json:"rewards,omitempty"`
}

type QuestProgressResponse struct {
	QuestID          int64          `json:"quest_id"`
	Status           QuestStatus    `json:"status"`
	CurrentQuestion  int            `json:"current_question"`
	TotalQuestions   int            `json:"total_questions"`
	CorrectAnswers   int            `json:"correct_answers"`
	StatChecksPassed int            `json:"stat_checks_passed"`
	Questions        []QuestionView `json:"questions"`
}
