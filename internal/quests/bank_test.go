package quests

import (
	"math/rand"
	"testing"

	"github.com/habitquest/backend/internal/models"
)

func testStats() models.CreatureStats {
	return models.CreatureStats{
		Strength: 5, Dexterity: 5, Constitution: 5,
		Intelligence: 5, Wisdom: 5, Charisma: 5,
	}
}

func TestGenerateQuestionsNoStatRepeats(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		questions := generateQuestions(rng, testStats(), 5)
		if len(questions) != 5 {
			t.Fatalf("got %d questions, want 5", len(questions))
		}

		seen := make(map[string]bool)
		for i, q := range questions {
			if q.QuestionNumber != i+1 {
				t.Errorf("question %d numbered %d", i, q.QuestionNumber)
			}
			if !models.IsValidStat(q.RequiredStat) {
				t.Errorf("question %d has unknown stat %q", i, q.RequiredStat)
			}
			if seen[q.RequiredStat] {
				t.Errorf("trial %d: stat %q repeated within one quest", trial, q.RequiredStat)
			}
			seen[q.RequiredStat] = true
			if q.CorrectChoice != "A" && q.CorrectChoice != "B" {
				t.Errorf("question %d correct choice %q", i, q.CorrectChoice)
			}
		}
	}
}

func TestGenerateQuestionsThresholdRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	stats := testStats()
	for trial := 0; trial < 100; trial++ {
		for _, q := range generateQuestions(rng, stats, 5) {
			base := stats.Value(q.RequiredStat)
			if q.DifficultyThreshold < base-1 || q.DifficultyThreshold > base+2 {
				t.Errorf("threshold %d outside [%d, %d] for stat %s",
					q.DifficultyThreshold, base-1, base+2, q.RequiredStat)
			}
		}
	}
}

func TestGenerateQuestionsThresholdFloor(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	// Stats at 1 can roll a raw threshold of 0; the floor keeps it at 1.
	stats := models.CreatureStats{
		Strength: 1, Dexterity: 1, Constitution: 1,
		Intelligence: 1, Wisdom: 1, Charisma: 1,
	}
	for trial := 0; trial < 100; trial++ {
		for _, q := range generateQuestions(rng, stats, 5) {
			if q.DifficultyThreshold < 1 {
				t.Fatalf("threshold %d below floor", q.DifficultyThreshold)
			}
		}
	}
}

func TestGenerateQuestionsRoundRobinBeyondSix(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	questions := generateQuestions(rng, testStats(), 12)

	counts := make(map[string]int)
	for _, q := range questions {
		counts[q.RequiredStat]++
	}
	for _, stat := range models.StatNames {
		if counts[stat] != 2 {
			t.Errorf("stat %s used %d times across 12 questions, want 2", stat, counts[stat])
		}
	}
}

func TestQuestionBankCoverage(t *testing.T) {
	for _, stat := range models.StatNames {
		pool := questionBank[stat]
		if len(pool) < 3 {
			t.Errorf("stat %s has %d templates, want at least 3", stat, len(pool))
		}
		for i, tmpl := range pool {
			if tmpl.Prompt == "" || tmpl.ChoiceA == "" || tmpl.ChoiceB == "" {
				t.Errorf("stat %s template %d has empty fields", stat, i)
			}
			if tmpl.CorrectChoice != "A" && tmpl.CorrectChoice != "B" {
				t.Errorf("stat %s template %d correct choice %q", stat, i, tmpl.CorrectChoice)
			}
		}
	}
}
