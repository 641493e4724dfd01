package quests

import (
	"github.com/habitquest/backend/internal/models"
)

// questionTemplate is one two-choice question keyed to a stat.
type questionTemplate struct {
	Prompt        string
	ChoiceA       string
	ChoiceB       string
	CorrectChoice string
}

// Rand is the randomness the bank consumes. *math/rand.Rand satisfies it;
// tests inject a seeded source for determinism.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// questionBank holds ≥3 templates per stat. Selection walks the six stats
// round-robin after a shuffle, so no stat repeats within a 5-question quest.
var questionBank = map[string][]questionTemplate{
	models.StatStrength: {
		{
			Prompt:        "A fallen oak blocks the forest path. The villagers behind you are in a hurry.",
			ChoiceA:       "Heave the trunk aside with your shoulder",
			ChoiceB:       "Wait for the woodcutters to arrive",
			CorrectChoice: "A",
		},
		{
			Prompt:        "The drawbridge chain has jammed and the gears are straining.",
			ChoiceA:       "Let the chain snap and hope for the best",
			ChoiceB:       "Hold the counterweight while the smith frees the gear",
			CorrectChoice: "B",
		},
		{
			Prompt:        "A merchant's cart has sunk to its axle in river mud.",
			ChoiceA:       "Lift the axle while the oxen pull",
			ChoiceB:       "Unload the cargo into the river to lighten it",
			CorrectChoice: "A",
		},
	},
	models.StatDexterity: {
		{
			Prompt:        "A pickpocket darts through the market crowd with your coin purse.",
			ChoiceA:       "Shout for the guards and point",
			ChoiceB:       "Vault the fruit stall and cut off the alley",
			CorrectChoice: "B",
		},
		{
			Prompt:        "The rope bridge sways hard; a plank drops away beneath your foot.",
			ChoiceA:       "Shift your weight and step across the gap",
			ChoiceB:       "Freeze and grip the ropes until it settles",
			CorrectChoice: "A",
		},
		{
			Prompt:        "A juggler dares you to catch a knife he tosses your way, handle first.",
			ChoiceA:       "Step back and let it fall",
			ChoiceB:       "Watch the spin and pluck it from the air",
			CorrectChoice: "B",
		},
	},
	models.StatConstitution: {
		{
			Prompt:        "The mountain pass is three days of cold wind, and your rations are thin.",
			ChoiceA:       "Press on at a steady pace, sleeping short",
			ChoiceB:       "Turn back and wait out the season",
			CorrectChoice: "A",
		},
		{
			Prompt:        "The village well water tastes wrong, but you have been walking since dawn.",
			ChoiceA:       "Drink deep — thirst is the greater danger",
			ChoiceB:       "Sip sparingly and boil the rest at camp",
			CorrectChoice: "B",
		},
		{
			Prompt:        "A festival host challenges you to finish the ceremonial pepper stew.",
			ChoiceA:       "Finish the bowl without reaching for water",
			ChoiceB:       "Decline politely and toast with cider",
			CorrectChoice: "A",
		},
	},
	models.StatIntelligence: {
		{
			Prompt:        "The vault door bears a riddle: \"I grow shorter the longer I stand.\"",
			ChoiceA:       "Answer: a candle",
			ChoiceB:       "Answer: a shadow",
			CorrectChoice: "A",
		},
		{
			Prompt:        "Two scrolls describe the same star chart, but their dates disagree by a century.",
			ChoiceA:       "Trust the older scroll — age means authority",
			ChoiceB:       "Check both against tonight's sky",
			CorrectChoice: "B",
		},
		{
			Prompt:        "The alchemist's ledger is in cipher, each symbol shifted by its position.",
			ChoiceA:       "Work the shift backward from the page numbers",
			ChoiceB:       "Burn the ledger — some knowledge is dangerous",
			CorrectChoice: "A",
		},
	},
	models.StatWisdom: {
		{
			Prompt:        "A stranger offers to double any coin you hand him, just this once.",
			ChoiceA:       "Hand him a single copper to test it",
			ChoiceB:       "Keep your purse shut and walk on",
			CorrectChoice: "B",
		},
		{
			Prompt:        "Two farmers both claim the orchard on the boundary stone.",
			ChoiceA:       "Award it to whoever pleads the loudest",
			ChoiceB:       "Ask who planted and pruned the trees",
			CorrectChoice: "B",
		},
		{
			Prompt:        "The shortcut through the marsh would save half a day, says the innkeeper, who sells waders.",
			ChoiceA:       "Take the long road around",
			ChoiceB:       "Buy the waders and take the marsh",
			CorrectChoice: "A",
		},
	},
	models.StatCharisma: {
		{
			Prompt:        "The gate guard is bored, underpaid, and not supposed to let anyone through.",
			ChoiceA:       "Slip him your last silver",
			ChoiceB:       "Trade stories until he waves you in as a friend",
			CorrectChoice: "B",
		},
		{
			Prompt:        "The tavern crowd turns hostile when your companion spills a drink on the blacksmith.",
			ChoiceA:       "Buy the blacksmith's table a round and toast his forge",
			ChoiceB:       "Back toward the door with your hands up",
			CorrectChoice: "A",
		},
		{
			Prompt:        "The council will not hear petitions from outsiders.",
			ChoiceA:       "Petition anyway, louder",
			ChoiceB:       "Convince a councilor to present it as her own",
			CorrectChoice: "B",
		},
	},
}

// threshold spread around the current stat value, frozen at generation.
const (
	thresholdSpread = 4  // rng.Intn(thresholdSpread) - 1 → offset in [-1, 2]
	thresholdFloor  = 1
)

// generateQuestions builds the question set for one quest. Difficulty
// thresholds are computed from the stats passed in and never recomputed:
// boosts spent mid-quest don't retroactively ease earlier questions.
func generateQuestions(rng Rand, stats models.CreatureStats, count int) []models.QuestQuestion {
	order := make([]string, len(models.StatNames))
	copy(order, models.StatNames)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	questions := make([]models.QuestQuestion, 0, count)
	for i := 0; i < count; i++ {
		if i > 0 && i%len(order) == 0 {
			rng.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })
		}
		stat := order[i%len(order)]
		pool := questionBank[stat]
		tmpl := pool[rng.Intn(len(pool))]

		threshold := stats.Value(stat) + rng.Intn(thresholdSpread) - 1
		if threshold < thresholdFloor {
			threshold = thresholdFloor
		}

		questions = append(questions, models.QuestQuestion{
			QuestionNumber:      i + 1,
			Prompt:              tmpl.Prompt,
			ChoiceA:             tmpl.ChoiceA,
			ChoiceB:             tmpl.ChoiceB,
			CorrectChoice:       tmpl.CorrectChoice,
			RequiredStat:        stat,
			DifficultyThreshold: threshold,
		})
	}
	return questions
}
