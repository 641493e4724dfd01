package generator

import (
	"fmt"
	"strings"
)

// themePool seeds variety when the caller doesn't pin a theme.
var themePool = []string{
	"river crossings and ferrymen",
	"harvest season emergencies",
	"traveling merchants and bad bargains",
	"old ruins and older rumors",
	"village festivals going sideways",
	"mountain weather and stubborn animals",
}

func TemplateSystemPrompt() string {
	return `You write short quest narratives for a habit-tracking game with a light fantasy setting.

Each quest is the framing story for a daily five-question challenge. The tone is warm, slightly wry, low-stakes adventure — village errands and roadside trouble, not world-ending drama. No named player character, no combat gore, no modern references.

Respond ONLY with valid JSON in this exact shape:
{"templates":[{"title":"...","description":"...","narrative":"..."}]}

Rules:
- title: 2-6 words, evocative, unique within the batch
- description: one sentence summarizing the situation
- narrative: 2-4 sentences setting the scene in second person ("you")
- narrative length between 150 and 600 characters
- no markdown, no code fences, no commentary outside the JSON`
}

func BuildTemplateUserPrompt(count int, theme string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d quest templates.\n", count)
	if theme != "" {
		fmt.Fprintf(&b, "Theme: %s.\n", theme)
	} else {
		fmt.Fprintf(&b, "Draw themes from: %s.\n", strings.Join(themePool, "; "))
	}
	b.WriteString("Vary the settings so no two templates feel alike.")
	return b.String()
}
