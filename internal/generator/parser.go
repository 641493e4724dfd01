package generator

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

type generatedBatch struct {
	Templates []GeneratedTemplate `json:"templates"`
}

type GeneratedTemplate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Narrative   string `json:"narrative"`
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

func ParseTemplates(responseBody string) ([]GeneratedTemplate, error) {
	cleaned := stripCodeFences(responseBody)

	var batch generatedBatch
	if err := json.Unmarshal([]byte(cleaned), &batch); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if err := validateTemplates(batch.Templates); err != nil {
		return nil, err
	}

	return batch.Templates, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

const (
	narrativeMinLen = 150
	narrativeMaxLen = 600
)

func validateTemplates(templates []GeneratedTemplate) error {
	var errs []string

	if len(templates) == 0 {
		return &ValidationError{Errors: []string{"no templates in batch"}}
	}

	seenTitles := make(map[string]int)
	for i, t := range templates {
		num := i + 1

		if strings.TrimSpace(t.Title) == "" {
			errs = append(errs, fmt.Sprintf("template %d: empty title", num))
		}
		if strings.TrimSpace(t.Description) == "" {
			errs = append(errs, fmt.Sprintf("template %d: empty description", num))
		}

		narLen := len(t.Narrative)
		if narLen < narrativeMinLen || narLen > narrativeMaxLen {
			errs = append(errs, fmt.Sprintf("template %d: narrative length %d outside range [%d, %d]",
				num, narLen, narrativeMinLen, narrativeMaxLen))
		}

		key := strings.ToLower(strings.TrimSpace(t.Title))
		if prev, dup := seenTitles[key]; dup {
			errs = append(errs, fmt.Sprintf("template %d: duplicate title of template %d", num, prev))
		}
		seenTitles[key] = num
	}

	checkNarrativeDiversity(templates)

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// checkNarrativeDiversity warns if any two narratives share >60% keyword
// overlap.
func checkNarrativeDiversity(templates []GeneratedTemplate) {
	if len(templates) < 2 {
		return
	}

	tokenSets := make([]map[string]bool, len(templates))
	for i, t := range templates {
		tokenSets[i] = tokenize(t.Narrative)
	}

	for i := 0; i < len(templates); i++ {
		for j := i + 1; j < len(templates); j++ {
			overlap := jaccardSimilarity(tokenSets[i], tokenSets[j])
			if overlap > 0.60 {
				log.Printf("WARNING: templates %d and %d have %.0f%% keyword overlap — consider more variety", i+1, j+1, overlap*100)
			}
		}
	}
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(s)) {
		// Skip very short words (articles, prepositions)
		if len(word) > 3 {
			tokens[word] = true
		}
	}
	return tokens
}

func jaccardSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}
