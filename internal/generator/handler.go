package generator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/habitquest/backend/internal/models"
)

// TemplateImporter stores generated templates. Implemented by the quest
// service.
type TemplateImporter interface {
	ImportTemplates(ctx context.Context, templates []models.QuestTemplate) (int, error)
}

type Handler struct {
	gen      *Generator
	importer TemplateImporter
}

func NewHandler(gen *Generator, importer TemplateImporter) *Handler {
	return &Handler{gen: gen, importer: importer}
}

type generateRequest struct {
	Count int    `json:"count"`
	Theme string `json:"theme"`
}

type generateResponse struct {
	Generated    int    `json:"generated"`
	Saved        int    `json:"saved"`
	Model        string `json:"model"`
	OutputTokens int    `json:"output_tokens"`
}

// GenerateTemplates produces a batch of narrative templates and imports
// them. Routed only when dev tools are enabled.
func (h *Handler) GenerateTemplates(w http.ResponseWriter, r *http.Request) {
	// An empty body means "use defaults".
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Count <= 0 {
		req.Count = 5
	}
	if req.Count > 20 {
		req.Count = 20
	}

	templates, resp, err := h.gen.GenerateTemplates(r.Context(), req.Count, req.Theme)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: verr.Error()})
			return
		}
		log.Printf("[generator] template generation failed: %v", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Template generation failed"})
		return
	}

	saved, err := h.importer.ImportTemplates(r.Context(), templates)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to save templates"})
		return
	}

	out := generateResponse{Generated: len(templates), Saved: saved, Model: h.gen.ModelName()}
	if resp != nil {
		out.OutputTokens = resp.OutputTokens
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
