package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/server/middleware"
	"github.com/askdb/askdb/internal/service"
)

// LearningHandler serves the feedback loop: corrections, feedback and their
// statistics.
type LearningHandler struct {
	assistant *service.Assistant
	logger    *slog.Logger
}

// NewLearningHandler creates a new LearningHandler.
func NewLearningHandler(assistant *service.Assistant, logger *slog.Logger) *LearningHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LearningHandler{assistant: assistant, logger: logger}
}

type correctRequest struct {
	Question    string `json:"question"`
	WrongSQL    string `json:"wrong_sql"`
	CorrectSQL  string `json:"correct_sql"`
	Explanation string `json:"explanation"`
}

// Correct records a reviewer's fix for a generated query and learns the
// corrected query as an example.
// POST /api/v1/correct
func (h *LearningHandler) Correct(w http.ResponseWriter, r *http.Request) {
	var req correctRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	c, err := h.assistant.LearnFromCorrection(r.Context(), req.Question, req.WrongSQL, req.CorrectSQL, req.Explanation)
	if err != nil {
		h.writeLearningError(w, err, "Failed to save correction")
		return
	}
	h.logger.Info("correction recorded", "id", c.ID, "reviewer", reviewerName(r))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Düzeltme kaydedildi ve öğrenildi!",
		"correction": c,
	})
}

type feedbackRequest struct {
	Question  string `json:"question"`
	SQL       string `json:"sql"`
	IsCorrect bool   `json:"is_correct"`
	Comment   string `json:"comment"`
}

// Feedback records a judgment of a generated query.
// POST /api/v1/feedback
func (h *LearningHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	f, err := h.assistant.SaveFeedback(r.Context(), req.Question, req.SQL, req.IsCorrect, req.Comment)
	if err != nil {
		h.writeLearningError(w, err, "Failed to save feedback")
		return
	}
	h.logger.Info("feedback recorded", "id", f.ID, "is_correct", f.IsCorrect, "reviewer", reviewerName(r))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"feedback": f,
	})
}

// Stats returns the feedback summary and the number of corrections.
// GET /api/v1/stats
func (h *LearningHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.assistant.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load stats: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Corrections lists stored corrections, most recent last. The optional
// limit parameter returns only the newest entries.
// GET /api/v1/corrections
func (h *LearningHandler) Corrections(w http.ResponseWriter, r *http.Request) {
	all, err := h.assistant.AllCorrections(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load corrections: "+err.Error())
		return
	}
	if all == nil {
		all = []model.Correction{}
	}
	if limit := queryInt(r, "limit", 0); limit > 0 {
		all = all[len(all)-clampInt(limit, 0, len(all)):]
	}
	writeJSON(w, http.StatusOK, all)
}

func (h *LearningHandler) writeLearningError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, service.ErrInvalidInput) || errors.Is(err, service.ErrValidationRejected) {
		writePipelineError(w, err)
		return
	}
	h.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg+": "+err.Error())
}

func reviewerName(r *http.Request) string {
	if rv := middleware.GetReviewer(r.Context()); rv != nil {
		return rv.Name
	}
	return ""
}
