package handler

import (
	"net/http"
	"strings"

	"github.com/askdb/askdb/internal/service"
)

// ChatResultLimit caps the rows echoed back by the chat endpoint.
const ChatResultLimit = 100

// QueryHandler serves the question-to-SQL endpoints.
type QueryHandler struct {
	assistant *service.Assistant
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(assistant *service.Assistant) *QueryHandler {
	return &QueryHandler{assistant: assistant}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Success    bool                     `json:"success"`
	Message    string                   `json:"message"`
	SQL        *string                  `json:"sql"`
	Columns    []string                 `json:"columns,omitempty"`
	RawResults []map[string]interface{} `json:"raw_results,omitempty"`
	TotalCount *int                     `json:"total_count,omitempty"`
	Stage      string                   `json:"stage,omitempty"`
}

// Chat runs the full pipeline for a chat message. Pipeline failures are
// reported in the body with success=false; only an empty message is a
// client error.
// POST /api/v1/chat
func (h *QueryHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, service.EmptyQuestionMessage)
		return
	}

	ans := h.assistant.Ask(r.Context(), req.Message)
	resp := chatResponse{
		Success: ans.Success(),
		Message: ans.Message,
	}
	if ans.SQL != "" {
		resp.SQL = &ans.SQL
	}

	switch {
	case !ans.Success():
		resp.Stage = string(ans.Stage)
	case ans.Result != nil:
		rows := ans.Result.Rows
		total := len(rows)
		if len(rows) > ChatResultLimit {
			rows = rows[:ChatResultLimit]
		}
		resp.Columns = ans.Result.Columns
		resp.RawResults = rows
		resp.TotalCount = &total
	}
	writeJSON(w, http.StatusOK, resp)
}

type generateRequest struct {
	Question string `json:"question"`
}

// Generate turns a question into SQL without validating or running it.
// POST /api/v1/sql/generate
func (h *QueryHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sql, err := h.assistant.GenerateSQL(r.Context(), req.Question)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sql": sql})
}

type sqlRequest struct {
	SQL string `json:"sql"`
}

// Validate reports whether a statement passes the safety checks. A rejected
// statement is a normal outcome and answers 200.
// POST /api/v1/sql/validate
func (h *QueryHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.assistant.ValidateSQL(req.SQL))
}

// Run validates and executes a statement.
// POST /api/v1/sql/run
func (h *QueryHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res, err := h.assistant.RunQuery(r.Context(), req.SQL)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"columns": res.Columns,
		"rows":    res.Rows,
		"count":   len(res.Rows),
	})
}
