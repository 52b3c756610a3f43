package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/service"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
// Non-ASCII text is written verbatim and HTML characters are not escaped, so
// Turkish questions and SQL comparisons survive unchanged.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// pipelineStatus maps a pipeline error to an HTTP status code.
func pipelineStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrValidationRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrGenerationFailed):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrRetrievalUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrExecutionFailed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writePipelineError writes err with the status chosen by pipelineStatus and
// the failing stage in the error context.
func writePipelineError(w http.ResponseWriter, err error) {
	writeError(w, pipelineStatus(err), err.Error(), map[string]interface{}{
		"stage": string(service.StageOf(err)),
	})
}

// clampInt constrains val to be within [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
