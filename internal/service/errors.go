package service

import (
	"errors"

	"github.com/askdb/askdb/internal/executor"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/query"
	"github.com/askdb/askdb/internal/retrieval"
)

// Pipeline failures. Each is owned by the package that raises it and
// re-exported here so callers only need this package for errors.Is checks.
var (
	ErrRetrievalUnavailable = retrieval.ErrRetrievalUnavailable
	ErrGenerationFailed     = llm.ErrGenerationFailed
	ErrValidationRejected   = query.ErrValidationRejected
	ErrExecutionFailed      = executor.ErrExecutionFailed

	ErrInvalidInput = errors.New("invalid input")
)

// Stage names the pipeline step an answer stopped at.
type Stage string

const (
	StageInput      Stage = "input"
	StageGreeting   Stage = "greeting"
	StageRetrieval  Stage = "retrieval"
	StageGeneration Stage = "generation"
	StageValidation Stage = "validation"
	StageExecution  Stage = "execution"
	StageDone       Stage = "done"
)

// StageOf maps a pipeline error to the stage that raised it.
func StageOf(err error) Stage {
	switch {
	case err == nil:
		return StageDone
	case errors.Is(err, ErrInvalidInput):
		return StageInput
	case errors.Is(err, ErrRetrievalUnavailable):
		return StageRetrieval
	case errors.Is(err, ErrGenerationFailed):
		return StageGeneration
	case errors.Is(err, ErrValidationRejected):
		return StageValidation
	default:
		return StageExecution
	}
}
