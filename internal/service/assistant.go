// Package service implements the caller-facing operations: question to SQL,
// validation, execution, and the feedback loop that records corrections and
// learned examples.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/prompt"
	"github.com/askdb/askdb/internal/query"
)

// User-facing messages.
const (
	GreetingMessage       = "Merhaba! Size satınalma, sipariş, firma ve proje bilgileri hakkında yardımcı olabilirim."
	NoQueryMessage        = "Sorunuz için uygun bir sorgu oluşturulamadı. Lütfen daha açık bir şekilde sorun."
	EmptyQuestionMessage  = "Mesaj boş"
	RetrievalErrorMessage = "Şema bilgisine şu anda ulaşılamıyor."
)

// Composer builds generation prompts.
type Composer interface {
	Compose(ctx context.Context, question string) (*prompt.Prompt, error)
}

// Generator produces raw model output for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Runner executes a SELECT statement.
type Runner interface {
	Run(ctx context.Context, sql string) (*model.QueryResult, error)
}

// Memory is the feedback store.
type Memory interface {
	SaveCorrection(ctx context.Context, question, wrongSQL, correctSQL, explanation string) (model.Correction, error)
	AllCorrections(ctx context.Context) ([]model.Correction, error)
	AddLearnedExample(ctx context.Context, question, sql, description string) (model.LearnedExample, error)
	SaveFeedback(ctx context.Context, question, sql string, isCorrect bool, comment string) (model.Feedback, error)
	FeedbackStats(ctx context.Context) (model.FeedbackStats, error)
}

// Assistant wires the pipeline together. It is safe for concurrent use.
type Assistant struct {
	composer  Composer
	generator Generator
	runner    Runner
	memory    Memory
	logger    *slog.Logger
}

// NewAssistant creates an Assistant. runner may be nil when no database is
// configured; RunQuery and Ask then fail at the execution stage.
func NewAssistant(composer Composer, generator Generator, runner Runner, memory Memory, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		composer:  composer,
		generator: generator,
		runner:    runner,
		memory:    memory,
		logger:    logger,
	}
}

// GenerateSQL turns question into a SELECT statement. The statement is not
// validated here.
func (a *Assistant) GenerateSQL(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is required", ErrInvalidInput)
	}

	p, err := a.composer.Compose(ctx, question)
	if err != nil {
		return "", err
	}
	a.logger.Info("prompt composed",
		"question", question,
		"tables", p.Tables,
		"examples", p.Examples,
		"corrections", p.Corrections,
	)

	raw, err := a.generator.Generate(ctx, p.Text)
	if err != nil {
		return "", err
	}

	sql, ok := llm.CleanSQL(raw)
	if !ok {
		a.logger.Warn("no SQL in model output", "question", question, "output_len", len(raw))
		return "", fmt.Errorf("%w: could not generate a query", ErrGenerationFailed)
	}
	return sql, nil
}

// ValidateSQL runs the safety validator.
func (a *Assistant) ValidateSQL(sql string) query.Result {
	return query.Validate(sql)
}

// RunQuery validates and executes sql.
func (a *Assistant) RunQuery(ctx context.Context, sql string) (*model.QueryResult, error) {
	if err := query.Validate(sql).Err(); err != nil {
		return nil, err
	}
	if a.runner == nil {
		return nil, fmt.Errorf("%w: no database configured", ErrExecutionFailed)
	}
	return a.runner.Run(ctx, sql)
}

// Answer is the outcome of Ask.
type Answer struct {
	Question string
	SQL      string
	Message  string
	Result   *model.QueryResult
	Stage    Stage
	Err      error
}

// Success reports whether the pipeline completed.
func (a *Answer) Success() bool {
	return a.Err == nil
}

// Ask runs the full pipeline for question: generation, validation,
// execution and a short summary. Failures are reported in the Answer with
// the stage that raised them.
func (a *Assistant) Ask(ctx context.Context, question string) *Answer {
	question = strings.TrimSpace(question)
	ans := &Answer{Question: question}

	if question == "" {
		return ans.fail(StageInput, fmt.Errorf("%w: question is required", ErrInvalidInput), EmptyQuestionMessage)
	}
	if IsGreeting(question) {
		ans.Stage = StageGreeting
		ans.Message = GreetingMessage
		return ans
	}

	sql, err := a.GenerateSQL(ctx, question)
	if err != nil {
		stage := StageOf(err)
		msg := NoQueryMessage
		if stage == StageRetrieval {
			msg = RetrievalErrorMessage
		}
		a.logger.Warn("generation failed", "question", question, "error", err)
		return ans.fail(stage, err, msg)
	}
	ans.SQL = sql

	if res := query.Validate(sql); !res.IsValid {
		a.logger.Warn("generated SQL rejected", "question", question, "reason", res.ErrorMessage)
		return ans.fail(StageValidation, res.Err(), res.ErrorMessage)
	}

	result, err := a.RunQuery(ctx, sql)
	if err != nil {
		a.logger.Warn("query failed", "question", question, "error", err)
		return ans.fail(StageOf(err), err, "Sorgu hatası: "+err.Error())
	}

	a.logger.Info("query answered", "question", question, "rows", len(result.Rows))
	ans.Result = result
	ans.Stage = StageDone
	ans.Message = Summarize(result)
	return ans
}

func (a *Answer) fail(stage Stage, err error, msg string) *Answer {
	a.Stage = stage
	a.Err = err
	a.Message = msg
	return a
}

// LearnFromCorrection records a human correction and promotes the corrected
// query to a learned example. The corrected query must pass validation.
func (a *Assistant) LearnFromCorrection(ctx context.Context, question, wrongSQL, correctSQL, explanation string) (model.Correction, error) {
	question = strings.TrimSpace(question)
	correctSQL = strings.TrimSpace(correctSQL)
	if question == "" || strings.TrimSpace(wrongSQL) == "" || correctSQL == "" {
		return model.Correction{}, fmt.Errorf("%w: question, wrong_sql and correct_sql are required", ErrInvalidInput)
	}
	if err := query.Validate(correctSQL).Err(); err != nil {
		return model.Correction{}, err
	}

	c, err := a.memory.SaveCorrection(ctx, question, wrongSQL, correctSQL, explanation)
	if err != nil {
		return model.Correction{}, err
	}
	if _, err := a.memory.AddLearnedExample(ctx, question, correctSQL, explanation); err != nil {
		return c, err
	}
	a.logger.Info("correction learned", "id", c.ID, "question", question)
	return c, nil
}

// SaveFeedback records a judgment of a generated query. Feedback marking a
// query correct promotes it to a learned example, provided it passes
// validation.
func (a *Assistant) SaveFeedback(ctx context.Context, question, sql string, isCorrect bool, comment string) (model.Feedback, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return model.Feedback{}, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}

	f, err := a.memory.SaveFeedback(ctx, question, sql, isCorrect, comment)
	if err != nil {
		return model.Feedback{}, err
	}

	sql = strings.TrimSpace(sql)
	if !isCorrect || sql == "" {
		return f, nil
	}
	if res := query.Validate(sql); !res.IsValid {
		a.logger.Warn("feedback SQL not promoted", "id", f.ID, "reason", res.ErrorMessage)
		return f, nil
	}
	if _, err := a.memory.AddLearnedExample(ctx, question, sql, ""); err != nil {
		return f, err
	}
	return f, nil
}

// Stats is the feedback summary served by the stats endpoint.
type Stats struct {
	Feedback         model.FeedbackStats `json:"feedback"`
	CorrectionsCount int                 `json:"corrections_count"`
}

// Stats aggregates feedback and counts corrections.
func (a *Assistant) Stats(ctx context.Context) (*Stats, error) {
	fs, err := a.memory.FeedbackStats(ctx)
	if err != nil {
		return nil, err
	}
	corrections, err := a.memory.AllCorrections(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Feedback: fs, CorrectionsCount: len(corrections)}, nil
}

// FeedbackStats aggregates the feedback log.
func (a *Assistant) FeedbackStats(ctx context.Context) (model.FeedbackStats, error) {
	return a.memory.FeedbackStats(ctx)
}

// AllCorrections returns every stored correction.
func (a *Assistant) AllCorrections(ctx context.Context) ([]model.Correction, error) {
	return a.memory.AllCorrections(ctx)
}
