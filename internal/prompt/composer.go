// Package prompt assembles the generation prompt from retrieved schema
// context, the fixed domain rules, learned examples and similar corrections.
package prompt

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/askdb/askdb/internal/learning"
	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/retrieval"
)

//go:embed rules.md
var defaultRules string

// DefaultRules returns the built-in domain rules block.
func DefaultRules() string { return defaultRules }

// LoadRules reads a rules file. An empty path returns the built-in rules.
func LoadRules(path string) (string, error) {
	if path == "" {
		return defaultRules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read rules file: %w", err)
	}
	return string(data), nil
}

// Prompt limits.
const (
	ExampleLimit    = 5
	CorrectionLimit = 3
)

// Retriever provides schema context for a question.
type Retriever interface {
	GetRelevantContext(ctx context.Context, question string, topK int) (*retrieval.Context, error)
}

// Learnings provides the feedback-derived prompt blocks.
type Learnings interface {
	LearnedExamples(ctx context.Context, limit int) ([]model.LearnedExample, error)
	SimilarCorrections(ctx context.Context, question string, limit int) ([]model.Correction, error)
}

// Prompt is a composed generation prompt.
type Prompt struct {
	Text        string
	Tables      []string
	Examples    int
	Corrections int
}

// Composer builds prompts. It is safe for concurrent use.
type Composer struct {
	retriever Retriever
	learnings Learnings
	rules     string
	topK      int
	logger    *slog.Logger
}

// NewComposer creates a Composer. An empty rules string selects the built-in
// rules; topK <= 0 defers to the retriever default.
func NewComposer(retriever Retriever, learnings Learnings, rules string, topK int, logger *slog.Logger) *Composer {
	if rules == "" {
		rules = defaultRules
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		retriever: retriever,
		learnings: learnings,
		rules:     rules,
		topK:      topK,
		logger:    logger,
	}
}

// Compose builds the prompt for question. A retrieval failure is returned;
// a failure reading the learning collections only drops that block.
func (c *Composer) Compose(ctx context.Context, question string) (*Prompt, error) {
	rc, err := c.retriever.GetRelevantContext(ctx, question, c.topK)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("retrieved schema context", "tables", rc.Tables, "keywords", rc.Keywords, "results", len(rc.Results))

	var examples []model.LearnedExample
	var corrections []model.Correction
	if c.learnings != nil {
		examples, err = c.learnings.LearnedExamples(ctx, ExampleLimit)
		if err != nil {
			c.logger.Warn("learned examples unavailable", "error", err)
			examples = nil
		}
		corrections, err = c.learnings.SimilarCorrections(ctx, question, CorrectionLimit)
		if err != nil {
			c.logger.Warn("corrections unavailable", "error", err)
			corrections = nil
		}
		if len(corrections) > 0 {
			c.logger.Debug("similar corrections found", "count", len(corrections))
		}
	}

	return &Prompt{
		Text:        c.render(rc.Text, examples, corrections, question),
		Tables:      rc.Tables,
		Examples:    len(examples),
		Corrections: len(corrections),
	}, nil
}

func (c *Composer) render(schema string, examples []model.LearnedExample, corrections []model.Correction, question string) string {
	var b strings.Builder

	b.WriteString("Sen bir MSSQL veritabanı uzmanısın. Kullanıcının Türkçe sorusunu SQL sorgusuna çevireceksin.\n\n")

	b.WriteString("## VERİTABANI BİLGİLERİ\n\n")
	b.WriteString(schema)
	b.WriteString("\n\n")

	b.WriteString(strings.TrimSpace(c.rules))
	b.WriteString("\n\n")

	if block := learning.FormatExamplesForPrompt(examples); block != "" {
		b.WriteString(block)
		b.WriteString("\n")
	}
	if block := learning.FormatCorrectionsForPrompt(corrections); block != "" {
		b.WriteString(block)
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	b.WriteString("KULLANICI SORUSU: ")
	b.WriteString(question)
	b.WriteString("\n\n---\n\n")

	b.WriteString("Yukarıdaki bilgileri ve özellikle DÜZELTMELER bölümünü dikkate alarak SQL sorgusu yaz.\n")
	b.WriteString("SADECE SQL kodunu yaz. Açıklama yapma, markdown kullanma.\n")
	b.WriteString("SELECT ile başla:")
	return b.String()
}
