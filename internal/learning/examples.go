package learning

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/askdb/askdb/internal/model"
)

// AddLearnedExample upserts a learned example. A stored example whose
// question matches case-insensitively has its SQL replaced and UpdatedAt
// stamped; otherwise a new example is appended with SuccessCount 1.
func (m *Memory) AddLearnedExample(ctx context.Context, question, sql, description string) (model.LearnedExample, error) {
	var saved model.LearnedExample
	key := lower(question)

	err := m.examples.Update(ctx, func(items []model.LearnedExample) ([]model.LearnedExample, error) {
		now := m.now()
		for i := range items {
			if lower(items[i].Question) == key {
				items[i].SQL = sql
				items[i].UpdatedAt = &now
				saved = items[i]
				return items, nil
			}
		}
		saved = model.LearnedExample{
			ID:           len(items) + 1,
			Question:     question,
			SQL:          sql,
			Description:  description,
			CreatedAt:    now,
			SuccessCount: 1,
		}
		return append(items, saved), nil
	})
	if err != nil {
		return model.LearnedExample{}, fmt.Errorf("save learned example: %w", err)
	}
	return saved, nil
}

// LearnedExamples returns up to limit examples, highest SuccessCount first.
// Ties keep insertion order. limit <= 0 selects DefaultExampleLimit.
func (m *Memory) LearnedExamples(ctx context.Context, limit int) ([]model.LearnedExample, error) {
	if limit <= 0 {
		limit = DefaultExampleLimit
	}
	items, err := m.examples.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load learned examples: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].SuccessCount > items[j].SuccessCount })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// FormatExamplesForPrompt renders examples as a prompt block. An empty list
// renders as the empty string.
func FormatExamplesForPrompt(examples []model.LearnedExample) string {
	if len(examples) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## ÖĞRENİLMİŞ BAŞARILI SORGULAR\n")
	for _, ex := range examples {
		fmt.Fprintf(&b, "\nSoru: %s\nSQL: %s\n", ex.Question, ex.SQL)
	}
	return b.String()
}
