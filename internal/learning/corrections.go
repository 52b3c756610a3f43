package learning

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/askdb/askdb/internal/model"
)

// SaveCorrection appends a correction and returns it with its assigned ID.
func (m *Memory) SaveCorrection(ctx context.Context, question, wrongSQL, correctSQL, explanation string) (model.Correction, error) {
	var saved model.Correction
	err := m.corrections.Update(ctx, func(items []model.Correction) ([]model.Correction, error) {
		saved = model.Correction{
			ID:          len(items) + 1,
			Timestamp:   m.now(),
			Question:    question,
			WrongSQL:    wrongSQL,
			CorrectSQL:  correctSQL,
			Explanation: explanation,
		}
		return append(items, saved), nil
	})
	if err != nil {
		return model.Correction{}, fmt.Errorf("save correction: %w", err)
	}
	return saved, nil
}

// AllCorrections returns every stored correction in insertion order.
func (m *Memory) AllCorrections(ctx context.Context) ([]model.Correction, error) {
	items, err := m.corrections.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corrections: %w", err)
	}
	return items, nil
}

// SimilarCorrections ranks corrections by the number of distinct lowercase
// words their question shares with question. Corrections sharing no word are
// dropped; ties keep insertion order. limit <= 0 selects
// DefaultCorrectionLimit.
func (m *Memory) SimilarCorrections(ctx context.Context, question string, limit int) ([]model.Correction, error) {
	if limit <= 0 {
		limit = DefaultCorrectionLimit
	}
	items, err := m.AllCorrections(ctx)
	if err != nil {
		return nil, err
	}
	return rankCorrections(items, question, limit), nil
}

func rankCorrections(items []model.Correction, question string, limit int) []model.Correction {
	words := tokenSet(question)

	type scored struct {
		score int
		c     model.Correction
	}
	var ranked []scored
	for _, c := range items {
		common := 0
		for w := range tokenSet(c.Question) {
			if _, ok := words[w]; ok {
				common++
			}
		}
		if common > 0 {
			ranked = append(ranked, scored{common, c})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]model.Correction, len(ranked))
	for i, r := range ranked {
		out[i] = r.c
	}
	return out
}

// FormatCorrectionsForPrompt renders corrections as a prompt block. An empty
// list renders as the empty string.
func FormatCorrectionsForPrompt(corrections []model.Correction) string {
	if len(corrections) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## DAHA ÖNCE YAPILAN DÜZELTMELER (Bunlara dikkat et!)\n")
	for _, c := range corrections {
		fmt.Fprintf(&b, "\nSoru: %s\nYANLIŞ: %s\nDOĞRU: %s\n", c.Question, c.WrongSQL, c.CorrectSQL)
		if c.Explanation != "" {
			fmt.Fprintf(&b, "AÇIKLAMA: %s\n", c.Explanation)
		}
	}
	return b.String()
}
