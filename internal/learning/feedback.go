package learning

import (
	"context"
	"fmt"

	"github.com/askdb/askdb/internal/model"
)

// SaveFeedback appends one user judgment to the feedback log.
func (m *Memory) SaveFeedback(ctx context.Context, question, sql string, isCorrect bool, comment string) (model.Feedback, error) {
	var saved model.Feedback
	err := m.feedback.Update(ctx, func(items []model.Feedback) ([]model.Feedback, error) {
		saved = model.Feedback{
			ID:          len(items) + 1,
			Timestamp:   m.now(),
			Question:    question,
			SQL:         sql,
			IsCorrect:   isCorrect,
			UserComment: comment,
		}
		return append(items, saved), nil
	})
	if err != nil {
		return model.Feedback{}, fmt.Errorf("save feedback: %w", err)
	}
	return saved, nil
}

// FeedbackStats aggregates the feedback log.
func (m *Memory) FeedbackStats(ctx context.Context) (model.FeedbackStats, error) {
	items, err := m.feedback.Snapshot(ctx)
	if err != nil {
		return model.FeedbackStats{}, fmt.Errorf("load feedback: %w", err)
	}
	return computeStats(items), nil
}

func computeStats(items []model.Feedback) model.FeedbackStats {
	stats := model.FeedbackStats{Total: len(items)}
	for _, f := range items {
		if f.IsCorrect {
			stats.Correct++
		}
	}
	stats.Incorrect = stats.Total - stats.Correct
	if stats.Total > 0 {
		stats.Accuracy = float64(stats.Correct) / float64(stats.Total) * 100
	}
	return stats
}
