package model

import "time"

// Correction is a human-supplied fix for a generated query. Corrections are
// append-only; ID is the collection size at append time plus one.
type Correction struct {
	ID          int       `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Question    string    `json:"question"`
	WrongSQL    string    `json:"wrong_sql"`
	CorrectSQL  string    `json:"correct_sql"`
	Explanation string    `json:"explanation,omitempty"`
	UsedCount   int       `json:"used_count"`
}

// LearnedExample is a confirmed-good question/SQL pair used as a few-shot
// example in generation prompts.
type LearnedExample struct {
	ID           int        `json:"id"`
	Question     string     `json:"question"`
	SQL          string     `json:"sql"`
	Description  string     `json:"description,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	SuccessCount int        `json:"success_count"`
}

// Feedback is one entry of the user judgment audit log.
type Feedback struct {
	ID          int       `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Question    string    `json:"question"`
	SQL         string    `json:"sql"`
	IsCorrect   bool      `json:"is_correct"`
	UserComment string    `json:"user_comment,omitempty"`
}

// FeedbackStats aggregates the feedback log. Accuracy is a percentage.
type FeedbackStats struct {
	Total     int     `json:"total"`
	Correct   int     `json:"correct"`
	Incorrect int     `json:"incorrect"`
	Accuracy  float64 `json:"accuracy"`
}
