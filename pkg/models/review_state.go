package models

import "time"

// ReviewState is the stored memory state of one card for one user.
// Version is bumped on every write and guards concurrent reviews.
type ReviewState struct {
	ID           int64      `json:"id" db:"id"`
	UserID       int64      `json:"user_id" db:"user_id"`
	CardID       int64      `json:"card_id" db:"card_id"`
	State        string     `json:"state" db:"state"` // new, learning, review, relearning
	Stability    float64    `json:"stability" db:"stability"`
	Difficulty   float64    `json:"difficulty" db:"difficulty"`
	LastReviewAt *time.Time `json:"last_review_at" db:"last_review_at"`
	NextDueAt    time.Time  `json:"next_due_at" db:"next_due_at"`
	Repetitions  int        `json:"repetitions" db:"repetitions"`
	Lapses       int        `json:"lapses" db:"lapses"`
	Version      int        `json:"version" db:"version"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// ReviewLog records a single graded review
type ReviewLog struct {
	ID           string    `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	CardID       int64     `json:"card_id" db:"card_id"`
	Grade        int       `json:"grade" db:"grade"`
	StateBefore  string    `json:"state_before" db:"state_before"`
	StateAfter   string    `json:"state_after" db:"state_after"`
	Stability    float64   `json:"stability" db:"stability"`
	Difficulty   float64   `json:"difficulty" db:"difficulty"`
	IntervalDays float64   `json:"interval_days" db:"interval_days"`
	ReviewedAt   time.Time `json:"reviewed_at" db:"reviewed_at"`
}
