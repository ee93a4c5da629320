package models

import "time"

// Statistics summarises a user's review progress
type Statistics struct {
	UserID        int64          `json:"user_id"`
	TotalCards    int            `json:"total_cards"`
	DueNow        int            `json:"due_now"`
	Mastered      int            `json:"mastered"`
	Lapses        int            `json:"lapses"`
	ByState       map[string]int `json:"by_state"`
	ReviewsTotal  int            `json:"reviews_total"`
	ReviewsPassed int            `json:"reviews_passed"`
	AvgStability  float64        `json:"avg_stability"`
	AvgDifficulty float64        `json:"avg_difficulty"`
}

// RetentionRate is the share of logged reviews that weren't graded Again
func (s Statistics) RetentionRate() float64 {
	if s.ReviewsTotal == 0 {
		return 0
	}
	return float64(s.ReviewsPassed) / float64(s.ReviewsTotal)
}

// DailyStats is one day of a user's review activity
type DailyStats struct {
	Date            time.Time `json:"date"` // midnight UTC
	TotalReviews    int       `json:"total_reviews"`
	CorrectReviews  int       `json:"correct_reviews"`
	NewCardsStudied int       `json:"new_cards_studied"`
	CardsMastered   int       `json:"cards_mastered"`
}

// SetProgress summarises a user's progress through one flashcard set
type SetProgress struct {
	SetID         int64      `json:"set_id" db:"set_id"`
	Title         string     `json:"title" db:"title"`
	TotalCards    int        `json:"total_cards" db:"total_cards"`
	CardsReviewed int        `json:"cards_reviewed" db:"cards_reviewed"`
	CardsMastered int        `json:"cards_mastered" db:"cards_mastered"`
	LastReviewed  *time.Time `json:"last_reviewed,omitempty" db:"-"`
}
