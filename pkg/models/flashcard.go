package models

import "time"

// FlashcardSet groups cards created together
type FlashcardSet struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	CreatedBy   int64     `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Flashcard is a single question/answer pair
type Flashcard struct {
	ID        int64     `json:"id" db:"id"`
	SetID     int64     `json:"set_id" db:"set_id"`
	Front     string    `json:"front" db:"front"`
	Back      string    `json:"back" db:"back"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
