package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/mnemos/pkg/models"
)

// FlashcardRepository handles database operations for flashcards
type FlashcardRepository struct {
	db executor
}

// NewFlashcardRepository creates a new repository instance
func NewFlashcardRepository() *FlashcardRepository {
	return &FlashcardRepository{db: DB}
}

// GetByID returns a card by ID
func (r *FlashcardRepository) GetByID(ctx context.Context, id int64) (*models.Flashcard, error) {
	var card models.Flashcard
	query := r.db.Rebind("SELECT * FROM flashcards WHERE id = ?")
	if err := sqlx.GetContext(ctx, r.db, &card, query, id); err != nil {
		return nil, notFound(err, "flashcard")
	}
	return &card, nil
}

// GetBySet returns the cards of a set in creation order
func (r *FlashcardRepository) GetBySet(ctx context.Context, setID int64) ([]models.Flashcard, error) {
	var cards []models.Flashcard
	query := r.db.Rebind("SELECT * FROM flashcards WHERE set_id = ? ORDER BY id")
	if err := sqlx.SelectContext(ctx, r.db, &cards, query, setID); err != nil {
		return nil, fmt.Errorf("failed to get flashcards by set: %w", err)
	}
	return cards, nil
}

// Create inserts a new card
func (r *FlashcardRepository) Create(ctx context.Context, card *models.Flashcard) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		INSERT INTO flashcards (set_id, front, back, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query, card.SetID, card.Front, card.Back, now, now).Scan(&card.ID)
	if err != nil {
		return fmt.Errorf("failed to create flashcard: %w", err)
	}
	card.CreatedAt = now
	card.UpdatedAt = now
	return nil
}

// Upsert inserts a card or, when the set already has a card with the same
// front, updates its back. It reports whether a new card was created.
func (r *FlashcardRepository) Upsert(ctx context.Context, card *models.Flashcard) (bool, error) {
	var existing models.Flashcard
	query := r.db.Rebind("SELECT * FROM flashcards WHERE set_id = ? AND front = ?")
	err := sqlx.GetContext(ctx, r.db, &existing, query, card.SetID, card.Front)
	if errors.Is(err, sql.ErrNoRows) {
		if err := r.Create(ctx, card); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up flashcard: %w", err)
	}

	card.ID = existing.ID
	card.CreatedAt = existing.CreatedAt
	if existing.Back == card.Back {
		card.UpdatedAt = existing.UpdatedAt
		return false, nil
	}
	return false, r.Update(ctx, card)
}

// Update modifies an existing card
func (r *FlashcardRepository) Update(ctx context.Context, card *models.Flashcard) error {
	now := time.Now().UTC()
	query := r.db.Rebind("UPDATE flashcards SET front = ?, back = ?, updated_at = ? WHERE id = ?")
	if _, err := r.db.ExecContext(ctx, query, card.Front, card.Back, now, card.ID); err != nil {
		return fmt.Errorf("failed to update flashcard: %w", err)
	}
	card.UpdatedAt = now
	return nil
}
