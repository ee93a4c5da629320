package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/mnemos/pkg/models"
)

// FlashcardSetRepository handles database operations for flashcard sets
type FlashcardSetRepository struct {
	db executor
}

// NewFlashcardSetRepository creates a new repository instance
func NewFlashcardSetRepository() *FlashcardSetRepository {
	return &FlashcardSetRepository{db: DB}
}

// GetByID returns a set by ID
func (r *FlashcardSetRepository) GetByID(ctx context.Context, id int64) (*models.FlashcardSet, error) {
	var set models.FlashcardSet
	query := r.db.Rebind("SELECT * FROM flashcard_sets WHERE id = ?")
	if err := sqlx.GetContext(ctx, r.db, &set, query, id); err != nil {
		return nil, notFound(err, "flashcard set")
	}
	return &set, nil
}

// GetByTitle returns the set of a user with the given title
func (r *FlashcardSetRepository) GetByTitle(ctx context.Context, userID int64, title string) (*models.FlashcardSet, error) {
	var set models.FlashcardSet
	query := r.db.Rebind("SELECT * FROM flashcard_sets WHERE created_by = ? AND title = ?")
	if err := sqlx.GetContext(ctx, r.db, &set, query, userID, title); err != nil {
		return nil, notFound(err, "flashcard set")
	}
	return &set, nil
}

// ListByUser returns all sets created by a user
func (r *FlashcardSetRepository) ListByUser(ctx context.Context, userID int64) ([]models.FlashcardSet, error) {
	var sets []models.FlashcardSet
	query := r.db.Rebind("SELECT * FROM flashcard_sets WHERE created_by = ? ORDER BY title")
	if err := sqlx.SelectContext(ctx, r.db, &sets, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list flashcard sets: %w", err)
	}
	return sets, nil
}

// Create inserts a new set
func (r *FlashcardSetRepository) Create(ctx context.Context, set *models.FlashcardSet) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		INSERT INTO flashcard_sets (title, description, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query,
		set.Title,
		set.Description,
		set.CreatedBy,
		now,
		now,
	).Scan(&set.ID)
	if err != nil {
		return fmt.Errorf("failed to create flashcard set: %w", err)
	}
	set.CreatedAt = now
	set.UpdatedAt = now
	return nil
}

// GetOrCreate returns the user's set with set.Title, creating it if needed.
// It reports whether a new set was created.
func (r *FlashcardSetRepository) GetOrCreate(ctx context.Context, set *models.FlashcardSet) (bool, error) {
	existing, err := r.GetByTitle(ctx, set.CreatedBy, set.Title)
	if err == nil {
		*set = *existing
		return false, nil
	}
	if !isNotFound(err) {
		return false, err
	}
	if err := r.Create(ctx, set); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a set and, through the foreign keys, its cards
func (r *FlashcardSetRepository) Delete(ctx context.Context, id int64) error {
	query := r.db.Rebind("DELETE FROM flashcard_sets WHERE id = ?")
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete flashcard set: %w", err)
	}
	return nil
}
