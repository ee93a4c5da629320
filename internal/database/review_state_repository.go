package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/mnemos/pkg/models"
)

// ReviewStateRepository handles database operations for review states
type ReviewStateRepository struct {
	db executor
}

// NewReviewStateRepository creates a new repository instance
func NewReviewStateRepository() *ReviewStateRepository {
	return &ReviewStateRepository{db: DB}
}

// WithTx returns a repository bound to tx
func (r *ReviewStateRepository) WithTx(tx *sqlx.Tx) *ReviewStateRepository {
	return &ReviewStateRepository{db: tx}
}

// GetByUserAndCard returns the state of a card for a user
func (r *ReviewStateRepository) GetByUserAndCard(ctx context.Context, userID, cardID int64) (*models.ReviewState, error) {
	var rs models.ReviewState
	query := r.db.Rebind("SELECT * FROM review_states WHERE user_id = ? AND card_id = ?")
	if err := sqlx.GetContext(ctx, r.db, &rs, query, userID, cardID); err != nil {
		return nil, notFound(err, "review state")
	}
	return &rs, nil
}

// Create inserts a new state with version 1
func (r *ReviewStateRepository) Create(ctx context.Context, rs *models.ReviewState) error {
	now := time.Now().UTC()
	rs.Version = 1
	query := r.db.Rebind(`
		INSERT INTO review_states (
			user_id, card_id, state, stability, difficulty,
			last_review_at, next_due_at, repetitions, lapses, version,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query,
		rs.UserID,
		rs.CardID,
		rs.State,
		rs.Stability,
		rs.Difficulty,
		nullTime(rs.LastReviewAt),
		rs.NextDueAt.UTC(),
		rs.Repetitions,
		rs.Lapses,
		rs.Version,
		now,
		now,
	).Scan(&rs.ID)
	if err != nil {
		return fmt.Errorf("failed to create review state: %w", err)
	}
	rs.CreatedAt = now
	rs.UpdatedAt = now
	return nil
}

// Update writes rs if the stored version still equals rs.Version and bumps
// the version. A stale rs yields ErrVersionConflict.
func (r *ReviewStateRepository) Update(ctx context.Context, rs *models.ReviewState) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE review_states SET
			state = ?,
			stability = ?,
			difficulty = ?,
			last_review_at = ?,
			next_due_at = ?,
			repetitions = ?,
			lapses = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`)
	result, err := r.db.ExecContext(ctx, query,
		rs.State,
		rs.Stability,
		rs.Difficulty,
		nullTime(rs.LastReviewAt),
		rs.NextDueAt.UTC(),
		rs.Repetitions,
		rs.Lapses,
		now,
		rs.ID,
		rs.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update review state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("review state %d (version %d): %w", rs.ID, rs.Version, ErrVersionConflict)
	}

	rs.Version++
	rs.UpdatedAt = now
	return nil
}

// GetDueForUser returns the states due at now, earliest first
func (r *ReviewStateRepository) GetDueForUser(ctx context.Context, userID int64, now time.Time) ([]models.ReviewState, error) {
	var states []models.ReviewState
	query := r.db.Rebind(`
		SELECT * FROM review_states
		WHERE user_id = ? AND next_due_at <= ?
		ORDER BY next_due_at ASC
	`)
	if err := sqlx.SelectContext(ctx, r.db, &states, query, userID, now.UTC()); err != nil {
		return nil, fmt.Errorf("failed to get due review states: %w", err)
	}
	return states, nil
}

// CountDueForUser returns how many cards are due at now
func (r *ReviewStateRepository) CountDueForUser(ctx context.Context, userID int64, now time.Time) (int, error) {
	var count int
	query := r.db.Rebind("SELECT COUNT(*) FROM review_states WHERE user_id = ? AND next_due_at <= ?")
	if err := sqlx.GetContext(ctx, r.db, &count, query, userID, now.UTC()); err != nil {
		return 0, fmt.Errorf("failed to count due review states: %w", err)
	}
	return count, nil
}

// GetAllByUser returns every state of a user
func (r *ReviewStateRepository) GetAllByUser(ctx context.Context, userID int64) ([]models.ReviewState, error) {
	var states []models.ReviewState
	query := r.db.Rebind("SELECT * FROM review_states WHERE user_id = ? ORDER BY card_id")
	if err := sqlx.SelectContext(ctx, r.db, &states, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get review states: %w", err)
	}
	return states, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
