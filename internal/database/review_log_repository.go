package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/mnemos/pkg/models"
)

// ReviewLogRepository handles database operations for the review history
type ReviewLogRepository struct {
	db executor
}

// NewReviewLogRepository creates a new repository instance
func NewReviewLogRepository() *ReviewLogRepository {
	return &ReviewLogRepository{db: DB}
}

// WithTx returns a repository bound to tx
func (r *ReviewLogRepository) WithTx(tx *sqlx.Tx) *ReviewLogRepository {
	return &ReviewLogRepository{db: tx}
}

// Create appends a log entry, assigning it a new ID
func (r *ReviewLogRepository) Create(ctx context.Context, entry *models.ReviewLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	query := r.db.Rebind(`
		INSERT INTO review_logs (
			id, user_id, card_id, grade, state_before, state_after,
			stability, difficulty, interval_days, reviewed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.CardID,
		entry.Grade,
		entry.StateBefore,
		entry.StateAfter,
		entry.Stability,
		entry.Difficulty,
		entry.IntervalDays,
		entry.ReviewedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create review log: %w", err)
	}
	return nil
}

// GetByCard returns the history of one card for a user, oldest first
func (r *ReviewLogRepository) GetByCard(ctx context.Context, userID, cardID int64) ([]models.ReviewLog, error) {
	var logs []models.ReviewLog
	query := r.db.Rebind(`
		SELECT * FROM review_logs
		WHERE user_id = ? AND card_id = ?
		ORDER BY reviewed_at ASC
	`)
	if err := sqlx.SelectContext(ctx, r.db, &logs, query, userID, cardID); err != nil {
		return nil, fmt.Errorf("failed to get review logs: %w", err)
	}
	return logs, nil
}
