package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/mnemos/internal/spaced_repetition"
	"github.com/example/mnemos/pkg/models"
)

// masteredCondition is spaced_repetition.IsMastered as a SQL predicate on review_states
var masteredCondition = fmt.Sprintf("stability > %g", spaced_repetition.MasteredStability)

// StatisticsRepository computes progress summaries
type StatisticsRepository struct {
	db executor
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository() *StatisticsRepository {
	return &StatisticsRepository{db: DB}
}

// GetUserStatistics returns a summary of a user's cards and review history
func (r *StatisticsRepository) GetUserStatistics(ctx context.Context, userID int64, now time.Time) (*models.Statistics, error) {
	stats := &models.Statistics{
		UserID:  userID,
		ByState: make(map[string]int),
	}

	var totals struct {
		Total         int     `db:"total"`
		Lapses        int     `db:"lapses"`
		AvgStability  float64 `db:"avg_stability"`
		AvgDifficulty float64 `db:"avg_difficulty"`
	}
	query := r.db.Rebind(`
		SELECT COUNT(*) AS total,
			COALESCE(SUM(lapses), 0) AS lapses,
			COALESCE(AVG(stability), 0) AS avg_stability,
			COALESCE(AVG(difficulty), 0) AS avg_difficulty
		FROM review_states WHERE user_id = ?
	`)
	if err := sqlx.GetContext(ctx, r.db, &totals, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get card totals: %w", err)
	}
	stats.TotalCards = totals.Total
	stats.Lapses = totals.Lapses
	stats.AvgStability = totals.AvgStability
	stats.AvgDifficulty = totals.AvgDifficulty

	var byState []struct {
		State string `db:"state"`
		Count int    `db:"n"`
	}
	query = r.db.Rebind("SELECT state, COUNT(*) AS n FROM review_states WHERE user_id = ? GROUP BY state")
	if err := sqlx.SelectContext(ctx, r.db, &byState, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get per-state counts: %w", err)
	}
	for _, s := range byState {
		stats.ByState[s.State] = s.Count
	}

	query = r.db.Rebind("SELECT COUNT(*) FROM review_states WHERE user_id = ? AND next_due_at <= ?")
	if err := sqlx.GetContext(ctx, r.db, &stats.DueNow, query, userID, now.UTC()); err != nil {
		return nil, fmt.Errorf("failed to count due cards: %w", err)
	}

	query = r.db.Rebind("SELECT COUNT(*) FROM review_states WHERE user_id = ? AND " + masteredCondition)
	if err := sqlx.GetContext(ctx, r.db, &stats.Mastered, query, userID); err != nil {
		return nil, fmt.Errorf("failed to count mastered cards: %w", err)
	}

	var reviews struct {
		Total  int `db:"total"`
		Passed int `db:"passed"`
	}
	query = r.db.Rebind(`
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN grade > 1 THEN 1 ELSE 0 END), 0) AS passed
		FROM review_logs WHERE user_id = ?
	`)
	if err := sqlx.GetContext(ctx, r.db, &reviews, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get review totals: %w", err)
	}
	stats.ReviewsTotal = reviews.Total
	stats.ReviewsPassed = reviews.Passed

	return stats, nil
}

// GetDailyStats returns one entry per UTC day for the last days days up to
// and including the day of now, oldest first. Days without reviews are zero.
func (r *StatisticsRepository) GetDailyStats(ctx context.Context, userID int64, now time.Time, days int) ([]models.DailyStats, error) {
	if days <= 0 {
		return nil, nil
	}

	today := now.UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))

	var logs []models.ReviewLog
	query := r.db.Rebind(`
		SELECT * FROM review_logs
		WHERE user_id = ? AND reviewed_at >= ? AND reviewed_at < ?
		ORDER BY reviewed_at ASC
	`)
	if err := sqlx.SelectContext(ctx, r.db, &logs, query, userID, since, today.AddDate(0, 0, 1)); err != nil {
		return nil, fmt.Errorf("failed to get review logs: %w", err)
	}

	stats := make([]models.DailyStats, days)
	for i := range stats {
		stats[i].Date = since.AddDate(0, 0, i)
	}

	// a card counts as mastered once per day
	mastered := make(map[int]map[int64]bool)
	for _, entry := range logs {
		i := int(entry.ReviewedAt.UTC().Sub(since) / (24 * time.Hour))
		if i < 0 || i >= days {
			continue
		}
		day := &stats[i]
		day.TotalReviews++
		if entry.Grade > int(spaced_repetition.GradeAgain) {
			day.CorrectReviews++
		}
		if entry.StateBefore == spaced_repetition.StateNew.String() {
			day.NewCardsStudied++
		}
		if spaced_repetition.IsMasteredStability(entry.Stability) {
			if mastered[i] == nil {
				mastered[i] = make(map[int64]bool)
			}
			if !mastered[i][entry.CardID] {
				mastered[i][entry.CardID] = true
				day.CardsMastered++
			}
		}
	}
	return stats, nil
}

// GetSetProgress returns progress for every set the user owns or has
// studied, ordered by title
func (r *StatisticsRepository) GetSetProgress(ctx context.Context, userID int64) ([]models.SetProgress, error) {
	var progress []models.SetProgress
	query := r.db.Rebind(`
		SELECT s.id AS set_id, s.title,
			(SELECT COUNT(*) FROM flashcards f WHERE f.set_id = s.id) AS total_cards,
			(SELECT COUNT(*) FROM review_states rs JOIN flashcards f ON f.id = rs.card_id
				WHERE f.set_id = s.id AND rs.user_id = ? AND rs.repetitions > 0) AS cards_reviewed,
			(SELECT COUNT(*) FROM review_states rs JOIN flashcards f ON f.id = rs.card_id
				WHERE f.set_id = s.id AND rs.user_id = ? AND rs.` + masteredCondition + `) AS cards_mastered
		FROM flashcard_sets s
		WHERE s.created_by = ? OR s.id IN (
			SELECT f.set_id FROM review_states rs JOIN flashcards f ON f.id = rs.card_id
			WHERE rs.user_id = ?
		)
		ORDER BY s.title
	`)
	if err := sqlx.SelectContext(ctx, r.db, &progress, query, userID, userID, userID, userID); err != nil {
		return nil, fmt.Errorf("failed to get set progress: %w", err)
	}

	// last review per set; the column is read directly so drivers keep its type
	var reviewed []struct {
		SetID        int64     `db:"set_id"`
		LastReviewAt time.Time `db:"last_review_at"`
	}
	query = r.db.Rebind(`
		SELECT f.set_id, rs.last_review_at
		FROM review_states rs JOIN flashcards f ON f.id = rs.card_id
		WHERE rs.user_id = ? AND rs.last_review_at IS NOT NULL
	`)
	if err := sqlx.SelectContext(ctx, r.db, &reviewed, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get last reviews: %w", err)
	}

	last := make(map[int64]time.Time)
	for _, row := range reviewed {
		if row.LastReviewAt.After(last[row.SetID]) {
			last[row.SetID] = row.LastReviewAt
		}
	}
	for i := range progress {
		if t, ok := last[progress[i].SetID]; ok {
			t := t
			progress[i].LastReviewed = &t
		}
	}
	return progress, nil
}
