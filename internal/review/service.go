// Package review runs graded reviews against stored memory states.
//
// Each review is a read-evaluate-write of one (user, card) row inside a
// transaction. The write is guarded by the row version, so two reviews racing
// on the same card can't both win: the loser gets database.ErrVersionConflict
// and has to reload before grading again.
package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"

	"github.com/example/mnemos/internal/database"
	"github.com/example/mnemos/internal/spaced_repetition"
	"github.com/example/mnemos/pkg/models"
)

// Outcome is the result of one review
type Outcome struct {
	State  models.ReviewState
	Result spaced_repetition.SchedulingResult
}

// DueCard is a card waiting to be reviewed
type DueCard struct {
	Card           models.Flashcard
	State          spaced_repetition.MemoryState
	Retrievability float64
}

// Service records reviews
type Service struct {
	scheduler *spaced_repetition.Scheduler
	states    *database.ReviewStateRepository
	logs      *database.ReviewLogRepository
	cards     *database.FlashcardRepository
	cardCache *lru.Cache[int64, models.Flashcard]
}

// cardCacheSize bounds the cards kept in memory for due listings
const cardCacheSize = 1024

// NewService creates a service using the global database connection
func NewService(scheduler *spaced_repetition.Scheduler) (*Service, error) {
	cache, err := lru.New[int64, models.Flashcard](cardCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create card cache: %w", err)
	}
	return &Service{
		scheduler: scheduler,
		states:    database.NewReviewStateRepository(),
		logs:      database.NewReviewLogRepository(),
		cards:     database.NewFlashcardRepository(),
		cardCache: cache,
	}, nil
}

// Start makes sure the user has a state for the card, creating a New one
// that is due at now. Existing states are returned unchanged.
func (s *Service) Start(ctx context.Context, userID, cardID int64, now time.Time) (*models.ReviewState, error) {
	var rs *models.ReviewState
	err := database.InTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		rs, err = s.getOrCreate(ctx, s.states.WithTx(tx), userID, cardID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// Review grades a card for a user at now and stores the new state
func (s *Service) Review(ctx context.Context, userID, cardID int64, grade spaced_repetition.Grade, now time.Time) (*Outcome, error) {
	return s.review(ctx, userID, cardID, 0, grade, now)
}

// ReviewVersion grades a card that was shown to the user at the given state
// version. When another review has been stored since, nothing is written and
// the error wraps database.ErrVersionConflict.
func (s *Service) ReviewVersion(ctx context.Context, userID, cardID int64, version int, grade spaced_repetition.Grade, now time.Time) (*Outcome, error) {
	if version <= 0 {
		return nil, fmt.Errorf("invalid review state version %d", version)
	}
	return s.review(ctx, userID, cardID, version, grade, now)
}

// review runs one graded review; version 0 accepts whatever state is stored
func (s *Service) review(ctx context.Context, userID, cardID int64, version int, grade spaced_repetition.Grade, now time.Time) (*Outcome, error) {
	var out Outcome

	err := database.InTx(ctx, func(tx *sqlx.Tx) error {
		states := s.states.WithTx(tx)

		rs, err := s.getOrCreate(ctx, states, userID, cardID, now)
		if err != nil {
			return err
		}
		if version > 0 && rs.Version != version {
			return fmt.Errorf("review state %d is at version %d, not %d: %w",
				rs.ID, rs.Version, version, database.ErrVersionConflict)
		}
		before := rs.State

		current, err := ToMemoryState(rs)
		if err != nil {
			return err
		}

		result, err := s.scheduler.Evaluate(current, grade, now)
		if err != nil {
			return fmt.Errorf("failed to evaluate review of card %d: %w", cardID, err)
		}

		applyMemoryState(rs, current.Apply(result, now))
		if err := states.Update(ctx, rs); err != nil {
			return err
		}

		entry := &models.ReviewLog{
			UserID:       userID,
			CardID:       cardID,
			Grade:        int(grade),
			StateBefore:  before,
			StateAfter:   rs.State,
			Stability:    result.Stability,
			Difficulty:   result.Difficulty,
			IntervalDays: result.IntervalDays,
			ReviewedAt:   now,
		}
		if err := s.logs.WithTx(tx).Create(ctx, entry); err != nil {
			return err
		}

		out = Outcome{State: *rs, Result: result}
		return nil
	})
	if err != nil {
		if errors.Is(err, database.ErrVersionConflict) {
			log.Printf("Concurrent review of card %d by user %d rejected", cardID, userID)
		}
		return nil, err
	}

	return &out, nil
}

// Due returns up to limit cards due at now, most urgent first
func (s *Service) Due(ctx context.Context, userID int64, now time.Time, limit int) ([]DueCard, error) {
	rows, err := s.states.GetDueForUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	queue := make([]spaced_repetition.QueuedCard, 0, len(rows))
	for i := range rows {
		m, err := ToMemoryState(&rows[i])
		if err != nil {
			log.Printf("Skipping review state %d: %v", rows[i].ID, err)
			continue
		}
		queue = append(queue, spaced_repetition.QueuedCard{CardID: rows[i].CardID, State: m})
	}

	var due []DueCard
	for _, q := range s.scheduler.DueCards(queue, now, limit) {
		card, err := s.card(ctx, q.CardID)
		if err != nil {
			return nil, err
		}
		due = append(due, DueCard{
			Card:           card,
			State:          q.State,
			Retrievability: s.scheduler.Retrievability(q.State, now),
		})
	}
	return due, nil
}

// card loads a flashcard, keeping recently listed ones in memory
func (s *Service) card(ctx context.Context, id int64) (models.Flashcard, error) {
	if c, ok := s.cardCache.Get(id); ok {
		return c, nil
	}
	c, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return models.Flashcard{}, err
	}
	s.cardCache.Add(id, *c)
	return *c, nil
}

func (s *Service) getOrCreate(ctx context.Context, states *database.ReviewStateRepository, userID, cardID int64, now time.Time) (*models.ReviewState, error) {
	rs, err := states.GetByUserAndCard(ctx, userID, cardID)
	if err == nil {
		return rs, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	rs = &models.ReviewState{UserID: userID, CardID: cardID}
	applyMemoryState(rs, spaced_repetition.NewMemoryState(now, s.scheduler.InitialDifficulty()))
	if err := states.Create(ctx, rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// ToMemoryState converts a stored row into the scheduler's value type
func ToMemoryState(rs *models.ReviewState) (spaced_repetition.MemoryState, error) {
	st, err := spaced_repetition.ParseState(rs.State)
	if err != nil {
		return spaced_repetition.MemoryState{}, fmt.Errorf("review state %d: %w", rs.ID, err)
	}
	return spaced_repetition.MemoryState{
		State:        st,
		Stability:    rs.Stability,
		Difficulty:   rs.Difficulty,
		LastReviewAt: rs.LastReviewAt,
		NextDueAt:    rs.NextDueAt,
		Repetitions:  rs.Repetitions,
		Lapses:       rs.Lapses,
	}, nil
}

func applyMemoryState(rs *models.ReviewState, m spaced_repetition.MemoryState) {
	rs.State = m.State.String()
	rs.Stability = m.Stability
	rs.Difficulty = m.Difficulty
	rs.LastReviewAt = m.LastReviewAt
	rs.NextDueAt = m.NextDueAt
	rs.Repetitions = m.Repetitions
	rs.Lapses = m.Lapses
}
