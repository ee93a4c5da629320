package spaced_repetition

import (
	"sort"
	"time"
)

// QueuedCard pairs a card with its memory state.
type QueuedCard struct {
	CardID int64
	State  MemoryState
}

// DueCards returns at most limit cards from queue that are due at now.
//
// Order:
//  1. cards that were never reviewed
//  2. lowest current retrievability (closest to being forgotten)
//  3. earliest due date
func (s *Scheduler) DueCards(queue []QueuedCard, now time.Time, limit int) []QueuedCard {
	type ranked struct {
		QueuedCard
		r float64
	}

	var due []ranked
	for _, q := range queue {
		if q.State.NextDueAt.After(now) {
			continue
		}
		due = append(due, ranked{QueuedCard: q, r: s.Retrievability(q.State, now)})
	}

	sort.SliceStable(due, func(i, j int) bool {
		newI := due[i].State.State == StateNew
		newJ := due[j].State.State == StateNew
		if newI != newJ {
			return newI
		}
		if due[i].r != due[j].r {
			return due[i].r < due[j].r
		}
		return due[i].State.NextDueAt.Before(due[j].State.NextDueAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	out := make([]QueuedCard, len(due))
	for i := range due {
		out[i] = due[i].QueuedCard
	}
	return out
}

// MasteredStability is the stability, in days, above which a card counts as learned
const MasteredStability = 20.0

// IsMastered reports whether a card is considered learned.
func IsMastered(m MemoryState) bool {
	return IsMasteredStability(m.Stability)
}

// IsMasteredStability applies the mastery rule to a bare stability value,
// for callers that only have the number (review logs, aggregates).
func IsMasteredStability(stability float64) bool {
	return stability > MasteredStability
}
