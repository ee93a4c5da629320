package spaced_repetition

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidParameters is returned when a Scheduler can't be built from the given parameters
	ErrInvalidParameters = errors.New("invalid scheduler parameters")
	// ErrInvalidState is returned when a memory state violates the caller contract
	ErrInvalidState = errors.New("invalid memory state")
	// ErrInvalidGrade is returned for grades outside Again..Easy
	ErrInvalidGrade = errors.New("invalid grade")
)

// State is the lifecycle stage of a card for one user
type State int

const (
	StateNew State = iota
	StateLearning
	StateReview
	StateRelearning
)

var stateNames = map[State]string{
	StateNew:        "new",
	StateLearning:   "learning",
	StateReview:     "review",
	StateRelearning: "relearning",
}

// String returns the storage name of the state
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Valid reports whether s is one of the four known states.
func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// ParseState converts a storage name back into a State.
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown state %q", ErrInvalidState, name)
}

// MemoryState is the scheduling state of one card for one user.
//
// The scheduler only reads State, Stability, Difficulty and LastReviewAt.
// Repetitions and Lapses are kept for reporting.
type MemoryState struct {
	State        State
	Stability    float64
	Difficulty   float64
	LastReviewAt *time.Time
	NextDueAt    time.Time
	Repetitions  int
	Lapses       int
}

// NewMemoryState returns the state of a card the user has never reviewed.
// It is due immediately.
func NewMemoryState(now time.Time, difficulty float64) MemoryState {
	return MemoryState{
		State:      StateNew,
		Stability:  0,
		Difficulty: clampDifficulty(difficulty),
		NextDueAt:  now,
	}
}

// SchedulingResult is the outcome of evaluating one review.
type SchedulingResult struct {
	Stability    float64
	Difficulty   float64
	State        State
	IntervalDays float64
	// Lapse is set when a Review card was graded Again
	Lapse bool
}

// Interval returns IntervalDays as a duration, capped at MaxIntervalDays.
func (r SchedulingResult) Interval() time.Duration {
	days := math.Min(r.IntervalDays, MaxIntervalDays)
	return time.Duration(math.Round(days * float64(day)))
}

// Apply returns the state that replaces m once result has been evaluated at now.
// Callers must persist the returned value before evaluating the next review
// of the same card, otherwise a single review gets counted twice.
func (m MemoryState) Apply(result SchedulingResult, now time.Time) MemoryState {
	reviewed := now
	next := MemoryState{
		State:        result.State,
		Stability:    result.Stability,
		Difficulty:   result.Difficulty,
		LastReviewAt: &reviewed,
		NextDueAt:    now.Add(result.Interval()),
		Repetitions:  m.Repetitions + 1,
		Lapses:       m.Lapses,
	}
	if result.Lapse {
		next.Lapses++
	}
	return next
}
