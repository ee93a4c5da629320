// Package spaced_repetition implements the FSRS-style memory model used to
// decide when a card should be shown again.
//
// A Scheduler is a pure calculator: it holds an immutable parameter set and
// turns (memory state, grade, now) into a SchedulingResult. Persisting the
// result and serialising reviews of the same card is up to the caller.
package spaced_repetition

import (
	"fmt"
	"math"
	"time"
)

const (
	day = 24 * time.Hour

	minStability  = 0.1
	minDifficulty = 1.0
	maxDifficulty = 10.0

	// OneMinuteDays is the first learning step and the floor for sub-day intervals
	OneMinuteDays = 1.0 / (24 * 60)
	// RelearningIntervalDays is the fixed step after a failed recall
	RelearningIntervalDays = 10.0 / (24 * 60)
	// MaxIntervalDays caps every interval at a hundred years
	MaxIntervalDays = 36500.0
)

// Scheduler evaluates reviews against a fixed parameter set.
// It is safe for concurrent use.
type Scheduler struct {
	w               Weights
	targetRetention float64
	graduation      float64
}

// NewScheduler validates params once and returns a Scheduler.
func NewScheduler(params Parameters) (*Scheduler, error) {
	w, err := NewWeights(params.Weights)
	if err != nil {
		return nil, err
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Scheduler{
		w:               w,
		targetRetention: params.TargetRetention,
		graduation:      params.GraduationIntervalDays,
	}, nil
}

// NewDefaultScheduler returns a Scheduler with DefaultParameters.
func NewDefaultScheduler() *Scheduler {
	s, err := NewScheduler(DefaultParameters())
	if err != nil {
		panic(err)
	}
	return s
}

// Parameters returns a copy of the parameters the scheduler was built with.
func (s *Scheduler) Parameters() Parameters {
	return Parameters{
		Weights:                s.w.Vector(),
		TargetRetention:        s.targetRetention,
		GraduationIntervalDays: s.graduation,
	}
}

// InitialDifficulty is the difficulty a fresh card starts with.
func (s *Scheduler) InitialDifficulty() float64 {
	return clampDifficulty(s.w.InitialDifficulty)
}

// Evaluate computes the outcome of reviewing current with grade at now.
func (s *Scheduler) Evaluate(current MemoryState, grade Grade, now time.Time) (SchedulingResult, error) {
	if !grade.Valid() {
		return SchedulingResult{}, fmt.Errorf("%w: %d", ErrInvalidGrade, int(grade))
	}

	var res SchedulingResult

	switch current.State {
	case StateNew:
		res = s.evaluateNew(grade)

	case StateLearning, StateRelearning:
		elapsed, err := elapsedDays(current, now)
		if err != nil {
			return SchedulingResult{}, err
		}
		res = s.evaluateLearning(current, grade, elapsed)

	case StateReview:
		elapsed, err := elapsedDays(current, now)
		if err != nil {
			return SchedulingResult{}, err
		}
		res = s.evaluateReview(current, grade, elapsed)

	default:
		return SchedulingResult{}, fmt.Errorf("%w: unknown state %v", ErrInvalidState, current.State)
	}

	res.Stability = math.Max(minStability, res.Stability)

	if res.State == StateReview {
		res.IntervalDays = math.Max(1, math.RoundToEven(res.IntervalDays))
	} else if res.IntervalDays < OneMinuteDays {
		res.IntervalDays = OneMinuteDays
	}
	res.IntervalDays = math.Min(res.IntervalDays, MaxIntervalDays)

	return res, nil
}

func (s *Scheduler) evaluateNew(grade Grade) SchedulingResult {
	stability, difficulty := s.initialStabilityDifficulty(grade)

	if grade == GradeAgain {
		return SchedulingResult{
			Stability:    s.w.InitialStability[0],
			Difficulty:   difficulty,
			State:        StateLearning,
			IntervalDays: OneMinuteDays,
		}
	}

	interval := s.interval(stability)
	return SchedulingResult{
		Stability:    stability,
		Difficulty:   difficulty,
		State:        s.graduate(interval),
		IntervalDays: interval,
	}
}

func (s *Scheduler) evaluateLearning(current MemoryState, grade Grade, elapsed float64) SchedulingResult {
	difficulty := s.nextDifficulty(current.Difficulty, grade)

	if grade == GradeAgain {
		return SchedulingResult{
			Stability:    s.stabilityAfterLapse(difficulty),
			Difficulty:   difficulty,
			State:        StateRelearning,
			IntervalDays: RelearningIntervalDays,
		}
	}

	r := Retrievability(current.Stability, elapsed)
	stability := s.stabilityAfterSuccess(current.Stability, difficulty, r)
	interval := s.interval(stability)

	return SchedulingResult{
		Stability:    stability,
		Difficulty:   difficulty,
		State:        s.graduate(interval),
		IntervalDays: interval,
	}
}

func (s *Scheduler) evaluateReview(current MemoryState, grade Grade, elapsed float64) SchedulingResult {
	r := Retrievability(current.Stability, elapsed)
	difficulty := s.nextDifficulty(current.Difficulty, grade)

	if grade == GradeAgain {
		return SchedulingResult{
			Stability:    s.stabilityAfterLapse(difficulty),
			Difficulty:   difficulty,
			State:        StateRelearning,
			IntervalDays: RelearningIntervalDays,
			Lapse:        true,
		}
	}

	stability := s.stabilityAfterSuccess(current.Stability, difficulty, r)
	return SchedulingResult{
		Stability:    stability,
		Difficulty:   difficulty,
		State:        StateReview,
		IntervalDays: s.interval(stability),
	}
}

// Retrievability returns the modelled recall probability of m at now.
// Cards that were never reviewed have no memory to recall.
func (s *Scheduler) Retrievability(m MemoryState, now time.Time) float64 {
	if m.State == StateNew || m.LastReviewAt == nil {
		return 0
	}
	elapsed := math.Max(0, now.Sub(*m.LastReviewAt).Hours()/24)
	return Retrievability(m.Stability, elapsed)
}

// Retrievability is R(S, t) = (1 + t/(9S))^-1, and 0 when S <= 0.
func Retrievability(stability, elapsedDays float64) float64 {
	if stability <= 0 {
		return 0
	}
	return 1 / (1 + elapsedDays/(9*stability))
}

func (s *Scheduler) graduate(interval float64) State {
	if interval >= s.graduation {
		return StateReview
	}
	return StateLearning
}

func (s *Scheduler) initialStabilityDifficulty(grade Grade) (float64, float64) {
	stability := s.w.InitialStability[grade-1]
	difficulty := s.w.InitialDifficulty - s.w.InitialDifficultySlope*float64(grade-GradeGood)
	return stability, clampDifficulty(difficulty)
}

func (s *Scheduler) nextDifficulty(d float64, grade Grade) float64 {
	return clampDifficulty(d - s.w.DifficultyStep*float64(grade-GradeGood))
}

func (s *Scheduler) stabilityAfterSuccess(stability, difficulty, r float64) float64 {
	factor := math.Exp(s.w.SuccessScale) *
		(11 - difficulty) *
		math.Pow(math.Max(stability, minStability), -s.w.SuccessStabilityDecay)
	increase := math.Max(0, factor*(math.Exp(1-r)-1))
	return stability * (1 + increase)
}

func (s *Scheduler) stabilityAfterLapse(difficulty float64) float64 {
	return s.w.LapseScale * math.Pow(math.Max(difficulty, minDifficulty), -s.w.LapseDifficultyExp)
}

// interval solves R(S, I) = target retention for I, at least one day.
func (s *Scheduler) interval(stability float64) float64 {
	if stability <= 0 {
		return 1
	}
	return math.Max(1, 9*stability*(1/s.targetRetention-1))
}

func elapsedDays(m MemoryState, now time.Time) (float64, error) {
	if m.LastReviewAt == nil {
		return 0, fmt.Errorf("%w: %v card has no last review time", ErrInvalidState, m.State)
	}
	return math.Max(0, now.Sub(*m.LastReviewAt).Hours()/24), nil
}

func clampDifficulty(d float64) float64 {
	return math.Max(minDifficulty, math.Min(maxDifficulty, d))
}
