package spaced_repetition

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func reviewedAt(ts time.Time) *time.Time { return &ts }

func TestNewScheduler_RejectsShortWeightVector(t *testing.T) {
	params := DefaultParameters()
	params.Weights = params.Weights[:16]

	_, err := NewScheduler(params)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestNewScheduler_RejectsBadScalars(t *testing.T) {
	cases := map[string]func(*Parameters){
		"zero retention":      func(p *Parameters) { p.TargetRetention = 0 },
		"retention of one":    func(p *Parameters) { p.TargetRetention = 1 },
		"negative graduation": func(p *Parameters) { p.GraduationIntervalDays = -1 },
		"nan weight":          func(p *Parameters) { p.Weights[3] = math.NaN() },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			params := DefaultParameters()
			mutate(&params)
			_, err := NewScheduler(params)
			assert.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

func TestNewScheduler_CopiesWeights(t *testing.T) {
	params := DefaultParameters()
	s, err := NewScheduler(params)
	require.NoError(t, err)

	params.Weights[2] = 100
	res, err := s.Evaluate(NewMemoryState(t0, 5), GradeGood, t0)
	require.NoError(t, err)
	assert.Equal(t, 2.4, res.Stability)
	assert.Equal(t, DefaultWeights, s.Parameters().Weights)
}

func TestEvaluate_NewGood(t *testing.T) {
	s := NewDefaultScheduler()

	res, err := s.Evaluate(NewMemoryState(t0, s.InitialDifficulty()), GradeGood, t0)
	require.NoError(t, err)

	assert.Equal(t, StateLearning, res.State)
	assert.Equal(t, 2.4, res.Stability)
	assert.Equal(t, 4.93, res.Difficulty)
	assert.InDelta(t, 2.4, res.IntervalDays, 1e-9)
}

func TestEvaluate_NewAgain(t *testing.T) {
	s := NewDefaultScheduler()

	res, err := s.Evaluate(NewMemoryState(t0, 4.93), GradeAgain, t0)
	require.NoError(t, err)

	assert.Equal(t, StateLearning, res.State)
	assert.Equal(t, 0.4, res.Stability)
	assert.InDelta(t, 4.93+2*0.94, res.Difficulty, 1e-12)
	assert.Equal(t, OneMinuteDays, res.IntervalDays)
}

func TestEvaluate_NewHardUsesOneDayFloor(t *testing.T) {
	s := NewDefaultScheduler()

	res, err := s.Evaluate(NewMemoryState(t0, 4.93), GradeHard, t0)
	require.NoError(t, err)

	assert.Equal(t, StateLearning, res.State)
	assert.Equal(t, 0.6, res.Stability)
	assert.Equal(t, 1.0, res.IntervalDays)
}

func TestEvaluate_NewGraduatesWhenIntervalIsLongEnough(t *testing.T) {
	params := DefaultParameters()
	params.GraduationIntervalDays = 0
	s, err := NewScheduler(params)
	require.NoError(t, err)

	res, err := s.Evaluate(NewMemoryState(t0, 4.93), GradeEasy, t0)
	require.NoError(t, err)

	assert.Equal(t, StateReview, res.State)
	assert.Equal(t, 6.0, res.IntervalDays)
}

func TestEvaluate_ReviewLapse(t *testing.T) {
	s := NewDefaultScheduler()
	current := MemoryState{
		State:        StateReview,
		Stability:    10,
		Difficulty:   5,
		LastReviewAt: reviewedAt(t0),
		NextDueAt:    t0.Add(5 * day),
	}

	res, err := s.Evaluate(current, GradeAgain, t0.Add(5*day))
	require.NoError(t, err)

	assert.Equal(t, StateRelearning, res.State)
	assert.Equal(t, 10.0/1440, res.IntervalDays)
	assert.True(t, res.Lapse)

	wantD := 5.0 - 1.4*(1-3)
	assert.InDelta(t, wantD, res.Difficulty, 1e-12)
	// 0.33 * 7.8^-1.5 is below the stability floor
	assert.Equal(t, 0.1, res.Stability)
}

func TestEvaluate_ReviewSuccess(t *testing.T) {
	s := NewDefaultScheduler()
	current := MemoryState{
		State:        StateReview,
		Stability:    10,
		Difficulty:   5,
		LastReviewAt: reviewedAt(t0),
	}

	res, err := s.Evaluate(current, GradeGood, t0.Add(5*day))
	require.NoError(t, err)

	r := 1 / (1 + 5.0/90)
	factor := math.Exp(1.5) * (11 - 5.0) * math.Pow(10, -0.1)
	wantS := 10 * (1 + factor*(math.Exp(1-r)-1))

	assert.Equal(t, StateReview, res.State)
	assert.Equal(t, 5.0, res.Difficulty)
	assert.InDelta(t, wantS, res.Stability, 1e-9)
	assert.Equal(t, math.RoundToEven(9*wantS*(1/0.9-1)), res.IntervalDays)
	assert.False(t, res.Lapse)
}

func TestEvaluate_ReviewStaysInReviewOnSuccess(t *testing.T) {
	s := NewDefaultScheduler()
	for _, g := range []Grade{GradeHard, GradeGood, GradeEasy} {
		for _, stability := range []float64{0.1, 0.5, 3, 40} {
			current := MemoryState{
				State:        StateReview,
				Stability:    stability,
				Difficulty:   9.5,
				LastReviewAt: reviewedAt(t0),
			}
			res, err := s.Evaluate(current, g, t0.Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, StateReview, res.State, "grade %v stability %v", g, stability)
			assert.GreaterOrEqual(t, res.IntervalDays, 1.0)
			assert.Equal(t, math.Round(res.IntervalDays), res.IntervalDays)
		}
	}
}

func TestEvaluate_LearningAgainGoesToRelearning(t *testing.T) {
	s := NewDefaultScheduler()
	for _, st := range []State{StateLearning, StateRelearning} {
		current := MemoryState{
			State:        st,
			Stability:    2.4,
			Difficulty:   4.93,
			LastReviewAt: reviewedAt(t0),
		}
		res, err := s.Evaluate(current, GradeAgain, t0.Add(10*time.Minute))
		require.NoError(t, err)

		assert.Equal(t, StateRelearning, res.State)
		assert.Equal(t, RelearningIntervalDays, res.IntervalDays)
		assert.False(t, res.Lapse, "only review cards lapse")
		assert.InDelta(t, 4.93+2.8, res.Difficulty, 1e-12)
	}
}

func TestEvaluate_LearningSuccessGraduation(t *testing.T) {
	s := NewDefaultScheduler()
	current := MemoryState{
		State:        StateRelearning,
		Stability:    2.4,
		Difficulty:   4.93,
		LastReviewAt: reviewedAt(t0),
	}

	// reviewed right away: R = 1, no growth
	res, err := s.Evaluate(current, GradeGood, t0)
	require.NoError(t, err)
	assert.Equal(t, StateLearning, res.State)
	assert.InDelta(t, 2.4, res.Stability, 1e-12)
	assert.InDelta(t, 2.4, res.IntervalDays, 1e-9)

	// reviewed after the interval: enough growth to graduate
	res, err = s.Evaluate(current, GradeGood, t0.Add(3*day))
	require.NoError(t, err)
	assert.Equal(t, StateReview, res.State)
	assert.GreaterOrEqual(t, res.IntervalDays, 6.0)
}

func TestEvaluate_RejectsMissingLastReview(t *testing.T) {
	s := NewDefaultScheduler()
	for _, st := range []State{StateLearning, StateReview, StateRelearning} {
		_, err := s.Evaluate(MemoryState{State: st, Stability: 3, Difficulty: 5}, GradeGood, t0)
		assert.ErrorIs(t, err, ErrInvalidState, st.String())
	}
}

func TestEvaluate_RejectsUnknownStateAndGrade(t *testing.T) {
	s := NewDefaultScheduler()

	_, err := s.Evaluate(MemoryState{State: State(7), LastReviewAt: reviewedAt(t0)}, GradeGood, t0)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Evaluate(NewMemoryState(t0, 5), Grade(0), t0)
	assert.ErrorIs(t, err, ErrInvalidGrade)
	_, err = s.Evaluate(NewMemoryState(t0, 5), Grade(5), t0)
	assert.ErrorIs(t, err, ErrInvalidGrade)
}

func TestEvaluate_BoundsHoldForAllInputs(t *testing.T) {
	s := NewDefaultScheduler()
	states := []State{StateNew, StateLearning, StateReview, StateRelearning}
	difficulties := []float64{-50, 0, 1, 4.93, 10, 11, 1e6}
	stabilities := []float64{-3, 0, 0.05, 1, 250}
	elapsed := []time.Duration{-day, 0, time.Minute, 40 * day}

	for _, st := range states {
		for _, d := range difficulties {
			for _, stab := range stabilities {
				for _, e := range elapsed {
					for g := GradeAgain; g <= GradeEasy; g++ {
						current := MemoryState{State: st, Stability: stab, Difficulty: d}
						if st != StateNew {
							current.LastReviewAt = reviewedAt(t0)
						}
						res, err := s.Evaluate(current, g, t0.Add(e))
						require.NoError(t, err)
						assert.GreaterOrEqual(t, res.Difficulty, 1.0)
						assert.LessOrEqual(t, res.Difficulty, 10.0)
						assert.GreaterOrEqual(t, res.Stability, 0.1)
						assert.GreaterOrEqual(t, res.IntervalDays, OneMinuteDays)
					}
				}
			}
		}
	}
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	s := NewDefaultScheduler()
	current := MemoryState{
		State:        StateReview,
		Stability:    7.3,
		Difficulty:   6.1,
		LastReviewAt: reviewedAt(t0),
	}
	now := t0.Add(9*day + 3*time.Hour)

	first, err := s.Evaluate(current, GradeHard, now)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := s.Evaluate(current, GradeHard, now)
		require.NoError(t, err)
		assert.Equal(t, math.Float64bits(first.Stability), math.Float64bits(again.Stability))
		assert.Equal(t, math.Float64bits(first.Difficulty), math.Float64bits(again.Difficulty))
		assert.Equal(t, first, again)
	}
}

func TestEvaluate_HigherGradeNeverLowersStability(t *testing.T) {
	s := NewDefaultScheduler()
	for _, st := range []State{StateNew, StateLearning, StateReview, StateRelearning} {
		for _, d := range []float64{1, 5, 10} {
			current := MemoryState{State: st, Stability: 4, Difficulty: d}
			if st != StateNew {
				current.LastReviewAt = reviewedAt(t0)
			}
			prev := 0.0
			for _, g := range []Grade{GradeHard, GradeGood, GradeEasy} {
				res, err := s.Evaluate(current, g, t0.Add(6*day))
				require.NoError(t, err)
				assert.GreaterOrEqual(t, res.Stability, prev, "state %v difficulty %v grade %v", st, d, g)
				prev = res.Stability
			}
		}
	}
}

func TestRetrievability(t *testing.T) {
	assert.Equal(t, 0.0, Retrievability(0, 3))
	assert.Equal(t, 0.0, Retrievability(-1, 3))
	assert.Equal(t, 1.0, Retrievability(5, 0))
	assert.InDelta(t, 0.9, Retrievability(1, 1), 1e-12)

	s := NewDefaultScheduler()
	assert.Equal(t, 0.0, s.Retrievability(NewMemoryState(t0, 5), t0.Add(day)))
	m := MemoryState{State: StateReview, Stability: 1, LastReviewAt: reviewedAt(t0)}
	assert.InDelta(t, 0.9, s.Retrievability(m, t0.Add(day)), 1e-12)
}

func TestApply_UpdatesBookkeeping(t *testing.T) {
	s := NewDefaultScheduler()
	m := NewMemoryState(t0, s.InitialDifficulty())

	res, err := s.Evaluate(m, GradeGood, t0)
	require.NoError(t, err)
	m = m.Apply(res, t0)

	require.NotNil(t, m.LastReviewAt)
	assert.Equal(t, t0, *m.LastReviewAt)
	assert.Equal(t, StateLearning, m.State)
	assert.Equal(t, 1, m.Repetitions)
	assert.Equal(t, 0, m.Lapses)
	assert.WithinDuration(t, t0.Add(time.Duration(2.4*float64(day))), m.NextDueAt, time.Millisecond)

	review := MemoryState{State: StateReview, Stability: 20, Difficulty: 5, LastReviewAt: reviewedAt(t0), Repetitions: 4}
	now := t0.Add(20 * day)
	res, err = s.Evaluate(review, GradeAgain, now)
	require.NoError(t, err)
	next := review.Apply(res, now)

	assert.Equal(t, StateRelearning, next.State)
	assert.Equal(t, 5, next.Repetitions)
	assert.Equal(t, 1, next.Lapses)
	assert.Equal(t, now.Add(10*time.Minute), next.NextDueAt)
}

func TestApply_FeedingStaleStateDoubleCounts(t *testing.T) {
	s := NewDefaultScheduler()
	m := MemoryState{State: StateReview, Stability: 5, Difficulty: 5, LastReviewAt: reviewedAt(t0)}
	now := t0.Add(5 * day)

	res, err := s.Evaluate(m, GradeHard, now)
	require.NoError(t, err)
	updated := m.Apply(res, now)

	// evaluating the same review twice moves difficulty twice
	again, err := s.Evaluate(updated, GradeHard, now)
	require.NoError(t, err)
	assert.InDelta(t, 6.4, res.Difficulty, 1e-12)
	assert.InDelta(t, 7.8, again.Difficulty, 1e-12)
	assert.Equal(t, 2, updated.Apply(again, now).Repetitions)
}

func TestParseState(t *testing.T) {
	for _, st := range []State{StateNew, StateLearning, StateReview, StateRelearning} {
		parsed, err := ParseState(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, parsed)
	}
	_, err := ParseState("graduated")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.False(t, State(9).Valid())
}

func TestEvaluate_LongIntervalIsCapped(t *testing.T) {
	s := NewDefaultScheduler()
	current := MemoryState{
		State:        StateReview,
		Stability:    150000,
		Difficulty:   1,
		LastReviewAt: reviewedAt(t0),
	}
	now := t0.Add(30 * day)

	res, err := s.Evaluate(current, GradeEasy, now)
	require.NoError(t, err)
	assert.Equal(t, MaxIntervalDays, res.IntervalDays)

	next := current.Apply(res, now)
	assert.True(t, next.NextDueAt.After(now), "next due %v is not after %v", next.NextDueAt, now)
	assert.Equal(t, now.Add(time.Duration(MaxIntervalDays)*day), next.NextDueAt)

	// a hand-built result beyond the cap still lands in the future
	huge := SchedulingResult{State: StateReview, IntervalDays: 1e9}
	assert.Equal(t, time.Duration(MaxIntervalDays)*day, huge.Interval())
}
