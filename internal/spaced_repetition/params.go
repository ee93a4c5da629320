package spaced_repetition

import (
	"fmt"
	"math"
)

// MinWeights is the number of weights the model reads.
const MinWeights = 17

const (
	// DefaultTargetRetention is the recall probability intervals are aimed at
	DefaultTargetRetention = 0.9
	// DefaultGraduationIntervalDays is the interval at which a card leaves learning
	DefaultGraduationIntervalDays = 6.0
)

// DefaultWeights is the default FSRS-4.5 style weight vector.
var DefaultWeights = []float64{
	0.4, 0.6, 2.4, 5.8,
	4.93, 0.94, 1.4, 0.02,
	1.5, 0.1, 0.8, 2.5,
	0.02, 0.2, 0.05, 0.33,
	1.50,
}

// Weights names the entries of the weight vector the scheduler uses.
// Entries the formulas don't read are kept so the vector round-trips.
type Weights struct {
	// InitialStability is the first stability per grade (w0..w3)
	InitialStability [4]float64
	// InitialDifficulty is the difficulty after a first Good (w4)
	InitialDifficulty float64
	// InitialDifficultySlope shifts the first difficulty per grade step (w5)
	InitialDifficultySlope float64
	// DifficultyStep shifts difficulty per grade step on later reviews (w6)
	DifficultyStep float64
	// SuccessScale is exponentiated to scale stability growth (w8)
	SuccessScale float64
	// SuccessStabilityDecay damps growth for already stable cards (w9)
	SuccessStabilityDecay float64
	// LapseScale is the post-lapse stability multiplier (w15)
	LapseScale float64
	// LapseDifficultyExp is the difficulty exponent after a lapse (w16)
	LapseDifficultyExp float64

	raw []float64
}

// NewWeights builds Weights from a flat vector.
func NewWeights(w []float64) (Weights, error) {
	if len(w) < MinWeights {
		return Weights{}, fmt.Errorf("%w: need at least %d weights, got %d", ErrInvalidParameters, MinWeights, len(w))
	}
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Weights{}, fmt.Errorf("%w: weight w[%d] is not finite: %v", ErrInvalidParameters, i, v)
		}
	}

	raw := make([]float64, len(w))
	copy(raw, w)

	return Weights{
		InitialStability:       [4]float64{raw[0], raw[1], raw[2], raw[3]},
		InitialDifficulty:      raw[4],
		InitialDifficultySlope: raw[5],
		DifficultyStep:         raw[6],
		SuccessScale:           raw[8],
		SuccessStabilityDecay:  raw[9],
		LapseScale:             raw[15],
		LapseDifficultyExp:     raw[16],
		raw:                    raw,
	}, nil
}

// Vector returns a copy of the flat weight vector.
func (w Weights) Vector() []float64 {
	out := make([]float64, len(w.raw))
	copy(out, w.raw)
	return out
}

// Parameters configures a Scheduler.
type Parameters struct {
	Weights                []float64 `yaml:"weights"`
	TargetRetention        float64   `yaml:"target_retention"`
	GraduationIntervalDays float64   `yaml:"graduation_interval_days"`
}

// DefaultParameters returns the stock parameter set
func DefaultParameters() Parameters {
	w := make([]float64, len(DefaultWeights))
	copy(w, DefaultWeights)
	return Parameters{
		Weights:                w,
		TargetRetention:        DefaultTargetRetention,
		GraduationIntervalDays: DefaultGraduationIntervalDays,
	}
}

func (p Parameters) validate() error {
	if math.IsNaN(p.TargetRetention) || p.TargetRetention <= 0 || p.TargetRetention >= 1 {
		return fmt.Errorf("%w: target retention must be in (0, 1), got %v", ErrInvalidParameters, p.TargetRetention)
	}
	if math.IsNaN(p.GraduationIntervalDays) || math.IsInf(p.GraduationIntervalDays, 0) || p.GraduationIntervalDays < 0 {
		return fmt.Errorf("%w: graduation interval must be a non-negative number of days, got %v", ErrInvalidParameters, p.GraduationIntervalDays)
	}
	return nil
}
