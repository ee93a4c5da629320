package spaced_repetition

import "fmt"

// Grade is the ordinal rating of a single review
type Grade int

const (
	GradeAgain Grade = 1
	GradeHard  Grade = 2
	GradeGood  Grade = 3
	GradeEasy  Grade = 4
)

// Valid reports whether g is between Again and Easy.
func (g Grade) Valid() bool {
	return g >= GradeAgain && g <= GradeEasy
}

func (g Grade) String() string {
	switch g {
	case GradeAgain:
		return "again"
	case GradeHard:
		return "hard"
	case GradeGood:
		return "good"
	case GradeEasy:
		return "easy"
	}
	return fmt.Sprintf("grade(%d)", int(g))
}

// GradeFromRating maps the four-button app rating (1-4) onto a Grade.
func GradeFromRating(rating int) (Grade, error) {
	g := Grade(rating)
	if !g.Valid() {
		return 0, fmt.Errorf("%w: rating %d is outside 1-4", ErrInvalidGrade, rating)
	}
	return g, nil
}

// QualityResponse is the legacy 0-5 SM-2 answer quality
type QualityResponse int

const (
	// Complete blackout, unable to recall
	QualityBlackout QualityResponse = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect QualityResponse = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar QualityResponse = 2
	// Correct response but required significant effort
	QualityCorrectDifficult QualityResponse = 3
	// Correct response after some hesitation
	QualityCorrectHesitation QualityResponse = 4
	// Perfect response with no hesitation
	QualityPerfect QualityResponse = 5
)

// GradeFromQuality maps a 0-5 quality onto a Grade. Everything below
// QualityCorrectDifficult was a failed recall.
func GradeFromQuality(q QualityResponse) (Grade, error) {
	switch {
	case q < QualityBlackout || q > QualityPerfect:
		return 0, fmt.Errorf("%w: quality %d is outside 0-5", ErrInvalidGrade, int(q))
	case q < QualityCorrectDifficult:
		return GradeAgain, nil
	case q == QualityCorrectDifficult:
		return GradeHard, nil
	case q == QualityCorrectHesitation:
		return GradeGood, nil
	default:
		return GradeEasy, nil
	}
}
