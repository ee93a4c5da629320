package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/mnemos/internal/review"
	"github.com/example/mnemos/internal/spaced_repetition"
)

var (
	reviewCard   int64
	reviewGrade  int
	reviewRating int
	reviewExpect int
	dueLimit     int
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Record a review of a card",
	Long: `Record how well the user recalled a card and print when it is due next.

Grades: 1 again, 2 hard, 3 good, 4 easy. Alternatively --rating takes the
0-5 quality scale (0-2 again, 3 hard, 4 good, 5 easy).

Examples:
  mnemos review --user 42 --card 7 --grade 3
  mnemos review --user 42 --card 7 --rating 5
  mnemos review --user 42 --card 7 --grade 1 --expect-version 3`,
	RunE: runReview,
}

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List cards due for review",
	RunE:  runDue,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(dueCmd)

	reviewCmd.Flags().Int64Var(&reviewCard, "card", 0, "Card ID")
	reviewCmd.Flags().IntVarP(&reviewGrade, "grade", "g", 0, "Grade 1-4")
	reviewCmd.Flags().IntVar(&reviewRating, "rating", -1, "Quality rating 0-5")
	reviewCmd.Flags().IntVar(&reviewExpect, "expect-version", 0, "Fail if the card's state is no longer at this version")
	reviewCmd.MarkFlagsMutuallyExclusive("grade", "rating")
	_ = reviewCmd.MarkFlagRequired("card")

	dueCmd.Flags().IntVarP(&dueLimit, "limit", "n", 20, "Maximum number of cards")
}

func parseGrade(grade, rating int) (spaced_repetition.Grade, error) {
	if rating >= 0 {
		return spaced_repetition.GradeFromQuality(spaced_repetition.QualityResponse(rating))
	}
	return spaced_repetition.GradeFromRating(grade)
}

func runReview(cmd *cobra.Command, args []string) error {
	user, err := requireUser(cmd)
	if err != nil {
		return err
	}
	grade, err := parseGrade(reviewGrade, reviewRating)
	if err != nil {
		return err
	}

	var out *review.Outcome
	if reviewExpect > 0 {
		out, err = reviewSvc.ReviewVersion(cmd.Context(), user.ID, reviewCard, reviewExpect, grade, time.Now())
	} else {
		out, err = reviewSvc.Review(cmd.Context(), user.ID, reviewCard, grade, time.Now())
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Card %d graded %s: %s, stability %.2f, difficulty %.2f, next review %s (version %d)\n",
		reviewCard, grade, out.State.State, out.State.Stability, out.State.Difficulty,
		out.State.NextDueAt.Local().Format(time.RFC1123), out.State.Version)
	return nil
}

func runDue(cmd *cobra.Command, args []string) error {
	user, err := requireUser(cmd)
	if err != nil {
		return err
	}

	due, err := reviewSvc.Due(cmd.Context(), user.ID, time.Now(), dueLimit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(due) == 0 {
		fmt.Fprintln(w, "Nothing to review")
		return nil
	}
	for _, d := range due {
		fmt.Fprintf(w, "%6d  %-10s  R=%.2f  %s\n", d.Card.ID, d.State.State, d.Retrievability, d.Card.Front)
	}
	return nil
}
