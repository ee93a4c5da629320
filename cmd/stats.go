package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/mnemos/internal/database"
	"github.com/example/mnemos/internal/spaced_repetition"
	"github.com/example/mnemos/pkg/models"
)

var (
	statsDays  int
	statsSetID int64
	statsCards bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	Long: `Show a summary of the user's cards and reviews.

Examples:
  mnemos stats --user 42              # Totals and per-state counts
  mnemos stats --user 42 --days 7     # Add a day-by-day breakdown
  mnemos stats --user 42 --set 3      # Progress through one set
  mnemos stats --user 42 --cards      # Memory state of every card`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().IntVar(&statsDays, "days", 0, "Show the last N days of reviews")
	statsCmd.Flags().Int64Var(&statsSetID, "set", 0, "Show progress for one set only")
	statsCmd.Flags().BoolVar(&statsCards, "cards", false, "List the memory state of every card")
}

func runStats(cmd *cobra.Command, args []string) error {
	user, err := requireUser(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	now := time.Now()
	repo := database.NewStatisticsRepository()
	w := cmd.OutOrStdout()

	if statsSetID != 0 {
		set, err := database.NewFlashcardSetRepository().GetByID(ctx, statsSetID)
		if err != nil {
			return err
		}
		progress, err := repo.GetSetProgress(ctx, user.ID)
		if err != nil {
			return err
		}
		for _, p := range progress {
			if p.SetID == set.ID {
				printSetProgress(w, p)
				return nil
			}
		}
		// the user has not studied this set yet
		cards, err := database.NewFlashcardRepository().GetBySet(ctx, set.ID)
		if err != nil {
			return err
		}
		printSetProgress(w, models.SetProgress{SetID: set.ID, Title: set.Title, TotalCards: len(cards)})
		return nil
	}

	stats, err := repo.GetUserStatistics(ctx, user.ID, now)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Cards:      %d (%d due, %d mastered)\n", stats.TotalCards, stats.DueNow, stats.Mastered)
	for _, st := range []spaced_repetition.State{
		spaced_repetition.StateNew,
		spaced_repetition.StateLearning,
		spaced_repetition.StateReview,
		spaced_repetition.StateRelearning,
	} {
		fmt.Fprintf(w, "  %-10s  %d\n", st, stats.ByState[st.String()])
	}
	fmt.Fprintf(w, "Reviews:    %d (%.0f%% recalled)\n", stats.ReviewsTotal, stats.RetentionRate()*100)
	fmt.Fprintf(w, "Lapses:     %d\n", stats.Lapses)
	fmt.Fprintf(w, "Stability:  %.1f days on average\n", stats.AvgStability)
	fmt.Fprintf(w, "Difficulty: %.1f on average\n", stats.AvgDifficulty)

	progress, err := repo.GetSetProgress(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(progress) > 0 {
		fmt.Fprintln(w, "Sets:")
		for _, p := range progress {
			printSetProgress(w, p)
		}
	}

	if statsDays > 0 {
		daily, err := repo.GetDailyStats(ctx, user.ID, now, statsDays)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "Days:")
		for _, d := range daily {
			fmt.Fprintf(w, "  %s  %3d reviews  %3d correct  %3d new  %3d mastered\n",
				d.Date.Format("2006-01-02"), d.TotalReviews, d.CorrectReviews, d.NewCardsStudied, d.CardsMastered)
		}
	}

	if statsCards {
		states, err := database.NewReviewStateRepository().GetAllByUser(ctx, user.ID)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "Cards by id:")
		for _, rs := range states {
			fmt.Fprintf(w, "  %6d  %-10s  S=%.2f  D=%.2f  reps=%d  lapses=%d  due %s\n",
				rs.CardID, rs.State, rs.Stability, rs.Difficulty, rs.Repetitions, rs.Lapses,
				rs.NextDueAt.Local().Format(time.RFC1123))
		}
	}
	return nil
}

func printSetProgress(w io.Writer, p models.SetProgress) {
	last := "never"
	if p.LastReviewed != nil {
		last = p.LastReviewed.Local().Format(time.RFC1123)
	}
	fmt.Fprintf(w, "  %s: %d cards, %d reviewed, %d mastered, last reviewed %s\n",
		p.Title, p.TotalCards, p.CardsReviewed, p.CardsMastered, last)
}
