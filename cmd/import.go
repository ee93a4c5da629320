package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/mnemos/internal/excel"
)

var (
	importCfg    = excel.DefaultImportConfig()
	importEnroll bool
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import flashcards from an Excel or CSV file",
	Long: `Import flashcards from an .xlsx or .csv file into flashcard sets.

Excel rows are read from --sheet starting at --start-row. The set of a row is
taken from --set-column when given, otherwise --set is used.

CSV records are "front,back". A record with a single field starts a new set
with that title.

Examples:
  mnemos import words.xlsx --user 42 --set "Spanish verbs"
  mnemos import deck.csv --user 42 --enroll`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importCfg.SetTitle, "set", importCfg.SetTitle, "Set for rows without a set of their own")
	importCmd.Flags().StringVar(&importCfg.FrontColumn, "front", importCfg.FrontColumn, "Column with the question")
	importCmd.Flags().StringVar(&importCfg.BackColumn, "back", importCfg.BackColumn, "Column with the answer")
	importCmd.Flags().StringVar(&importCfg.SetColumn, "set-column", "", "Column with the set title (Excel only)")
	importCmd.Flags().StringVar(&importCfg.SheetName, "sheet", importCfg.SheetName, "Sheet to import")
	importCmd.Flags().IntVar(&importCfg.StartRow, "start-row", importCfg.StartRow, "First row to import (1-based)")
	importCmd.Flags().BoolVar(&importEnroll, "enroll", false, "Schedule the imported cards for the user right away")
}

func runImport(cmd *cobra.Command, args []string) error {
	user, err := requireUser(cmd)
	if err != nil {
		return err
	}

	c := importCfg
	c.FilePath = args[0]
	c.UserID = user.ID

	result, err := excel.ImportCards(cmd.Context(), c)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processed %d rows: %d created, %d updated, %d skipped, %d sets created\n",
		result.TotalProcessed, result.Created, result.Updated, result.Skipped, result.SetsCreated)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  %s\n", e)
	}

	if importEnroll {
		now := time.Now()
		for _, cardID := range result.CardIDs {
			if _, err := reviewSvc.Start(cmd.Context(), user.ID, cardID, now); err != nil {
				return fmt.Errorf("failed to enroll card %d: %w", cardID, err)
			}
		}
		fmt.Fprintf(out, "Enrolled %d cards\n", len(result.CardIDs))
	}
	return nil
}
