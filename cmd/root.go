// Package cmd provides the command line interface of mnemos.
package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/example/mnemos/internal/config"
	"github.com/example/mnemos/internal/database"
	"github.com/example/mnemos/internal/review"
	"github.com/example/mnemos/internal/spaced_repetition"
	"github.com/example/mnemos/pkg/models"
)

var (
	envFile string
	userID  int64

	// set up by the root command before any subcommand runs
	cfg       *config.Config
	reviewSvc *review.Service
)

var rootCmd = &cobra.Command{
	Use:   "mnemos",
	Short: "Mnemos - spaced repetition flashcards",
	Long: `Mnemos schedules flashcard reviews with a memory model of stability
and difficulty, and reminds learners on Telegram when cards are due.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Path to the .env file")
	rootCmd.PersistentFlags().Int64VarP(&userID, "user", "u", 0, "User (Telegram) ID")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(envFile)
	if err != nil {
		return err
	}

	scheduler, err := spaced_repetition.NewScheduler(cfg.Scheduler)
	if err != nil {
		return fmt.Errorf("invalid scheduler parameters: %w", err)
	}

	if err := database.Connect(cfg.Database); err != nil {
		return err
	}
	reviewSvc, err = review.NewService(scheduler)
	return err
}

func teardown(cmd *cobra.Command, args []string) error {
	return database.Close()
}

// requireUser makes sure --user names a stored user, registering it on first use
func requireUser(cmd *cobra.Command) (*models.User, error) {
	if userID == 0 {
		return nil, errors.New("--user is required")
	}

	users := database.NewUserRepository()
	user, err := users.GetByID(cmd.Context(), userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	user = &models.User{ID: userID, NotificationEnabled: true, NotificationHour: cfg.Notifications.StartHour}
	if err := users.Save(cmd.Context(), user); err != nil {
		return nil, err
	}
	log.Printf("Registered user %d", userID)
	return user, nil
}
