package cmd

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/mnemos/internal/bot"
	"github.com/example/mnemos/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reminder service",
	Long: `Run the hourly reminder job. Users whose notification hour matches
the current hour get a Telegram message with the number of due cards.`,
	RunE: runServe,
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send one user a reminder about their due cards now",
	Long: `Send the user a Telegram reminder with the number of cards due right
now, regardless of notification hours. Nothing is sent when no card is due.

Examples:
  mnemos remind --user 42`,
	RunE: runRemind,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(remindCmd)
}

// newNotifier connects to Telegram with the configured token and limits
func newNotifier() (*bot.Notifier, error) {
	if cfg.Telegram.Token == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	notifierCfg := bot.DefaultConfig()
	notifierCfg.RatePerSec = cfg.Notifications.RatePerSec
	return bot.NewNotifier(cfg.Telegram.Token, notifierCfg)
}

func runRemind(cmd *cobra.Command, args []string) error {
	user, err := requireUser(cmd)
	if err != nil {
		return err
	}
	notifier, err := newNotifier()
	if err != nil {
		return err
	}
	return scheduler.New(notifier, cfg.Notifications).RunManualCheck(cmd.Context(), user.ID)
}

func runServe(cmd *cobra.Command, args []string) error {
	notifier, err := newNotifier()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(notifier, cfg.Notifications)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	log.Println("Reminder service started. Press Ctrl+C to stop.")
	<-ctx.Done()

	sched.Stop()
	log.Println("Reminder service stopped")
	return nil
}
