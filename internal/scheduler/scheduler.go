package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/mnemos/internal/config"
	"github.com/example/mnemos/internal/database"
)

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	cfg       config.NotificationConfig
	users     *database.UserRepository
	states    *database.ReviewStateRepository
	now       func() time.Time
}

// Notifier interface for sending notifications
type Notifier interface {
	SendReminders(userID int64, count int) error
}

// New creates a new scheduler instance
func New(notifier Notifier, cfg config.NotificationConfig) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		notifier:  notifier,
		cfg:       cfg,
		users:     database.NewUserRepository(),
		states:    database.NewReviewStateRepository(),
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start(ctx context.Context) error {
	// Hourly check for users who need notifications, aligned to the hour
	_, err := s.scheduler.Every(1).Hour().StartAt(nextHour(s.now())).Do(func() {
		s.checkAndSendReminders(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkAndSendReminders checks for users who need reminders and sends them
func (s *Scheduler) checkAndSendReminders(ctx context.Context) {
	now := s.now().UTC()
	currentHour := now.Hour()

	if currentHour < s.cfg.StartHour || currentHour > s.cfg.EndHour {
		log.Printf("Current hour %d is outside notification hours (%d-%d), skipping reminders",
			currentHour, s.cfg.StartHour, s.cfg.EndHour)
		return
	}

	users, err := s.users.GetUsersForNotification(ctx, currentHour)
	if err != nil {
		log.Printf("Error getting users for notification: %v", err)
		return
	}

	for _, user := range users {
		count, err := s.states.CountDueForUser(ctx, user.ID, now)
		if err != nil {
			log.Printf("Error counting due cards for user %d: %v", user.ID, err)
			continue
		}
		if count == 0 {
			continue
		}

		// Don't announce more than the user's daily budget
		if user.CardsPerDay > 0 && count > user.CardsPerDay {
			count = user.CardsPerDay
		}

		if err := s.notifier.SendReminders(user.ID, count); err != nil {
			log.Printf("Error sending reminder to user %d: %v", user.ID, err)
		}
	}
}

// RunManualCheck sends a reminder for every due card of one user
func (s *Scheduler) RunManualCheck(ctx context.Context, userID int64) error {
	count, err := s.states.CountDueForUser(ctx, userID, s.now())
	if err != nil {
		return err
	}
	if count > 0 {
		return s.notifier.SendReminders(userID, count)
	}
	return nil
}

func nextHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour).Add(time.Hour)
}
