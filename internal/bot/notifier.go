// Package bot delivers review reminders through Telegram.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned while the breaker is open after repeated failures
var ErrUnavailable = errors.New("telegram is unavailable")

// sender is the part of *tgbotapi.BotAPI the notifier needs
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends reminders to users
type Notifier struct {
	api     sender
	cfg     NotifierConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewNotifier authorises against Telegram with token
func NewNotifier(token string, cfg NotifierConfig) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	log.Printf("Authorized on account %s", api.Self.UserName)
	return newNotifier(api, cfg), nil
}

func newNotifier(api sender, cfg NotifierConfig) *Notifier {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = DefaultConfig().RatePerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultConfig().SendTimeout
	}

	settings := gobreaker.Settings{
		Name:        "telegram",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	return &Notifier{
		api:     api,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// SendReminders tells a user how many cards are waiting for them.
// In private chats the chat ID equals the user ID.
func (n *Notifier) SendReminders(userID int64, count int) error {
	ctx, cancel := context.WithTimeout(context.Background(), n.cfg.SendTimeout)
	defer cancel()

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	msg := tgbotapi.NewMessage(userID, ReminderText(count))
	_, err := n.breaker.Execute(func() (interface{}, error) {
		return n.api.Send(msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	if err != nil {
		return fmt.Errorf("failed to send reminder to user %d: %w", userID, err)
	}

	log.Printf("Reminder sent to user %d (%d cards)", userID, count)
	return nil
}

// ReminderText is the message body for count due cards
func ReminderText(count int) string {
	noun := "cards"
	if count == 1 {
		noun = "card"
	}
	return fmt.Sprintf("You have %d %s due for review. Open your deck to keep them fresh!", count, noun)
}
