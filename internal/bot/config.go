package bot

import (
	"time"
)

// NotifierConfig represents the configuration for the reminder bot
type NotifierConfig struct {
	// Messages per second allowed towards Telegram
	RatePerSec float64
	// Burst of messages allowed above the rate
	Burst int
	// Consecutive send failures before the breaker opens
	MaxFailures uint32
	// How long the breaker stays open
	OpenTimeout time.Duration
	// Upper bound for a single send, including the wait for the rate limiter
	SendTimeout time.Duration
}

// DefaultConfig returns the default notifier configuration
func DefaultConfig() NotifierConfig {
	return NotifierConfig{
		RatePerSec:  25, // Telegram allows about 30 messages per second per bot
		Burst:       5,
		MaxFailures: 3,
		OpenTimeout: 30 * time.Second,
		SendTimeout: 10 * time.Second,
	}
}
