package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/mnemos/pkg/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db executor
}

// NewUserRepository creates a new repository instance
func NewUserRepository() *UserRepository {
	return &UserRepository{db: DB}
}

// GetByID returns a user by Telegram ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	query := r.db.Rebind("SELECT * FROM users WHERE id = ?")
	if err := sqlx.GetContext(ctx, r.db, &user, query, id); err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// Save inserts the user or updates the profile fields of an existing one.
// created_at of an existing user is kept.
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CardsPerDay <= 0 {
		user.CardsPerDay = 20
	}

	query := r.db.Rebind(`
		INSERT INTO users (
			id, username, first_name, last_name,
			notification_enabled, notification_hour, cards_per_day,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			notification_enabled = EXCLUDED.notification_enabled,
			notification_hour = EXCLUDED.notification_hour,
			cards_per_day = EXCLUDED.cards_per_day,
			updated_at = EXCLUDED.updated_at
	`)
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.NotificationEnabled,
		user.NotificationHour,
		user.CardsPerDay,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	user.UpdatedAt = now
	return nil
}

// GetUsersForNotification returns users with reminders enabled for the given hour
func (r *UserRepository) GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	var users []models.User
	query := r.db.Rebind(`
		SELECT * FROM users
		WHERE notification_enabled = ? AND notification_hour = ?
		ORDER BY id
	`)
	if err := sqlx.SelectContext(ctx, r.db, &users, query, true, hour); err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %w", err)
	}
	return users, nil
}
