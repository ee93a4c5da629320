package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// executor is satisfied by both *sqlx.DB and *sqlx.Tx, so repositories
// can run inside or outside a transaction
type executor interface {
	sqlx.ExtContext
}

// InTx runs fn inside a transaction and commits if it returns nil
func InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
