package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	maxElapsedTime  = 5 * time.Second
	initialInterval = 20 * time.Millisecond
	maxInterval     = 500 * time.Millisecond
	maxRetries      = uint64(5)
)

const uniqueViolation = "23505"

// IsRetryable reports whether err is a PostgreSQL failure that a fresh attempt
// of the whole transaction may get past.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	case uniqueViolation, "55P03": // lost an insert race, lock_not_available
		return true
	}
	return strings.HasPrefix(pgErr.Code, "08")
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Transaction runs fn inside a database transaction, retrying the whole unit
// on retryable failures. Errors returned by fn that are not PostgreSQL
// failures stop the retry loop and are returned unchanged. When retries are
// exhausted the last database error is returned.
func Transaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMaxInterval(maxInterval),
	), maxRetries)

	return backoff.Retry(func() error {
		err := db.WithContext(ctx).Transaction(fn)
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}
