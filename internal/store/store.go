// Package store defines the persistence handle the ledger core depends on.
// Implementations are constructed explicitly and passed in, never reached
// through process-wide state, so the cycle and pipeline components stay
// testable in isolation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fintrackhq/fintrack/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// dateOnlyUTC rebases t's calendar date to UTC midnight. Storing and querying
// dates this way makes instant comparisons equivalent to calendar-date
// comparisons no matter what zone the caller's clock runs in.
func dateOnlyUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Store is the interface for all database operations used by the ledger core.
type Store interface {
	// User operations
	GetUser(ctx context.Context, userID string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error

	// Transaction operations. Transaction dates are date-only: stores
	// normalize them to UTC midnight on write, and ListTransactions treats
	// start/end as calendar dates regardless of their zone.
	CreateTransaction(ctx context.Context, tx *model.Transaction) error
	ListTransactions(ctx context.Context, userID string, start, end time.Time) ([]*model.Transaction, error)

	// Category operations (opaque foreign keys only)
	CreateCategory(ctx context.Context, category *model.Category) error
	ListCategories(ctx context.Context) ([]*model.Category, error)

	// UpsertIncome atomically updates or inserts the single income row for
	// (userID, periodStart). Two concurrent upserts for the same key must
	// never both insert.
	UpsertIncome(ctx context.Context, userID string, periodStart time.Time, amount decimal.Decimal) (*model.Transaction, error)
}
