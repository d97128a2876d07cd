// Package ledger provides the cycle-scoped bookkeeping operations: income
// upsert, current-period transaction listing and category aggregation. Every
// operation derives the billing period fresh from the user's configured start
// day; no "current period" is ever persisted.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fintrackhq/fintrack/internal/cycle"
	"github.com/fintrackhq/fintrack/internal/model"
	"github.com/fintrackhq/fintrack/internal/store"
)

var (
	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrCycleNotConfigured indicates the user has no valid cycle start day;
	// the client should prompt the user to set up their billing cycle.
	ErrCycleNotConfigured = errors.New("billing cycle not configured")
)

// Service exposes the cycle-dependent read and write operations.
type Service struct {
	store store.Store
	log   *logrus.Logger
	now   func() time.Time
}

// NewService creates a ledger service on the given persistence handle.
func NewService(st store.Store, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{store: st, log: log, now: time.Now}
}

// CategoryTotal aggregates one category's debits and credits over a period.
type CategoryTotal struct {
	CategoryID string
	Debits     decimal.Decimal
	Credits    decimal.Decimal
}

// currentCycle loads the user and resolves their active billing period,
// rejecting the request before any write when either is missing.
func (s *Service) currentCycle(ctx context.Context, userID string) (*model.User, cycle.Cycle, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, cycle.Cycle{}, ErrUserNotFound
	}
	if err != nil {
		return nil, cycle.Cycle{}, fmt.Errorf("load user %s: %w", userID, err)
	}

	cyc, err := cycle.Resolve(user.CycleStartDay, s.now())
	if errors.Is(err, cycle.ErrInvalidCycleDay) {
		return nil, cycle.Cycle{}, ErrCycleNotConfigured
	}
	if err != nil {
		return nil, cycle.Cycle{}, err
	}
	return user, cyc, nil
}

// UpsertIncome records the user's income for the active period: the existing
// row's amount is updated in place, or a new row dated exactly at the period
// start is inserted. The store guarantees the read-modify-write is atomic.
func (s *Service) UpsertIncome(ctx context.Context, userID string, amount decimal.Decimal) (*model.Transaction, error) {
	_, cyc, err := s.currentCycle(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.UpsertIncome(ctx, userID, cyc.PeriodStart, amount)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"period_start": cyc.PeriodStart.Format("2006-01-02"),
		"amount":       amount.String(),
	}).Info("income upserted")
	return tx, nil
}

// CurrentPeriodTransactions lists the user's transactions inside the active
// billing cycle.
func (s *Service) CurrentPeriodTransactions(ctx context.Context, userID string) (cycle.Cycle, []*model.Transaction, error) {
	_, cyc, err := s.currentCycle(ctx, userID)
	if err != nil {
		return cycle.Cycle{}, nil, err
	}

	txs, err := s.store.ListTransactions(ctx, userID, cyc.PeriodStart, cyc.PeriodEnd)
	if err != nil {
		return cycle.Cycle{}, nil, err
	}
	return cyc, txs, nil
}

// CategorySummary totals debits and credits per category for the active
// billing cycle. Categories are treated as opaque keys.
func (s *Service) CategorySummary(ctx context.Context, userID string) (cycle.Cycle, []CategoryTotal, error) {
	cyc, txs, err := s.CurrentPeriodTransactions(ctx, userID)
	if err != nil {
		return cycle.Cycle{}, nil, err
	}

	byCategory := make(map[string]*CategoryTotal)
	for _, tx := range txs {
		total, ok := byCategory[tx.CategoryID]
		if !ok {
			total = &CategoryTotal{CategoryID: tx.CategoryID}
			byCategory[tx.CategoryID] = total
		}
		switch tx.Type {
		case model.Debit:
			total.Debits = total.Debits.Add(tx.Amount)
		case model.Credit:
			total.Credits = total.Credits.Add(tx.Amount)
		}
	}

	out := make([]CategoryTotal, 0, len(byCategory))
	for _, total := range byCategory {
		out = append(out, *total)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return cyc, out, nil
}
