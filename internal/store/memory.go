package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fintrackhq/fintrack/internal/model"
)

// MemoryStore implements Store with in-memory maps, used for local
// development and tests.
type MemoryStore struct {
	mu sync.RWMutex

	users        map[string]*model.User
	transactions map[string]*model.Transaction
	categories   map[string]*model.Category
	incomes      map[string]string // incomeKey -> transaction ID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]*model.User),
		transactions: make(map[string]*model.Transaction),
		categories:   make(map[string]*model.Category),
		incomes:      make(map[string]string),
	}
}

func incomeKey(userID string, periodStart time.Time) string {
	return fmt.Sprintf("%s|%s", userID, periodStart.Format("2006-01-02"))
}

func (s *MemoryStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	copied := *tx
	copied.Date = dateOnlyUTC(copied.Date)
	s.transactions[tx.ID] = &copied
	return nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, userID string, start, end time.Time) ([]*model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to := dateOnlyUTC(start), dateOnlyUTC(end)
	var out []*model.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		if tx.Date.Before(from) || tx.Date.After(to) {
			continue
		}
		copied := *tx
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) CreateCategory(ctx context.Context, category *model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	copied := *category
	s.categories[category.ID] = &copied
	return nil
}

func (s *MemoryStore) ListCategories(ctx context.Context) ([]*model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Category, 0, len(s.categories))
	for _, c := range s.categories {
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpsertIncome runs the whole read-modify-write under the store mutex, so
// concurrent upserts for the same (user, period) serialize and exactly one
// income row exists per key.
func (s *MemoryStore) UpsertIncome(ctx context.Context, userID string, periodStart time.Time, amount decimal.Decimal) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	key := incomeKey(userID, periodStart)

	if id, ok := s.incomes[key]; ok {
		existing := s.transactions[id]
		existing.Amount = amount
		existing.UpdatedAt = now
		copied := *existing
		return &copied, nil
	}

	tx := &model.Transaction{
		ID:         uuid.New().String(),
		UserID:     userID,
		CategoryID: model.IncomeCategoryID,
		Name:       "Income",
		Amount:     amount,
		Type:       model.Credit,
		Date:       dateOnlyUTC(periodStart),
		IsIncome:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.transactions[tx.ID] = tx
	s.incomes[key] = tx.ID
	copied := *tx
	return &copied, nil
}
