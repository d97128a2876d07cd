package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fintrackhq/fintrack/internal/model"
)

const (
	usersCollection        = "users"
	transactionsCollection = "transactions"
	categoriesCollection   = "categories"
)

// FirestoreStore implements Store backed by Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

type userDoc struct {
	ID            string `firestore:"id"`
	Email         string `firestore:"email"`
	DisplayName   string `firestore:"displayName"`
	CycleStartDay int    `firestore:"cycleStartDay"`
	CurrencyID    int    `firestore:"currencyId"`
}

// transactionDoc stores amounts as decimal strings; float64 round-trips are
// not acceptable for money.
type transactionDoc struct {
	ID         string    `firestore:"id"`
	UserID     string    `firestore:"userId"`
	CategoryID string    `firestore:"categoryId"`
	Name       string    `firestore:"name"`
	Amount     string    `firestore:"amount"`
	Type       int       `firestore:"type"`
	Date       time.Time `firestore:"date"`
	IsIncome   bool      `firestore:"isIncome"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

type categoryDoc struct {
	ID   string `firestore:"id"`
	Name string `firestore:"name"`
}

func (s *FirestoreStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	snap, err := s.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &model.User{
		ID:            doc.ID,
		Email:         doc.Email,
		DisplayName:   doc.DisplayName,
		CycleStartDay: doc.CycleStartDay,
		CurrencyID:    doc.CurrencyID,
	}, nil
}

func (s *FirestoreStore) UpdateUser(ctx context.Context, user *model.User) error {
	doc := userDoc{
		ID:            user.ID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		CycleStartDay: user.CycleStartDay,
		CurrencyID:    user.CurrencyID,
	}
	_, err := s.client.Collection(usersCollection).Doc(user.ID).Set(ctx, doc)
	return err
}

func (s *FirestoreStore) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	_, err := s.client.Collection(transactionsCollection).Doc(tx.ID).Set(ctx, toTransactionDoc(tx))
	return err
}

func (s *FirestoreStore) ListTransactions(ctx context.Context, userID string, start, end time.Time) ([]*model.Transaction, error) {
	iter := s.client.Collection(transactionsCollection).
		Where("userId", "==", userID).
		Where("date", ">=", dateOnlyUTC(start)).
		Where("date", "<=", dateOnlyUTC(end)).
		OrderBy("date", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var out []*model.Transaction
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		var doc transactionDoc
		if err := snap.DataTo(&doc); err != nil {
			continue
		}
		tx, err := fromTransactionDoc(doc)
		if err != nil {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *FirestoreStore) CreateCategory(ctx context.Context, category *model.Category) error {
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	_, err := s.client.Collection(categoriesCollection).Doc(category.ID).Set(ctx, categoryDoc{
		ID:   category.ID,
		Name: category.Name,
	})
	return err
}

func (s *FirestoreStore) ListCategories(ctx context.Context) ([]*model.Category, error) {
	docs, err := s.client.Collection(categoriesCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	var out []*model.Category
	for _, snap := range docs {
		var doc categoryDoc
		if err := snap.DataTo(&doc); err != nil {
			continue
		}
		out = append(out, &model.Category{ID: doc.ID, Name: doc.Name})
	}
	return out, nil
}

// UpsertIncome uses a deterministic document ID per (user, period) so two
// concurrent upserts target the same document, and a Firestore transaction so
// the read-modify-write is atomic. The uniqueness invariant is carried by the
// document key itself.
func (s *FirestoreStore) UpsertIncome(ctx context.Context, userID string, periodStart time.Time, amount decimal.Decimal) (*model.Transaction, error) {
	docID := fmt.Sprintf("income_%s_%s", userID, periodStart.Format("2006-01-02"))
	ref := s.client.Collection(transactionsCollection).Doc(docID)

	var result *model.Transaction
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := time.Now().UTC()
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		var doc transactionDoc
		if err == nil && snap.Exists() {
			if derr := snap.DataTo(&doc); derr != nil {
				return fmt.Errorf("decode income row: %w", derr)
			}
			doc.Amount = amount.String()
			doc.UpdatedAt = now
		} else {
			doc = transactionDoc{
				ID:         docID,
				UserID:     userID,
				CategoryID: model.IncomeCategoryID,
				Name:       "Income",
				Amount:     amount.String(),
				Type:       int(model.Credit),
				Date:       dateOnlyUTC(periodStart),
				IsIncome:   true,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
		}

		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		result, err = fromTransactionDoc(doc)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upsert income: %w", err)
	}
	return result, nil
}

func toTransactionDoc(tx *model.Transaction) transactionDoc {
	return transactionDoc{
		ID:         tx.ID,
		UserID:     tx.UserID,
		CategoryID: tx.CategoryID,
		Name:       tx.Name,
		Amount:     tx.Amount.String(),
		Type:       int(tx.Type),
		Date:       dateOnlyUTC(tx.Date),
		IsIncome:   tx.IsIncome,
		CreatedAt:  tx.CreatedAt,
		UpdatedAt:  tx.UpdatedAt,
	}
}

func fromTransactionDoc(doc transactionDoc) (*model.Transaction, error) {
	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return nil, fmt.Errorf("decode amount %q: %w", doc.Amount, err)
	}
	return &model.Transaction{
		ID:         doc.ID,
		UserID:     doc.UserID,
		CategoryID: doc.CategoryID,
		Name:       doc.Name,
		Amount:     amount,
		Type:       model.Direction(doc.Type),
		Date:       doc.Date,
		IsIncome:   doc.IsIncome,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}
