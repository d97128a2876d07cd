// Package model holds the domain value objects shared by the ingestion
// pipeline, ledger service and stores.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction distinguishes money out from money in. The numeric values are part
// of the LLM wire contract (transaction_type) and must not change.
type Direction int

const (
	Debit  Direction = 0
	Credit Direction = 1
)

// IncomeCategoryID is the reserved category for the per-period income row.
const IncomeCategoryID = "income"

// CandidateTransaction is an unconfirmed transaction inferred from a bank
// statement. It mirrors the JSON shape the model is instructed to emit and is
// never persisted directly; the caller confirms each candidate before creating
// a real transaction.
type CandidateTransaction struct {
	TransactionDate string          `json:"transaction_date"`
	TransactionName string          `json:"transaction_name"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType Direction       `json:"transaction_type"`
	Code            string          `json:"code"`
	CurrencyID      int             `json:"currency_id"`
	UserID          string          `json:"user_id"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

// Date parses the candidate's transaction_date (YYYY-MM-DD).
func (c CandidateTransaction) Date() (time.Time, error) {
	return time.Parse("2006-01-02", c.TransactionDate)
}

// Transaction is a persisted ledger row. Income rows carry IsIncome=true, are
// dated exactly at the period start and are unique per (user, period).
type Transaction struct {
	ID         string
	UserID     string
	CategoryID string
	Name       string
	Amount     decimal.Decimal
	Type       Direction
	Date       time.Time
	IsIncome   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// User carries the per-user configuration the core needs. CycleStartDay zero
// means the billing cycle was never configured.
type User struct {
	ID            string
	Email         string
	DisplayName   string
	CycleStartDay int
	CurrencyID    int
}

// Category is an opaque foreign key; its business logic lives elsewhere.
type Category struct {
	ID   string
	Name string
}
