package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/fintrackhq/fintrack/internal/cycle"
	"github.com/fintrackhq/fintrack/internal/ledger"
	"github.com/fintrackhq/fintrack/internal/model"
	"github.com/fintrackhq/fintrack/internal/statement"
	"github.com/fintrackhq/fintrack/internal/store"
)

// maxUploadBytes bounds statement uploads; statements past this size are not
// bank statements.
const maxUploadBytes = 20 << 20

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ingestResponse struct {
	PeriodStart string                       `json:"period_start"`
	PeriodEnd   string                       `json:"period_end"`
	Candidates  []model.CandidateTransaction `json:"candidates"`
}

type transactionResponse struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Type       model.Direction `json:"type"`
	Date       string          `json:"date"`
	IsIncome   bool            `json:"is_income"`
}

// handleIngestStatement accepts a single PDF upload and returns candidate
// transactions for the user's current billing cycle. Nothing is persisted;
// the client confirms candidates through the transaction-creation API.
func (s *Server) handleIngestStatement(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	user, err := s.store.GetUser(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "INTERNAL", "could not load user")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("statement")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, string(statement.ErrCodeInvalidDocument), "missing statement file")
		return
	}
	defer file.Close()

	// Reject non-PDF uploads before extraction begins: content type first,
	// then the magic bytes, since browsers get the former wrong.
	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/pdf") {
		s.writeError(w, http.StatusBadRequest, string(statement.ErrCodeInvalidDocument), "statement must be a PDF")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, string(statement.ErrCodeInvalidDocument), "could not read upload")
		return
	}
	if !statement.IsPDF(data) {
		s.writeError(w, http.StatusBadRequest, string(statement.ErrCodeInvalidDocument), "statement must be a PDF")
		return
	}

	cyc, candidates, err := s.pipeline.Ingest(r.Context(), data, user.CurrencyID, user.ID, user.CycleStartDay)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ingestResponse{
		PeriodStart: cyc.PeriodStart.Format("2006-01-02"),
		PeriodEnd:   cyc.PeriodEnd.Format("2006-01-02"),
		Candidates:  candidates,
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	cyc, txs, err := s.ledger.CurrentPeriodTransactions(r.Context(), userID)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{
			ID:         tx.ID,
			CategoryID: tx.CategoryID,
			Name:       tx.Name,
			Amount:     tx.Amount,
			Type:       tx.Type,
			Date:       tx.Date.Format("2006-01-02"),
			IsIncome:   tx.IsIncome,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"period_start": cyc.PeriodStart.Format("2006-01-02"),
		"period_end":   cyc.PeriodEnd.Format("2006-01-02"),
		"transactions": out,
	})
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	cyc, totals, err := s.ledger.CategorySummary(r.Context(), userID)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	type categoryTotal struct {
		CategoryID string          `json:"category_id"`
		Debits     decimal.Decimal `json:"debits"`
		Credits    decimal.Decimal `json:"credits"`
	}
	out := make([]categoryTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, categoryTotal{CategoryID: t.CategoryID, Debits: t.Debits, Credits: t.Credits})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"period_start": cyc.PeriodStart.Format("2006-01-02"),
		"period_end":   cyc.PeriodEnd.Format("2006-01-02"),
		"categories":   out,
	})
}

func (s *Server) handleUpsertIncome(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	var body struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_BODY", "body must be {\"amount\": ...}")
		return
	}

	tx, err := s.ledger.UpsertIncome(r.Context(), userID, body.Amount)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, transactionResponse{
		ID:         tx.ID,
		CategoryID: tx.CategoryID,
		Name:       tx.Name,
		Amount:     tx.Amount,
		Type:       tx.Type,
		Date:       tx.Date.Format("2006-01-02"),
		IsIncome:   tx.IsIncome,
	})
}

// writePipelineError maps core errors onto HTTP statuses so the client can
// tell "upload a different file" from "try again later" from "set up your
// billing cycle".
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrUserNotFound):
		s.writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
		return
	case errors.Is(err, ledger.ErrCycleNotConfigured), errors.Is(err, cycle.ErrInvalidCycleDay):
		s.writeError(w, http.StatusUnprocessableEntity, "CYCLE_NOT_CONFIGURED", "billing cycle not configured")
		return
	}

	if pe, ok := statement.AsPipelineError(err); ok {
		switch pe.Code {
		case statement.ErrCodeExtractionFailed, statement.ErrCodeInvalidDocument:
			s.writeError(w, http.StatusBadRequest, string(pe.Code), "could not process statement: unreadable document")
		case statement.ErrCodeLLMUnavailable, statement.ErrCodeLLMRateLimited:
			s.writeError(w, http.StatusServiceUnavailable, string(pe.Code), "could not process statement: service unavailable, try again later")
		case statement.ErrCodeUnparsableResponse:
			s.writeError(w, http.StatusBadGateway, string(pe.Code), "could not process statement: model response unusable")
		default:
			s.writeError(w, http.StatusInternalServerError, string(pe.Code), "could not process statement")
		}
		return
	}

	s.log.WithError(err).Error("unhandled error")
	s.writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WithError(err).Error("encode response")
	}
}
