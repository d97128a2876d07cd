package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrackhq/fintrack/internal/cycle"
	"github.com/fintrackhq/fintrack/internal/ledger"
	"github.com/fintrackhq/fintrack/internal/model"
	"github.com/fintrackhq/fintrack/internal/statement"
	"github.com/fintrackhq/fintrack/internal/store"
)

type fakeIngester struct {
	cycle       cycle.Cycle
	candidates  []model.CandidateTransaction
	err         error
	gotUserID   string
	gotCycleDay int
	called      bool
}

func (f *fakeIngester) Ingest(ctx context.Context, pdfBytes []byte, currencyID int, userID string, cycleStartDay int) (cycle.Cycle, []model.CandidateTransaction, error) {
	f.called = true
	f.gotUserID = userID
	f.gotCycleDay = cycleStartDay
	if f.err != nil {
		return cycle.Cycle{}, nil, f.err
	}
	return f.cycle, f.candidates, nil
}

// firstOfCurrentMonth matches what cycle day 1 resolves to, in the same
// location the service resolves with.
func firstOfCurrentMonth() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// newTestServer uses cycle day 1 so the resolved period is stable no matter
// when the test runs.
func newTestServer(t *testing.T, fake *fakeIngester) (*Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.UpdateUser(context.Background(), &model.User{
		ID:            "u-1",
		CycleStartDay: 1,
		CurrencyID:    2,
	}))
	return NewServer(fake, ledger.NewService(st, nil), st, nil), st
}

func multipartStatement(t *testing.T, partContentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="statement"; filename="statement.pdf"`)
	h.Set("Content-Type", partContentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doIngest(t *testing.T, srv *Server, userID string, partContentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartStatement(t, partContentType, data)
	req := httptest.NewRequest(http.MethodPost, "/v1/users/"+userID+"/statements", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var er errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&er))
	return er
}

func TestIngestStatement_Success(t *testing.T) {
	fake := &fakeIngester{
		cycle: cycle.Cycle{
			StartDay:    25,
			PeriodStart: time.Date(2024, time.February, 25, 0, 0, 0, 0, time.UTC),
			PeriodEnd:   time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		},
		candidates: []model.CandidateTransaction{
			{TransactionDate: "2024-03-01", TransactionName: "Swiggy", Amount: decimal.RequireFromString("450.50")},
		},
	}
	srv, _ := newTestServer(t, fake)

	rec := doIngest(t, srv, "u-1", "application/pdf", []byte("%PDF-1.7 fake body"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ingestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "Swiggy", resp.Candidates[0].TransactionName)

	// the reported period is the one the pipeline filtered with, not a
	// second resolution from a fresh clock
	assert.Equal(t, "2024-02-25", resp.PeriodStart)
	assert.Equal(t, "2024-03-10", resp.PeriodEnd)

	assert.Equal(t, "u-1", fake.gotUserID)
	assert.Equal(t, 1, fake.gotCycleDay)
}

func TestIngestStatement_UserNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeIngester{})
	rec := doIngest(t, srv, "ghost", "application/pdf", []byte("%PDF-1.7"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "USER_NOT_FOUND", decodeError(t, rec).Code)
}

func TestIngestStatement_RejectsNonPDF(t *testing.T) {
	fake := &fakeIngester{}
	srv, _ := newTestServer(t, fake)

	t.Run("wrong content type", func(t *testing.T) {
		rec := doIngest(t, srv, "u-1", "image/png", []byte("%PDF-1.7"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(statement.ErrCodeInvalidDocument), decodeError(t, rec).Code)
	})

	t.Run("wrong magic bytes", func(t *testing.T) {
		rec := doIngest(t, srv, "u-1", "application/pdf", []byte("GIF89a not a pdf"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(statement.ErrCodeInvalidDocument), decodeError(t, rec).Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/users/u-1/statements", strings.NewReader("not multipart"))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	assert.False(t, fake.called, "pipeline must not run for rejected uploads")
}

func TestIngestStatement_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			"extraction failure",
			&statement.PipelineError{Code: statement.ErrCodeExtractionFailed},
			http.StatusBadRequest,
		},
		{
			"rate limited",
			&statement.PipelineError{Code: statement.ErrCodeLLMRateLimited, Retryable: true},
			http.StatusServiceUnavailable,
		},
		{
			"llm unavailable",
			&statement.PipelineError{Code: statement.ErrCodeLLMUnavailable, Retryable: true},
			http.StatusServiceUnavailable,
		},
		{
			"unparsable response",
			&statement.PipelineError{Code: statement.ErrCodeUnparsableResponse},
			http.StatusBadGateway,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakeIngester{err: tc.err})
			rec := doIngest(t, srv, "u-1", "application/pdf", []byte("%PDF-1.7"))
			assert.Equal(t, tc.wantStatus, rec.Code)
			var pe *statement.PipelineError
			require.ErrorAs(t, tc.err, &pe)
			assert.Equal(t, string(pe.Code), decodeError(t, rec).Code)
		})
	}
}

func TestUpsertIncome(t *testing.T) {
	srv, _ := newTestServer(t, &fakeIngester{})

	put := func(userID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/v1/users/"+userID+"/income", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	rec := put("u-1", `{"amount": 5000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first transactionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	assert.True(t, first.IsIncome)
	assert.Equal(t, model.IncomeCategoryID, first.CategoryID)

	// idempotent per period: same row, new amount
	rec = put("u-1", `{"amount": 6200}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var second transactionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Amount.Equal(decimal.NewFromInt(6200)))

	t.Run("user not found", func(t *testing.T) {
		rec := put("ghost", `{"amount": 100}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := put("u-1", `not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpsertIncome_CycleNotConfigured(t *testing.T) {
	srv, st := newTestServer(t, &fakeIngester{})
	require.NoError(t, st.UpdateUser(context.Background(), &model.User{ID: "u-2"}))

	req := httptest.NewRequest(http.MethodPut, "/v1/users/u-2/income", strings.NewReader(`{"amount": 100}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "CYCLE_NOT_CONFIGURED", decodeError(t, rec).Code)
}

func TestListTransactions(t *testing.T) {
	srv, st := newTestServer(t, &fakeIngester{})
	_, err := st.UpsertIncome(context.Background(), "u-1", firstOfCurrentMonth(), decimal.NewFromInt(5000))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/u-1/transactions", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		PeriodStart  string                `json:"period_start"`
		PeriodEnd    string                `json:"period_end"`
		Transactions []transactionResponse `json:"transactions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Transactions, 1)
	assert.True(t, resp.Transactions[0].IsIncome)
}

func TestCategorySummary(t *testing.T) {
	srv, st := newTestServer(t, &fakeIngester{})
	require.NoError(t, st.CreateTransaction(context.Background(), &model.Transaction{
		UserID:     "u-1",
		CategoryID: "food",
		Amount:     decimal.RequireFromString("450.50"),
		Type:       model.Debit,
		Date:       firstOfCurrentMonth(),
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/users/u-1/summary", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Categories []struct {
			CategoryID string          `json:"category_id"`
			Debits     decimal.Decimal `json:"debits"`
		} `json:"categories"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Categories, 1)
	assert.Equal(t, "food", resp.Categories[0].CategoryID)
	assert.True(t, resp.Categories[0].Debits.Equal(decimal.RequireFromString("450.50")))
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeIngester{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
