// Package api exposes the ledger core over HTTP: statement ingestion plus the
// cycle-dependent read and write endpoints.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/fintrackhq/fintrack/internal/cycle"
	"github.com/fintrackhq/fintrack/internal/ledger"
	"github.com/fintrackhq/fintrack/internal/model"
	"github.com/fintrackhq/fintrack/internal/store"
)

// Ingester is the statement-ingestion boundary the server depends on; tests
// substitute a fake. The returned cycle is the one the candidates were
// filtered against.
type Ingester interface {
	Ingest(ctx context.Context, pdfBytes []byte, currencyID int, userID string, cycleStartDay int) (cycle.Cycle, []model.CandidateTransaction, error)
}

// Server routes HTTP requests to the ledger core.
type Server struct {
	router   *mux.Router
	pipeline Ingester
	ledger   *ledger.Service
	store    store.Store
	log      *logrus.Logger
}

// NewServer wires the HTTP surface around the given components.
func NewServer(pipeline Ingester, ledgerSvc *ledger.Service, st store.Store, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	s := &Server{
		router:   mux.NewRouter(),
		pipeline: pipeline,
		ledger:   ledgerSvc,
		store:    st,
		log:      log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/users/{id}/statements", s.handleIngestStatement).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/users/{id}/transactions", s.handleListTransactions).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/users/{id}/summary", s.handleCategorySummary).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/users/{id}/income", s.handleUpsertIncome).Methods(http.MethodPut)
}

// Handler returns the CORS-wrapped root handler.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	})
	return c.Handler(s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
