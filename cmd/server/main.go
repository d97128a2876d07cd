package main

import (
	"context"
	"fmt"
	"net/http"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/fintrackhq/fintrack/internal/api"
	"github.com/fintrackhq/fintrack/internal/config"
	"github.com/fintrackhq/fintrack/internal/ledger"
	"github.com/fintrackhq/fintrack/internal/statement"
	"github.com/fintrackhq/fintrack/internal/store"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if level, lerr := logrus.ParseLevel(cfg.LogLevel); lerr == nil {
		log.SetLevel(level)
	}

	ctx := context.Background()

	var st store.Store
	if cfg.UseMemoryStore {
		log.Info("using in-memory store for local development")
		st = store.NewMemoryStore()
	} else {
		client, err := firestore.NewClient(ctx, cfg.GCPProject)
		if err != nil {
			log.Fatalf("create Firestore client: %v", err)
		}
		defer client.Close()
		st = store.NewFirestoreStore(client)
	}

	if cfg.GeminiAPIKey == "" {
		log.Fatal("FINTRACK_GEMINI_API_KEY is required")
	}
	completer := statement.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMTimeout)

	pipeline := statement.NewPipeline(completer, log)
	ledgerSvc := ledger.NewService(st, log)
	server := api.NewServer(pipeline, ledgerSvc, st, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: h2c.NewHandler(server.Handler(), &http2.Server{}),
	}

	log.WithField("port", cfg.Port).Info("starting server")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
