package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/tribu-ai/catalog-backend/internal/assignment"
	"github.com/tribu-ai/catalog-backend/internal/catalog"
	"github.com/tribu-ai/catalog-backend/internal/config"
	"github.com/tribu-ai/catalog-backend/internal/database"
	"github.com/tribu-ai/catalog-backend/internal/github"
	"github.com/tribu-ai/catalog-backend/internal/indexing"
	"github.com/tribu-ai/catalog-backend/internal/middleware"
	"github.com/tribu-ai/catalog-backend/internal/search"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Application database access goes through the manager, which owns the
	// pool lifecycle and retries transient failures.
	db := database.NewManager(database.Config{
		URL:      cfg.DatabaseURL(),
		MinConns: cfg.PoolMinConns,
		MaxConns: cfg.PoolMaxConns,
	}, logger)
	if err := db.Initialize(ctx); err != nil {
		// The manager re-initializes lazily on the next statement, so a
		// database that is down at boot does not prevent startup.
		slog.Warn("Database not reachable at startup, will retry on first use", "error", err)
	}
	defer db.Cleanup()

	// The job queue keeps its own pool so queue processing is isolated from
	// the manager's teardown-and-rebuild recovery.
	riverPool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		slog.Error("Unable to create job queue pool", "error", err)
		os.Exit(1)
	}
	defer riverPool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(riverPool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Search stack
	embedder := search.NewEmbedder(cfg.OpenAIAPIKey)
	esClient := search.NewElasticClient(cfg.ESURL, cfg.ESIndex, logger)
	searchSvc := search.NewService(embedder, esClient, logger)
	searchHandler := search.NewHandler(searchSvc, logger)

	// Indexing jobs: insert func is set after the River client is created
	// (breaks the init cycle).
	var insertMu sync.Mutex
	var insertFn indexing.InsertIndexJobFunc
	insertIndexJob := func(ctx context.Context, args indexing.IndexAgentsJobArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			panic("river insert not wired")
		}
		return fn(ctx, args)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, indexing.NewIndexAgentsWorker(searchSvc, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(riverPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, args indexing.IndexAgentsJobArgs) error {
		_, err := riverClient.Insert(ctx, args, nil)
		return err
	}
	insertMu.Unlock()

	// Catalog
	catalogRepo := catalog.NewRepository(db)
	catalogSvc := catalog.NewService(catalogRepo, logger)
	catalogHandler := catalog.NewHandler(catalogSvc, indexing.NewEnqueuer(insertIndexJob), logger)

	// Assignment workflow
	githubClient := github.NewClient(cfg.GithubToken, logger)
	assignRepo := assignment.NewRepository(db)
	assignSvc := assignment.NewService(assignRepo, githubClient, logger)
	assignHandler := assignment.NewHandler(assignSvc, logger)

	mux := http.NewServeMux()
	RegisterRoutes(mux, catalogHandler, assignHandler, searchHandler, db, logger)

	handler := middleware.Recover(logger)(mux)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(handler)

	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := server.ListenAndServe(); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
