package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"voicebrief/backend/features/ingest"
	"voicebrief/backend/features/job"
	"voicebrief/backend/features/stats"
	"voicebrief/backend/internal/adapter/fetch"
	"voicebrief/backend/internal/adapter/gemini"
	"voicebrief/backend/internal/adapter/mailer"
	"voicebrief/backend/internal/brief"
	"voicebrief/backend/internal/config"
	"voicebrief/backend/internal/eventlog"
	"voicebrief/backend/internal/middleware"
	"voicebrief/backend/internal/pipeline"
	"voicebrief/backend/internal/retry"
	"voicebrief/backend/internal/settings"
	"voicebrief/backend/internal/worker"
)

// VectorStore is what the app needs from the chunk index; satisfied by the
// weaviate adapter.
type VectorStore interface {
	EnsureSchema(ctx context.Context) error
	IndexTranscript(ctx context.Context, jobID string, chunks []job.Chunk) error
	DeleteChunksByJobID(ctx context.Context, jobID string) error
	GetChunksByJobID(ctx context.Context, jobID string) ([]job.Chunk, error)
	CountChunks(ctx context.Context) (int, error)
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type App struct {
	Handler       http.Handler
	IngestService *ingest.Service
	Runner        *pipeline.Runner
	TaskConsumer  *worker.TaskConsumer

	port int
}

func New(
	cfg *config.Config,
	db *sql.DB,
	vecStore VectorStore,
	taskPub TaskPublisher,
	logger *slog.Logger,
) (*App, error) {

	// Feature: Settings
	settingsRepo := settings.NewPostgresRepo(db)
	settingsService := settings.NewService(settingsRepo, logger)
	seedSettings(cfg, settingsService)
	settingsHandler := settings.NewHandler(settingsService)

	// Feature: Job
	jobRepo := job.NewPostgresRepo(db)
	jobService := job.NewService(jobRepo, vecStore, logger)
	jobHandler := job.NewHandler(jobService)

	// Event log
	eventSink := eventlog.NewPostgresSink(db)
	events := eventlog.NewRecorder(eventSink, logger)

	// Feature: Stats
	statsHandler := stats.NewHandler(jobRepo, eventSink, vecStore)

	// Pipeline adapters
	fetcher := fetch.NewClient()
	analyzer := gemini.NewAnalyzer(settingsService)
	mail := mailer.NewClient(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
	})

	briefWriter, err := brief.NewFileWriter("data/briefs/briefs.jsonl")
	if err != nil {
		slog.Warn("failed to create brief file writer, falling back to stdout", "error", err)
		briefWriter = brief.NewWriter(os.Stdout)
	}

	flags := ingest.Flags{DryRun: cfg.DryRun, AllowNetwork: cfg.AllowNetwork}

	stagePolicy := retry.Policy{
		MaxRetries:    cfg.StageMaxRetries,
		BaseDelay:     time.Duration(cfg.StageRetryBaseMS) * time.Millisecond,
		BackoffFactor: float64(cfg.StageRetryFactor),
	}
	analyzePolicy := retry.Policy{
		MaxRetries:    cfg.AnalyzeMaxRetries,
		BaseDelay:     time.Duration(cfg.AnalyzeRetryBaseMS) * time.Millisecond,
		BackoffFactor: float64(cfg.StageRetryFactor),
	}

	runner := pipeline.NewRunner(
		jobRepo, fetcher, analyzer, vecStore, mail, briefWriter, events, settingsService,
		pipeline.Options{
			Flags:         flags,
			FetchPolicy:   stagePolicy,
			AnalyzePolicy: analyzePolicy,
			IndexPolicy:   stagePolicy,
			RecordPolicy:  stagePolicy,
		},
		logger,
	)

	// Feature: Ingest
	ingestService := ingest.NewService(jobRepo, taskPub, runner, events, flags, logger)
	ingestHandler := ingest.NewHandler(ingestService, cfg.UploadDir, cfg.MaxUploadSizeMB)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /webhooks", middleware.CorrelationID(enableCORS(ingestHandler.Webhook)))
	mux.Handle("POST /uploads", middleware.CorrelationID(enableCORS(ingestHandler.Upload)))

	mux.Handle("GET /jobs", middleware.CorrelationID(enableCORS(jobHandler.List)))
	mux.Handle("GET /jobs/{id}", middleware.CorrelationID(enableCORS(jobHandler.Get)))
	mux.Handle("DELETE /jobs/{id}", middleware.CorrelationID(enableCORS(jobHandler.Delete)))

	mux.Handle("GET /settings", middleware.CorrelationID(enableCORS(settingsHandler.GetSettings)))
	mux.Handle("PUT /settings", middleware.CorrelationID(enableCORS(settingsHandler.UpdateSettings)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	taskConsumer := worker.NewTaskConsumer(runner)

	return &App{
		Handler:       mux,
		IngestService: ingestService,
		Runner:        runner,
		TaskConsumer:  taskConsumer,
		port:          cfg.ServerPort,
	}, nil
}

// seedSettings copies env-provided values into the settings row on first
// boot, so the API can take over from there.
func seedSettings(cfg *config.Config, svc *settings.Service) {
	ctx := context.Background()
	set, err := svc.Get(ctx)
	if err != nil {
		slog.Warn("failed to fetch settings for seeding", "error", err)
		return
	}

	changed := false
	if cfg.GeminiAPIKey != "" && set.GeminiAPIKey == "" {
		set.GeminiAPIKey = cfg.GeminiAPIKey
		changed = true
	}
	if cfg.NotifyEmail != "" && set.NotifyEmail == "" {
		set.NotifyEmail = cfg.NotifyEmail
		set.NotificationsEnabled = cfg.NotifyEnabled
		changed = true
	}

	if changed {
		if err := svc.Update(ctx, set); err != nil {
			slog.Warn("failed to seed settings", "error", err)
		} else {
			slog.Info("seeded settings from environment")
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
