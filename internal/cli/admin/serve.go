package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/api/handlers"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/config"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/database"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/jobs"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/openai"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/repository"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/server"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/service"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/storage"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the hub API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// 10% sampling in production, everything in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	noticeRepo := repository.NewNoticeRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	var blobStore *storage.S3Client
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		blobStore = s3Client
	}

	var embeddings openai.EmbeddingProvider = openai.NullEmbeddingProvider{}
	var embeddingWorker *jobs.Worker
	if cfg.HasOpenAI() {
		embeddingClient := openai.NewEmbeddingClient(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel)
		embeddings = embeddingClient

		backfill := jobs.NewEmbeddingWorker(documentRepo, embeddingClient)
		embeddingWorker = jobs.NewWorker(backfill, 30*time.Second)
		go embeddingWorker.Start(ctx)
		log.Println("embedding backfill worker started")
	} else {
		log.Println("no embedding provider configured; semantic search disabled")
	}

	retriever := service.NewChunkRetriever(documentRepo, embeddings)
	assembler := service.NewContextAssembler(noticeRepo, retriever)

	var chatSvc *service.ChatService
	if cfg.HasGroq() {
		llm := openai.NewChatClient(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel)
		chatSvc = service.NewChatService(assembler, llm, settingsRepo)
	} else {
		chatSvc = service.NewChatService(assembler, unavailableCompleter{}, settingsRepo)
		log.Println("no chat provider configured; /chat will return 502")
	}

	var ingestBlobs service.BlobStore
	var fileBlobs handlers.FileBlobStore
	if blobStore != nil {
		ingestBlobs = blobStore
		fileBlobs = blobStore
	}
	ingestSvc := service.NewIngestService(documentRepo, documentRepo, ingestBlobs)

	router := server.NewRouter(server.RouterConfig{
		AdminToken:      cfg.AdminToken,
		ChatHandler:     handlers.NewChatHandler(chatSvc),
		NoticeHandler:   handlers.NewNoticeHandler(noticeRepo, documentRepo),
		FileHandler:     handlers.NewFileHandler(ingestSvc, documentRepo, fileBlobs),
		SettingsHandler: handlers.NewSettingsHandler(settingsRepo),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// unavailableCompleter stands in when GROQ_API_KEY is absent.
type unavailableCompleter struct{}

func (unavailableCompleter) Complete(ctx context.Context, messages []openai.ChatMessage) (string, error) {
	return "", domain.ErrAssistantUnavailable
}

func runMigrations(databaseURL string) error {
	// golang-migrate wants a database/sql connection
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if upErr == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
