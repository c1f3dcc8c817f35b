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

	"github.com/cloo-solutions/docuchat/internal/api/handlers"
	"github.com/cloo-solutions/docuchat/internal/config"
	"github.com/cloo-solutions/docuchat/internal/database"
	"github.com/cloo-solutions/docuchat/internal/index"
	"github.com/cloo-solutions/docuchat/internal/ingest"
	"github.com/cloo-solutions/docuchat/internal/jobs"
	"github.com/cloo-solutions/docuchat/internal/llm"
	"github.com/cloo-solutions/docuchat/internal/repository"
	"github.com/cloo-solutions/docuchat/internal/server"
	"github.com/cloo-solutions/docuchat/internal/service"
	"github.com/cloo-solutions/docuchat/internal/storage"
	"github.com/cloo-solutions/docuchat/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the docuchat API server on the specified port",
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

	// Initialize Sentry with tracing if a DSN is configured
	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
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

	if !cfg.HasOpenAI() {
		return fmt.Errorf("DOCUCHAT_OPENAI_API_KEY is required: embeddings and answer generation depend on it")
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	userRepo := repository.NewUserRepository(pool)
	userSessionRepo := repository.NewUserSessionRepository(pool)
	chatSessionRepo := repository.NewChatSessionRepository(pool)
	chatMessageRepo := repository.NewChatMessageRepository(pool)
	chunkRepo := repository.NewDocumentChunkRepository(pool)

	registry := service.NewSessionRegistry()
	historySvc := service.NewHistoryService(registry, chatSessionRepo, chatMessageRepo)

	restored, err := historySvc.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load chat history: %w", err)
	}
	log.Printf("restored history for %d sessions", restored)

	var documentArchiver service.DocumentArchiver
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		documentArchiver = s3Client
	}

	archiveProcessor := jobs.NewArchiveWorker(chunkRepo)
	archiveWorker := jobs.NewWorker(archiveProcessor, cfg.ArchivePollInterval)
	go archiveWorker.Start(ctx)
	log.Println("chunk archive worker started")

	extractor, err := ingest.NewPDFExtractor()
	if err != nil {
		return fmt.Errorf("failed to create PDF extractor: %w", err)
	}

	llmClient := llm.NewClientWithConfig(llm.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		EmbeddingModel: cfg.EmbeddingModel,
		ChatModel:      cfg.ChatModel,
	})
	var embedder index.Embedder = llmClient
	var generator service.Generator = llmClient

	ingestionSvc := service.NewIngestionService(extractor, embedder, registry, chatSessionRepo, documentArchiver, archiveProcessor)
	answerSvc := service.NewAnswerService(registry, generator, historySvc, cfg.TopK, cfg.GenerationTimeout)
	sessionSvc := service.NewSessionService(chatSessionRepo, registry)
	summarySvc := service.NewSummaryService(registry)
	authSvc := service.NewAuthService(userSessionRepo, userRepo)
	audioSvc := service.NewAudioService(cfg.TTSEndpoint, cfg.TTSTimeout)
	assembler := service.NewStreamAssembler(cfg.StreamDelay)

	chatHandler := handlers.NewChatHandler(ingestionSvc, answerSvc, assembler, historySvc, sessionSvc, summarySvc)
	audioHandler := handlers.NewAudioHandler(audioSvc)

	routerCfg := server.RouterConfig{
		IdentityResolver: authSvc,
		ChatHandler:      chatHandler,
		AudioHandler:     audioHandler,
		DB:               pool,
	}

	router := server.NewRouter(routerCfg)

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

	archiveWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
