// Package bootstrap assembles the application dependency graph once at
// startup. Tests build the same graph with a memory store by leaving
// DATABASE_URL unset.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"edms-backend/internal/blob"
	"edms-backend/internal/blob/gdrive"
	"edms-backend/internal/blob/supabase"
	"edms-backend/internal/documents"
	"edms-backend/internal/enrich"
	"edms-backend/internal/llm"
	openai "edms-backend/internal/llm/openai"
	"edms-backend/internal/projects"
	"edms-backend/internal/reports"
	"edms-backend/internal/shared/config"
	"edms-backend/internal/shared/server"
	"edms-backend/internal/shared/storage/db"
	"edms-backend/internal/shared/telemetry"
	"edms-backend/internal/store"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  store.Store
	Blob   *blob.Router
	LLM    llm.Client

	EnrichService    *enrich.Service
	ProjectsHandler  *projects.Handler
	DocumentsHandler *documents.Handler
	ReportsHandler   *reports.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var st store.Store
	if sqlDB != nil {
		st = &store.PostgresStore{DB: sqlDB}
	} else {
		mem := store.NewMemoryStore()
		if err := mem.Seed(ctx); err != nil {
			return nil, fmt.Errorf("seed memory store: %w", err)
		}
		st = mem
	}

	blobRouter := buildBlob(ctx, cfg)

	llmClient := llm.Client(llm.PlaceholderClient{})
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		llmClient = client
	} else {
		telemetry.Info("bootstrap.llm_placeholder", map[string]any{
			"reason": "OPENAI_API_KEY not set",
		})
	}

	enrichSvc := enrich.NewService(st, llmClient)

	app := &App{
		Config:           cfg,
		DB:               sqlDB,
		Store:            st,
		Blob:             blobRouter,
		LLM:              llmClient,
		EnrichService:    enrichSvc,
		ProjectsHandler:  projects.NewHandler(st),
		DocumentsHandler: documents.NewHandler(st, blobRouter, enrichSvc, cfg.UploadDir),
		ReportsHandler:   reports.NewHandler(st),
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           cfg,
		ProjectsHandler:  app.ProjectsHandler,
		DocumentsHandler: app.DocumentsHandler,
		ReportsHandler:   app.ReportsHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory store")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory store: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory store: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

// buildBlob constructs both storage adapters. A missing or invalid adapter
// configuration installs an always-failing stand-in so uploads degrade to
// placeholder locators instead of refusing the request.
func buildBlob(ctx context.Context, cfg config.Config) *blob.Router {
	var supabaseUploader blob.Uploader
	if strings.TrimSpace(cfg.SupabaseURL) != "" && strings.TrimSpace(cfg.SupabaseKey) != "" {
		uploader, err := supabase.New(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			telemetry.Error("bootstrap.supabase_unavailable", map[string]any{
				"error": err.Error(),
			})
			supabaseUploader = blob.Unconfigured{Tag: store.StorageSupabase}
		} else {
			supabaseUploader = uploader
		}
	} else {
		telemetry.Info("bootstrap.supabase_unconfigured", map[string]any{
			"reason": "SUPABASE_URL or SUPABASE_KEY not set",
		})
		supabaseUploader = blob.Unconfigured{Tag: store.StorageSupabase}
	}

	var driveUploader blob.Uploader
	if strings.TrimSpace(cfg.GoogleDriveRefreshToken) != "" {
		uploader, err := gdrive.New(ctx, gdrive.Credentials{
			ClientID:     cfg.GoogleDriveClientID,
			ClientSecret: cfg.GoogleDriveClientSecret,
			RedirectURL:  cfg.GoogleDriveRedirectURL,
			RefreshToken: cfg.GoogleDriveRefreshToken,
		})
		if err != nil {
			telemetry.Error("bootstrap.gdrive_unavailable", map[string]any{
				"error": err.Error(),
			})
			driveUploader = blob.Unconfigured{Tag: store.StorageGoogleDrive}
		} else {
			driveUploader = uploader
		}
	} else {
		telemetry.Info("bootstrap.gdrive_unconfigured", map[string]any{
			"reason": "GOOGLE_DRIVE_REFRESH_TOKEN not set",
		})
		driveUploader = blob.Unconfigured{Tag: store.StorageGoogleDrive}
	}

	return &blob.Router{Supabase: supabaseUploader, Drive: driveUploader}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
