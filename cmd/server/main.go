// Command server runs the argument-graph wiki HTTP API.
//
// Startup order: env file, config, logging, tracing, database, blob store,
// model gateway, prompt templates, router, then an http.Server with graceful
// shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/inquirycomplex/go-wiki-backend/internal/blob"
	"github.com/inquirycomplex/go-wiki-backend/internal/config"
	httpapi "github.com/inquirycomplex/go-wiki-backend/internal/http"
	"github.com/inquirycomplex/go-wiki-backend/internal/llm"
	"github.com/inquirycomplex/go-wiki-backend/internal/observability"
	"github.com/inquirycomplex/go-wiki-backend/internal/prompt"
	"github.com/inquirycomplex/go-wiki-backend/internal/repo"
	"github.com/inquirycomplex/go-wiki-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	// Logging
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Database
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			log.Warn().Err(err).Msg("gorm tracing plugin")
		}
	}

	// Blob store (image assets); optional
	var blobs blob.Store = blob.Disabled{}
	if cfg.Blob.Bucket != "" {
		gcs, err := blob.NewGCS(ctx, cfg.Blob.Bucket, cfg.Blob.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Str("bucket", cfg.Blob.Bucket).Msg("open blob store failed")
		}
		defer gcs.Close()
		blobs = gcs
	} else {
		log.Warn().Msg("no GCS bucket configured; image endpoints disabled")
	}

	// Model gateway and prompt templates
	gateway := llm.New(llm.Options{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.Model,
		ImageModel: cfg.LLM.ImageModel,
	})
	prompts := prompt.NewStore(cfg.PromptsPath)

	// Router
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, gateway, blobs, prompts, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
