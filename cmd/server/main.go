package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Arize-ai/phoenix-sub001/internal/annotations"
	"github.com/Arize-ai/phoenix-sub001/internal/db"
	"github.com/Arize-ai/phoenix-sub001/internal/handlers"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/middleware"
	"github.com/Arize-ai/phoenix-sub001/internal/migrations"
	"github.com/Arize-ai/phoenix-sub001/internal/modelcache"
	"github.com/Arize-ai/phoenix-sub001/internal/observability"
	"github.com/Arize-ai/phoenix-sub001/internal/repos"
	"github.com/Arize-ai/phoenix-sub001/internal/server"
	"github.com/Arize-ai/phoenix-sub001/internal/services"
	"github.com/Arize-ai/phoenix-sub001/internal/utils"
)

const serviceName = "phoenix-backend"

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: utils.GetEnv("ENVIRONMENT", "development", log),
		Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
	})

	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	listenAddr := utils.GetEnv("LISTEN_ADDR", ":6006", log)
	pollSeconds := utils.GetEnvAsInt("MODEL_CACHE_POLL_SECONDS", 10, log)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = db.PostgresURLFromEnvParts(
			utils.GetEnv("POSTGRES_HOST", "localhost", log),
			utils.GetEnv("POSTGRES_PORT", "5432", log),
			utils.GetEnv("POSTGRES_USER", "postgres", log),
			utils.GetEnv("POSTGRES_PASSWORD", "postgres", log),
			utils.GetEnv("POSTGRES_DB", "phoenix", log),
		)
	}
	dbService, err := db.New(db.Config{
		URL:    dbURL,
		Schema: os.Getenv("DATABASE_SCHEMA"),
	}, log)
	if err != nil {
		log.Fatal("database init failed", "error", err)
	}
	gormDB := dbService.DB()

	engine := migrations.NewEngine(dbService, log)
	if err := engine.Upgrade(ctx, migrations.Head); err != nil {
		log.Fatal("schema upgrade failed", "error", err)
	}

	userRepo := repos.NewUserRepo(gormDB, log)
	projectRepo := repos.NewProjectRepo(gormDB, log)
	traceRepo := repos.NewTraceRepo(gormDB, log)
	spanRepo := repos.NewSpanRepo(gormDB, log)
	sessionRepo := repos.NewSessionRepo(gormDB, log)
	datasetRepo := repos.NewDatasetRepo(gormDB, log)
	experimentRepo := repos.NewExperimentRepo(gormDB, log)
	secretRepo := repos.NewSecretRepo(gormDB, log)
	promptRepo := repos.NewPromptRepo(gormDB, log)
	modelRepo := repos.NewModelRepo(gormDB, log)

	ingestService := services.NewIngestService(gormDB, log, projectRepo, traceRepo, spanRepo, sessionRepo)
	authService := services.NewAuthService(gormDB, log, userRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second)
	datasetService := services.NewDatasetService(gormDB, log, datasetRepo)
	experimentService := services.NewExperimentService(gormDB, log, datasetRepo, experimentRepo)
	secretService := services.NewSecretService(gormDB, log, secretRepo)
	promptService := services.NewPromptService(gormDB, log, promptRepo)

	resolver := annotations.NewResolver(gormDB, log)

	cache := modelcache.New(modelRepo, log, time.Duration(pollSeconds)*time.Second)
	if err := cache.Start(ctx); err != nil {
		log.Fatal("model cache warmup failed", "error", err)
	}
	defer cache.Stop()

	router := server.NewRouter(server.RouterConfig{
		ServiceName:       serviceName,
		AuthHandler:       handlers.NewAuthHandler(authService),
		AuthMiddleware:    middleware.NewAuthMiddleware(log, authService),
		IngestHandler:     handlers.NewIngestHandler(ingestService),
		DatasetHandler:    handlers.NewDatasetHandler(datasetService),
		ExperimentHandler: handlers.NewExperimentHandler(experimentService),
		SecretHandler:     handlers.NewSecretHandler(secretService),
		PromptHandler:     handlers.NewPromptHandler(promptService),
		ModelHandler:      handlers.NewModelHandler(cache),

		SpanAnnotationHandler:     handlers.NewAnnotationHandler(resolver, annotations.SpanAnnotations),
		TraceAnnotationHandler:    handlers.NewAnnotationHandler(resolver, annotations.TraceAnnotations),
		SessionAnnotationHandler:  handlers.NewAnnotationHandler(resolver, annotations.ProjectSessionAnnotations),
		DocumentAnnotationHandler: handlers.NewAnnotationHandler(resolver, annotations.DocumentAnnotations),
	})

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
	}
	if shutdownOTel != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			log.Warn("otel shutdown failed", "error", err)
		}
	}
}
