package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/medflow/idscan/internal/idscan/events"
	"github.com/medflow/idscan/internal/idscan/handler"
	"github.com/medflow/idscan/internal/idscan/repository"
	"github.com/medflow/idscan/internal/idscan/service"
	"github.com/medflow/idscan/pkg/config"
	"github.com/medflow/idscan/pkg/database"
	"github.com/medflow/idscan/pkg/httputil"
	"github.com/medflow/idscan/pkg/i18n"
	"github.com/medflow/idscan/pkg/logger"
	"github.com/medflow/idscan/pkg/messaging"
)

const serviceName = "idscan-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(logger.Options{
		Service:     serviceName,
		Environment: cfg.Server.Environment,
		Level:       cfg.Server.LogLevel,
	})
	log.Info().Msg("starting ID scan service")

	httputil.ExposeStackTraces(cfg.Server.IsDevelopment())

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := db.Migrate(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
		log.Info().Strs("applied", applied).Msg("database schema up to date")
	}

	// RabbitMQ is optional; without it record events are not published
	var rmq *messaging.RabbitMQ
	publisher := events.NewRecordEventPublisher(nil, log)
	if cfg.RabbitMQ.Enabled() {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewRabbitMQRecordEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	} else {
		log.Info().Msg("RabbitMQ not configured, record events disabled")
	}

	uploadService, err := service.NewUploadServiceFromConfig(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up upload pipeline")
	}
	if cfg.OCR.APIKey == "" {
		log.Warn().Msg("IDSCAN_OCR_API_KEY is empty, uploads will fail at the OCR step")
	}

	recordService := service.NewRecordService(repository.NewRecordRepository(db), publisher, log)
	idHandler := handler.NewHandler(uploadService, recordService, log)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(i18n.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Language"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var broker httputil.BrokerHealth
	if rmq != nil {
		broker = rmq
	}
	r.Get("/health", httputil.Health(serviceName, db, broker))

	idHandler.Routes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
