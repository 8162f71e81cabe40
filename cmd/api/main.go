// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/config"
	"github.com/sajtmaskin/sitebuilder/internal/events"
	"github.com/sajtmaskin/sitebuilder/internal/generator"
	"github.com/sajtmaskin/sitebuilder/internal/handler"
	"github.com/sajtmaskin/sitebuilder/internal/llm"
	"github.com/sajtmaskin/sitebuilder/internal/middleware"
	"github.com/sajtmaskin/sitebuilder/internal/service"
	"github.com/sajtmaskin/sitebuilder/internal/store"
	"github.com/sajtmaskin/sitebuilder/internal/v0"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
	"github.com/sajtmaskin/sitebuilder/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "sitebuilder", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS
	eventsClient, err := events.Connect(events.Config{
		URL:   cfg.NATSURL,
		Token: cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer eventsClient.Close()

	// Ensure the generation-progress stream exists
	progressLog := events.NewLog(eventsClient)
	if err := progressLog.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	// Open local storage
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	chatRepo := store.NewChatRepository(db)
	mediaRepo := store.NewMediaRepository(db)

	// v0 Platform API client
	v0Client := v0.NewClient(cfg.V0APIKey, cfg.V0BaseURL)

	// Initialize LLM client for the avatar guide
	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" {
		llmClient, err = llm.NewClient(llm.ProviderAnthropic, cfg.AnthropicAPIKey)
		if err != nil {
			log.Warn("failed to create Anthropic client, avatar guide disabled", zap.Error(err))
			llmClient = nil
		}
	} else if cfg.OpenAIAPIKey != "" {
		llmClient, err = llm.NewClient(llm.ProviderOpenAI, cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn("failed to create OpenAI client, avatar guide disabled", zap.Error(err))
			llmClient = nil
		}
	}

	// Initialize services
	gen := generator.New(v0Client, progressLog, log)
	chatSvc := service.NewChatService(gen, v0Client, chatRepo, log)
	mediaSvc := service.NewMediaService(cfg.BlobToken, mediaRepo, log)
	deploySvc := service.NewDeployService(cfg.VercelAPIToken, v0Client, log)
	guideSvc := service.NewGuideService(llmClient, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(eventsClient)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	filesHandler := handler.NewFilesHandler(v0Client, log)
	templateHandler := handler.NewTemplateHandler(gen, log)
	deploymentHandler := handler.NewDeploymentHandler(deploySvc, log)
	mediaHandler := handler.NewMediaHandler(mediaSvc, log)
	avatarHandler := handler.NewAvatarHandler(guideSvc, log)
	streamHandler := handler.NewStreamHandler(progressLog, log)
	backofficeHandler := handler.NewBackofficeHandler(cfg.BackofficePassword, cfg.JWTSecret, cfg.JWTExpiration, chatSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/v0/chats", func(r chi.Router) {
			r.Post("/", chatHandler.Create)
			r.Get("/", chatHandler.List)
			r.Post("/init-registry", templateHandler.InitRegistry)

			r.Route("/{chatId}", func(r chi.Router) {
				r.Get("/", chatHandler.Get)
				r.Post("/messages", chatHandler.Refine)
				r.Post("/reconcile", chatHandler.Reconcile)
				r.Put("/preferences", chatHandler.Preferences)
				r.Get("/preview", chatHandler.PreviewURL)
				r.Get("/events", streamHandler.Stream)
				r.Get("/download", filesHandler.Download)

				r.Route("/files", func(r chi.Router) {
					r.Get("/", filesHandler.List)
					r.Put("/", filesHandler.Replace)
					r.Patch("/", filesHandler.Patch)
					r.Delete("/", filesHandler.Delete)
				})
			})
		})

		r.Post("/v0/deployments", deploymentHandler.Create)

		r.Route("/template", func(r chi.Router) {
			r.Post("/", templateHandler.FromTemplate)
			r.Get("/categories", templateHandler.Categories)
		})

		r.Route("/media", func(r chi.Router) {
			r.Post("/upload", mediaHandler.Upload)
			r.Get("/", mediaHandler.List)
			r.Get("/{id}", mediaHandler.Get)
			r.Delete("/{id}", mediaHandler.Delete)
		})

		r.Post("/avatar-guide", avatarHandler.Ask)

		if backofficeHandler.Enabled() {
			r.Route("/backoffice", func(r chi.Router) {
				r.Post("/login", backofficeHandler.Login)

				r.Group(func(r chi.Router) {
					r.Use(middleware.BackofficeAuth(cfg.JWTSecret))
					r.Get("/chats", chatHandler.List)
					r.Delete("/chats/{chatId}", backofficeHandler.DeleteChat)
					r.Get("/projects", backofficeHandler.ListProjects)
				})
			})
		} else {
			log.Info("backoffice disabled, no password configured")
		}
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
