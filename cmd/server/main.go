package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/ekaramel/rentdesk/internal/assignments"
	"github.com/ekaramel/rentdesk/internal/auth"
	"github.com/ekaramel/rentdesk/internal/config"
	"github.com/ekaramel/rentdesk/internal/database"
	"github.com/ekaramel/rentdesk/internal/extract"
	"github.com/ekaramel/rentdesk/internal/health"
	"github.com/ekaramel/rentdesk/internal/mail"
	"github.com/ekaramel/rentdesk/internal/notifications"
	"github.com/ekaramel/rentdesk/internal/payments"
	"github.com/ekaramel/rentdesk/internal/plans"
	"github.com/ekaramel/rentdesk/internal/properties"
	"github.com/ekaramel/rentdesk/internal/reminders"
	"github.com/ekaramel/rentdesk/internal/stats"
	"github.com/ekaramel/rentdesk/internal/token"
	"github.com/ekaramel/rentdesk/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	slog.SetDefault(worker.NewLogger(cfg.LogLevel, cfg.LogFormat))

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}
	defer database.Close(db) //nolint:errcheck

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	if cfg.Env == "development" {
		if err := database.SeedDevData(db); err != nil {
			log.Printf("WARNING: dev seed failed: %v", err)
		}
	}

	planRegistry, err := plans.Load()
	if err != nil {
		log.Fatalf("plan manifest failed to load: %v", err)
	}

	publisher, err := mail.NewPublisher(cfg.RedisURL)
	if err != nil {
		log.Fatalf("mail publisher init failed: %v", err)
	}
	defer publisher.Close() //nolint:errcheck

	sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)

	stopConsumer, err := mail.StartConsumer(cfg.RedisURL, db, sender)
	if err != nil {
		log.Fatalf("outbox consumer failed to start: %v", err)
	}
	defer stopConsumer()

	stopWorker, err := worker.Start(cfg, db, publisher)
	if err != nil {
		log.Fatalf("worker failed to start: %v", err)
	}
	defer stopWorker()

	stopScheduler, err := worker.StartScheduler(cfg)
	if err != nil {
		log.Fatalf("scheduler failed to start: %v", err)
	}
	defer stopScheduler()

	refreshStore, err := token.NewRefreshStore(cfg.RedisURL, cfg.RefreshTokenTTL)
	if err != nil {
		log.Fatalf("refresh store init failed: %v", err)
	}
	defer refreshStore.Close() //nolint:errcheck

	gateway := payments.NewGateway(cfg.PaymentBaseURL, cfg.PaymentAPIKey, cfg.PaymentAPISecret, cfg.PaymentStubMode)
	extractClient := extract.NewClient(cfg.ExtractURL, cfg.ExtractSecret, cfg.ExtractStubMode)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", gin.WrapF(health.Handler))

	api := router.Group("/api")
	authAPI := &auth.API{DB: db, Cfg: cfg, Refresh: refreshStore, Mail: publisher}
	authAPI.Register(api)

	authed := api.Group("", auth.RequireAuth(cfg.JWTSecret))
	properties.Register(authed, db, publisher, cfg.UploadDir)
	reminders.Register(authed, db)
	notifications.Register(authed, db, sender, cfg.MailFrom)
	stats.Register(authed, db)
	extract.Register(authed, db, extractClient)
	payments.Register(authed, api, db, gateway, planRegistry, cfg)

	authed.POST("/assignments", assignments.ValidateCreate(), assignments.CreateHandler(db, publisher))
	authed.GET("/assignments/pending", assignments.ListPendingHandler(db))
	authed.GET("/assignments/sent", assignments.ListSentHandler(db))
	authed.PUT("/assignments/:id/accept", assignments.AcceptHandler(db, publisher))
	authed.PUT("/assignments/:id/reject", assignments.RejectHandler(db, publisher))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL, "http://localhost:5173"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: corsHandler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err.Error())
	}
}
