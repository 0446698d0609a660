package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ibtikar-org-tr/membership-app/internal/client/moodle"
	"github.com/ibtikar-org-tr/membership-app/internal/client/sheets"
	"github.com/ibtikar-org-tr/membership-app/internal/config"
	"github.com/ibtikar-org-tr/membership-app/internal/handler"
	"github.com/ibtikar-org-tr/membership-app/internal/repository"
	authservice "github.com/ibtikar-org-tr/membership-app/internal/service/auth"
	"github.com/ibtikar-org-tr/membership-app/internal/service/mailer"
	memberservice "github.com/ibtikar-org-tr/membership-app/internal/service/members"
	syncservice "github.com/ibtikar-org-tr/membership-app/internal/service/sync"
	"github.com/ibtikar-org-tr/membership-app/internal/service/workers"
	"github.com/ibtikar-org-tr/membership-app/pkg/cache"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// NewServer wires every component, starts the background workers and the
// HTTP API, and blocks until SIGINT/SIGTERM.
func NewServer(cfg config.Config, logger *zap.Logger) {
	ctx := context.Background()

	db, err := pgxpool.New(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	memberCache := cache.NewCache(cfg.RedisAddr, cfg.RedisPass)
	defer memberCache.Close()
	if err := memberCache.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, member lookups fall back to sheet reads", zap.Error(err))
	}

	rawCreds, err := os.ReadFile(cfg.GoogleCredsFile)
	if err != nil {
		log.Fatalf("Failed to read Google credentials: %v", err)
	}
	creds, err := sheets.ParseCredentials(rawCreds)
	if err != nil {
		log.Fatalf("Failed to parse Google credentials: %v", err)
	}
	sheetsClient := sheets.New(creds)

	moodleClient := moodle.New(cfg.MoodleAPIURL, cfg.MoodleToken)

	sender := mailer.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	notifier := mailer.NewNotifier(sender, cfg.AppBaseURL)

	// Repositories
	configRepo := repository.NewSheetConfigRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	resetRepo := repository.NewResetRepository(db)

	// Services
	syncSvc := syncservice.NewService(
		sheetsClient,
		moodleClient,
		notifier,
		auditRepo,
		configRepo,
		cfg.MemberPrefix,
		cfg.CallTimeout,
		logger,
	)

	tokens := authservice.NewTokenMaker(cfg.JWTSecret)
	authSvc := authservice.NewService(sheetsClient, configRepo, memberCache, tokens, cfg.AdminPassword, logger)

	memberSvc := memberservice.NewService(sheetsClient, configRepo, moodleClient, auditRepo, logger)

	bgWorkers := workers.New(syncSvc, resetRepo, auditRepo, cfg.SyncInterval, cfg.CleanupInterval, logger)
	bgWorkers.Start()
	defer bgWorkers.Stop()

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, resetRepo, auditRepo, notifier, logger)
	memberHandler := handler.NewMemberHandler(authSvc, logger)
	adminHandler := handler.NewAdminHandler(configRepo, auditRepo, bgWorkers, memberSvc, authSvc, logger)

	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/forgot-password", authHandler.ForgotPassword).Methods(http.MethodPost)
	api.HandleFunc("/auth/reset-password", authHandler.ResetPassword).Methods(http.MethodPost)

	member := api.PathPrefix("/member").Subrouter()
	member.Use(handler.RequireMember(authSvc))
	member.HandleFunc("/me", memberHandler.Me).Methods(http.MethodGet)
	member.HandleFunc("/password", memberHandler.ChangePassword).Methods(http.MethodPut)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(handler.RequireAdmin(authSvc))
	admin.HandleFunc("/config/form", adminHandler.GetFormConfig).Methods(http.MethodGet)
	admin.HandleFunc("/config/form", adminHandler.SetFormConfig).Methods(http.MethodPost)
	admin.HandleFunc("/config/roster", adminHandler.GetRosterConfig).Methods(http.MethodGet)
	admin.HandleFunc("/config/roster", adminHandler.SetRosterConfig).Methods(http.MethodPost)
	admin.HandleFunc("/members", adminHandler.Members).Methods(http.MethodGet)
	admin.HandleFunc("/members/{membershipNumber}", adminHandler.UpdateMember).Methods(http.MethodPut)
	admin.HandleFunc("/members/{membershipNumber}", adminHandler.DeleteMember).Methods(http.MethodDelete)
	admin.HandleFunc("/logs", adminHandler.Logs).Methods(http.MethodGet)
	admin.HandleFunc("/sync", adminHandler.TriggerSync).Methods(http.MethodPost)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Server stopped gracefully")
}
