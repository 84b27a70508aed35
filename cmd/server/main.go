package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpapi "sponsortree-backend/internal/api/http"
	"sponsortree-backend/internal/bootstrap"
	"sponsortree-backend/internal/config"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/repository"
	"sponsortree-backend/internal/repository/airtable"
	"sponsortree-backend/internal/security"
	"sponsortree-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	migrate := flag.Bool("migrate", false, "Apply the database schema on startup (postgres backend only)")
	flag.Parse()

	// Load configuration
	config.LoadDotEnv(".env")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting SponsorTree Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "store_backend", cfg.Store.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize record store
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, *migrate)
	if err != nil {
		logger.Error("Failed to open record store", "error", err)
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer closeStore()

	// Initialize payment method directory and member roster
	var methodRepo repository.PaymentMethodRepository
	var rosterRepo repository.RosterRepository
	if cfg.Airtable.APIKey != "" && cfg.Airtable.BaseID != "" {
		methodRepo, err = airtable.NewPaymentMethodRepository(cfg.Airtable.APIKey, cfg.Airtable.BaseID, cfg.Airtable.Table, cfg.Airtable.BaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize Airtable: %v", err)
		}
		rosterRepo, err = airtable.NewRosterRepository(cfg.Airtable.APIKey, cfg.Airtable.BaseID, cfg.Airtable.MembersTable, cfg.Airtable.BaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize Airtable roster: %v", err)
		}
		logger.Info("Airtable enabled", "base", cfg.Airtable.BaseID, "table", cfg.Airtable.Table, "membersTable", cfg.Airtable.MembersTable)
	} else {
		logger.Warn("Airtable not configured, payment directory and roster disabled")
	}

	// Initialize Telegram
	notifier := bootstrap.NewNotifier(cfg.Telegram)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	// Initialize Services
	membershipSvc := service.NewMembershipService(store.Members)
	placementSvc := service.NewPlacementService(store.Members)
	paymentSvc := service.NewPaymentService(store.Payments, service.PaymentOptions{
		DefaultGateway:  cfg.Payments.DefaultGateway,
		CheckoutBaseURL: cfg.Payments.CheckoutBaseURL,
	})
	approvalSvc := service.NewApprovalService(store.Members, store.Payments, placementSvc, notifier, cfg.Telegram.AdminUserIDs)
	commandSvc := service.NewAdminCommandService(methodRepo, cfg.Telegram.AdminUserIDs)
	webhookSvc := service.NewWebhookService(store.Members, store.Payments, approvalSvc, commandSvc, notifier)
	verificationSvc := service.NewVerificationService(store.Verifications, rosterRepo, notifier, time.Duration(cfg.OTP.TTLMinutes)*time.Minute)
	authSvc := service.NewAuthService(cfg.Auth.PasswordHash, tokenManager)

	// Set up HTTP server
	handler := httpapi.NewHandler(httpapi.Services{
		Members:        membershipSvc,
		Payments:       paymentSvc,
		Webhooks:       webhookSvc,
		Verification:   verificationSvc,
		Auth:           authSvc,
		PaymentMethods: methodRepo,
		Roster:         rosterRepo,
	}, tokenManager)

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           httpapi.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
	}()

	logger.Info("HTTP server listening", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Failed to serve HTTP", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
	logger.Info("HTTP server stopped")
}

