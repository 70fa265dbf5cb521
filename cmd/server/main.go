package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/blockedby/resume-refresh/internal/capability"
	"github.com/blockedby/resume-refresh/internal/config"
	"github.com/blockedby/resume-refresh/internal/database"
	"github.com/blockedby/resume-refresh/internal/dispatcher"
	"github.com/blockedby/resume-refresh/internal/logger"
	"github.com/blockedby/resume-refresh/internal/mailer"
	"github.com/blockedby/resume-refresh/internal/migrator"
	"github.com/blockedby/resume-refresh/internal/nats"
	"github.com/blockedby/resume-refresh/internal/publisher"
	"github.com/blockedby/resume-refresh/internal/repository"
	"github.com/blockedby/resume-refresh/internal/web"
	"github.com/blockedby/resume-refresh/internal/web/handlers"
	"github.com/blockedby/resume-refresh/migrations"
)

func main() {
	// 1. Load .env (optional) and config
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	var logOpts []logger.Option
	if cfg.IsProduction() {
		logOpts = append(logOpts, logger.WithJSON())
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFile, logOpts...); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Str("env", cfg.AppEnv).Msg("starting resume refresh service")

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Connect to database and apply migrations
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m, err := migrator.NewWithFS(migrations.FS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create migrator")
	}
	if err := m.Up(ctx, cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	// 5. Connect to NATS (optional)
	var pub *publisher.NATSPublisher
	if cfg.NatsURL != "" {
		nc, err := nats.New(ctx, cfg.NatsURL, log.Component("nats"))
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, publishing disabled")
		} else {
			defer nc.Close()
			if err := nc.EnsureStream(ctx, nats.StreamName, publisher.StreamSubjects); err != nil {
				log.Warn().Err(err).Msg("failed to ensure nats stream")
			}
			pub = publisher.NewNATSPublisher(nc.Conn)
		}
	}

	// 6. Initialize repositories
	deliveriesRepo := repository.NewDeliveriesRepository(db.Pool, log.Component("ledger"))
	statsRepo := repository.NewStatsRepository(db.Pool)
	submissionsRepo := repository.NewSubmissionsRepository(db.GORM, log.Component("submissions"))

	// 7. Capability classifier
	var extraDomains []string
	if cfg.AMPDomainsFile != "" {
		extraDomains, err = capability.LoadDomains(cfg.AMPDomainsFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.AMPDomainsFile).Msg("failed to load amp domains")
		}
	}
	classifier := capability.New(extraDomains...)
	log.Info().Int("domains", len(classifier.Domains())).Msg("amp allow-list loaded")

	// 8. Mail transport and dispatcher
	transport := mailer.NewSMTPTransport(mailer.Config{
		Host:          cfg.SMTPHost,
		Port:          cfg.SMTPPort,
		Secure:        cfg.SMTPSecure,
		Username:      cfg.SMTPUser,
		Password:      cfg.SMTPPass,
		TLSSkipVerify: cfg.SMTPTLSSkipVerify,
		Timeout:       cfg.SMTPTimeout,
	}, log.Component("smtp"))

	var deliveryEvents dispatcher.EventPublisher
	var submissionEvents handlers.SubmissionEvents
	if pub != nil {
		deliveryEvents = pub
		submissionEvents = pub
	}

	tracker := dispatcher.NewDeliveryTracker(deliveriesRepo, deliveryEvents, log.Component("tracker"))
	svc := dispatcher.NewDispatcherService(
		classifier,
		dispatcher.NewEmailSender(transport, cfg.SMTPFrom),
		tracker,
		statsRepo,
		dispatcher.Config{
			CallbackBaseURL: cfg.PublicBaseURL,
			BulkPause:       cfg.BulkSendPause,
		},
		log.Component("dispatcher"),
	)

	if status := svc.TestConnection(ctx); !status.Success {
		log.Warn().Str("reason", status.Message).Msg("email transport not reachable at startup")
	}

	// 9. Templates and handlers
	tmpl := web.NewTemplateEngine(web.Templates())
	if err := tmpl.Load(); err != nil {
		log.Fatal().Err(err).Msg("failed to load templates")
	}

	notificationsHandler := handlers.NewNotificationsHandler(svc, deliveriesRepo, cfg.PublicBaseURL)
	submissionsHandler := handlers.NewSubmissionsHandler(submissionsRepo, submissionEvents)
	webFormHandler := handlers.NewWebFormHandler(tmpl, submissionsRepo, submissionEvents, cfg.PublicBaseURL, cfg.DefaultCompanyName)

	// 10. Initialize server and register handlers
	server := web.NewServer(&web.Config{
		Port:            cfg.HTTPPort,
		Environment:     cfg.AppEnv,
		Production:      cfg.IsProduction(),
		FrontendURL:     cfg.FrontendURL,
		RateLimitWindow: cfg.RateLimitWindow,
		RateLimitMax:    cfg.RateLimitMax,
	}, log.Component("http"))

	server.RegisterNotificationHandler(notificationsHandler)
	server.RegisterSubmissionHandler(submissionsHandler)
	server.RegisterWebFormHandler(webFormHandler)

	// 11. Start server
	log.Info().Int("port", cfg.HTTPPort).Msg("starting web server")
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	// 12. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("shutdown complete")
}
