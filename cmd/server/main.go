package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"poRequestTracker/internal/accounts"
	"poRequestTracker/internal/auth"
	"poRequestTracker/internal/bulk"
	"poRequestTracker/internal/config"
	"poRequestTracker/internal/db"
	grpcserver "poRequestTracker/internal/grpc"
	"poRequestTracker/internal/health"
	"poRequestTracker/internal/httpapi"
	"poRequestTracker/internal/log"
	"poRequestTracker/internal/matching"
	"poRequestTracker/internal/metrics"
	"poRequestTracker/internal/notify"
	"poRequestTracker/internal/purchasing"
	"poRequestTracker/internal/storage"
	"poRequestTracker/repository"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout        = 10 * time.Second
	sessionCleanupInterval = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		logger := log.Base()
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.LoadWithDefaults()
	if err != nil {
		return err
	}
	log.Configure(log.Config{Level: cfg.Log.Level})
	logger := log.WithComponent("main")
	logger.Info().Str("version", version).Str("config", cfg.String()).Msg("configuration loaded")
	if os.Getenv("SECRET_KEY") == "" {
		logger.Warn().Msg("SECRET_KEY not set, using development default")
	}

	layout := storage.Resolve(cfg.Storage.DataDir, cfg.Storage.DataDirSet)
	if err := layout.Ensure(); err != nil {
		return err
	}
	layout.Report(logger)
	metrics.SetPersistentStorage(layout.Persistent)

	d, err := db.Open(layout.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Error().Err(err).Msg("close db")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Seed(ctx, d, auth.HashPassword); err != nil {
		return err
	}

	users := repository.NewUserRepository(d)
	pos := repository.NewPORequestRepository(d)
	jobs := repository.NewJobRepository(d)
	activity := repository.NewActivityRepository(d)
	settings := repository.NewSettingsRepository(d)
	aiUsage := repository.NewAIUsageRepository(d)
	sessions := auth.NewSessions(cfg.Auth.SessionTTL)
	invoices := storage.NewStore(layout.InvoiceDir)

	ai := matching.NewAIMatcher(matching.AIOptions{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Enabled: cfg.AI.Enabled,
	}, settings, aiUsage, log.WithComponent("matching"))

	po := &purchasing.Service{
		POs:      pos,
		Jobs:     jobs,
		Users:    users,
		Activity: activity,
		Invoices: invoices,
		Logger:   log.WithComponent("purchasing"),
	}
	if cfg.Notify.TelegramEnabled() {
		po.Notifier = notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, cfg.HTTP.WebsiteURL, log.WithComponent("telegram"))
	} else {
		logger.Info().Msg("Telegram notifications disabled")
	}

	acct := &accounts.Service{
		Users:    users,
		Tokens:   repository.NewResetTokenRepository(d),
		Activity: activity,
		Sessions: sessions,
		Secret:   cfg.Auth.SecretKey,
		Logger:   log.WithComponent("accounts"),
	}
	if cfg.Notify.SMTPEnabled() {
		acct.Mailer = notify.NewMailer(notify.MailConfig{
			Host:       cfg.Notify.SMTPHost,
			Port:       cfg.Notify.SMTPPort,
			Username:   cfg.Notify.SMTPUsername,
			Password:   cfg.Notify.SMTPPassword,
			From:       cfg.Notify.SMTPFrom,
			WebsiteURL: cfg.HTTP.WebsiteURL,
		}, log.WithComponent("mail"))
	} else {
		logger.Info().Msg("SMTP not configured, password reset email disabled")
	}

	hm := health.NewManager(version, layout.DataDir, layout.Persistent)
	hm.RegisterChecker(health.StorageChecker{Layout: layout})
	hm.RegisterChecker(health.DBChecker{DB: d})
	verifier := &health.Verifier{
		AI:           ai,
		APIKey:       cfg.AI.APIKey,
		SecretSet:    os.Getenv("SECRET_KEY") != "",
		DataDirSet:   cfg.Storage.DataDirSet,
		WebsiteURL:   os.Getenv("WEBSITE_URL"),
		TelegramBot:  cfg.Notify.TelegramToken != "",
		TelegramChat: cfg.Notify.TelegramChatID != "",
		DB:           d,
	}

	api := &httpapi.Server{
		Accounts:   acct,
		Purchasing: po,
		Bulk: bulk.NewProcessor(&matching.Extractor{Jobs: jobs, AI: ai, Logger: log.WithComponent("extract")},
			pos, invoices, log.WithComponent("bulk")),
		AI:          ai,
		Settings:    settings,
		AIUsage:     aiUsage,
		Health:      hm,
		Verifier:    verifier,
		Sessions:    sessions,
		Secret:      cfg.Auth.SecretKey,
		BulkDir:     layout.BulkDir,
		MaxUploadMB: cfg.HTTP.MaxUploadMB,
		Logger:      log.WithComponent("http"),
	}
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	rpc := grpcserver.New(grpcserver.Options{
		Address:  cfg.GRPC.Address,
		Secret:   cfg.Auth.SecretKey,
		Sessions: sessions,
		Logger:   log.WithComponent("grpc"),
	}, &grpcserver.StorageServer{Health: hm, Verifier: verifier, Users: users})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("address", httpSrv.Addr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(rpc.ListenAndServe)
	g.Go(func() error {
		t := time.NewTicker(sessionCleanupInterval)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				if n := sessions.Cleanup(); n > 0 {
					logger.Debug().Int("removed", n).Msg("expired sessions removed")
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		if err := httpSrv.Shutdown(sctx); err != nil {
			errs = append(errs, err)
		}
		if err := rpc.Shutdown(sctx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
