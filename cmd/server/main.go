package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"maze-arcade/internal/config"
	apphttp "maze-arcade/internal/http"
	"maze-arcade/internal/mail"
	"maze-arcade/internal/repository/sqlite"
	"maze-arcade/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.CookieSecret) == "" {
		logger.Fatalf("auth cookie secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	accountRepo := sqlite.NewAccountRepository(db)
	if err := accountRepo.Init(ctx); err != nil {
		logger.Fatalf("init account repository: %v", err)
	}

	hasher := service.NewPasswordHasher()
	accountService := service.NewAccountService(accountRepo, hasher)

	sessionManager, err := service.NewSessionManager(accountRepo, hasher)
	if err != nil {
		logger.Fatalf("init session manager: %v", err)
	}
	ledger := service.NewScoreLedger(accountRepo, sessionManager)

	mailer := mail.NewSMTPMailer(cfg.Mail.Server, cfg.Mail.Sender, cfg.Site.Name, logger)
	verification := service.NewVerificationService(accountRepo, mailer, cfg.Site.BaseURL)

	cookies := apphttp.NewCookieCodec(cfg.Auth.CookieSecret, time.Duration(cfg.Auth.CookieTTLHours)*time.Hour)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(apphttp.RateLimit(cfg.Server.RateLimitPerHour, cfg.Server.RateLimitBurst))
	handler := apphttp.NewHandler(
		accountService,
		sessionManager,
		ledger,
		verification,
		cookies,
		logger,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}
