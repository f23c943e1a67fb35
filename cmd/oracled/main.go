package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"oracle/internal/client/webhook"
	"oracle/internal/config"
	cronrunner "oracle/internal/cron"
	"oracle/internal/db"
	"oracle/internal/handler"
	"oracle/internal/logger"
	gormrepository "oracle/internal/repository/gorm"
	"oracle/internal/service"
)

func main() {
	cfgPath := os.Getenv("ORACLE_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("ORACLE_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	marketSvc := &service.MarketService{Repo: store}
	intakeSvc := &service.ReportIntakeService{Repo: store}
	ledgerSvc := &service.LedgerService{Repo: store, Logger: logger}
	builderSvc := &service.BatchBuilderService{Repo: store, Logger: logger}

	sinkHTTP := &http.Client{Timeout: cfg.Sink.Timeout}
	sink := webhook.NewClient(sinkHTTP, cfg.Sink.URL, cfg.Sink.AuthToken)
	relaySvc := &service.OutboxRelayService{
		Repo:   store,
		Sink:   sink,
		Config: cfg.Outbox,
		Logger: logger,
		Flags:  settingsSvc,
	}
	resolverSvc := &service.ResolverService{
		Repo:   store,
		Ledger: ledgerSvc,
		Config: cfg.Resolver,
		Logger: logger,
		Flags:  settingsSvc,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	marketHandler := &handler.MarketHandler{Markets: marketSvc}
	marketHandler.Register(engine)
	reportHandler := &handler.ReportHandler{Intake: intakeSvc}
	reportHandler.Register(engine)
	settlementHandler := &handler.SettlementHandler{Ledger: ledgerSvc}
	settlementHandler.Register(engine)
	batchHandler := &handler.BatchHandler{Builder: builderSvc, Repo: store}
	batchHandler.Register(engine)
	outboxHandler := &handler.OutboxHandler{Repo: store, Relay: relaySvc}
	outboxHandler.Register(engine)
	settingsHandler := &handler.SystemSettingsHandler{Repo: store, Settings: settingsSvc}
	settingsHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	_, err = cronRunner.Add(cfg.Outbox.ReapInterval, func(ctx context.Context) {
		if !settingsSvc.IsEnabled(ctx, service.FeatureLeaseReaper, true) {
			return
		}
		n, err := relaySvc.ReapLeases(ctx)
		if err != nil {
			logger.Warn("outbox lease reap failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("requeued expired outbox leases", zap.Int64("count", n))
		}
	})
	if err != nil {
		logger.Warn("cron register lease reaper failed", zap.Error(err))
	}

	_, err = cronRunner.Add("@every 1m", func(ctx context.Context) {
		counts, err := store.CountOutboxByStatus(ctx)
		if err != nil {
			logger.Warn("outbox stats failed", zap.Error(err))
			return
		}
		logger.Info("outbox status",
			zap.Int64("pending", counts["PENDING"]),
			zap.Int64("in_flight", counts["IN_FLIGHT"]),
			zap.Int64("sent", counts["SENT"]),
			zap.Int64("failed", counts["FAILED"]),
		)
	})
	if err != nil {
		logger.Warn("cron register outbox stats failed", zap.Error(err))
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	go func() {
		if err := resolverSvc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("resolver stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := relaySvc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("outbox relay stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
