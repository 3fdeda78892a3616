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

	"auctionhouse/internal/client/hypixel"
	"auctionhouse/internal/config"
	cronrunner "auctionhouse/internal/cron"
	"auctionhouse/internal/db"
	"auctionhouse/internal/handler"
	"auctionhouse/internal/logger"
	"auctionhouse/internal/paas"
	gormrepository "auctionhouse/internal/repository/gorm"
	"auctionhouse/internal/service"
)

func main() {
	cfgPath := os.Getenv("AH_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("AH_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log, cfg.App.Env)
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

	feedHTTP := &http.Client{Timeout: cfg.Hypixel.Timeout}
	feed := hypixel.NewClient(feedHTTP, cfg.Hypixel.BaseURL, cfg.Hypixel.APIKey)
	store := gormrepository.New(dbConn.Gorm)

	var seen *service.SeenFilter
	if cfg.Ingest.DedupeCapacity > 0 {
		seen = service.NewSeenFilter(cfg.Ingest.DedupeCapacity, 0.001)
	}
	ingest := &service.IngestService{
		Store:            store,
		Feed:             feed,
		Logger:           logger,
		Seen:             seen,
		RecentPages:      cfg.Ingest.RecentPages,
		ChunkSize:        cfg.Ingest.ChunkSize,
		Workers:          cfg.Ingest.Workers,
		PersistAnomalies: cfg.Ingest.PersistAnomalies,
	}
	queryService := &service.AuctionQueryService{Repo: store}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	paasClient := paas.Connect(ctx, cfg.PaaS, logger)
	baseCtx := paas.WithClient(ctx, paasClient)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(paas.RequireBearerMiddleware(cfg.PaaS))
	engine.Use(paas.InjectClientMiddleware(paasClient))
	engine.Use(paas.WriteAuditMiddleware(paasClient, logger))

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	paas.RegisterDocs(engine)
	auctionHandler := &handler.AuctionHandler{
		Ingest:       ingest,
		QueryService: queryService,
		Logger:       logger,
	}
	auctionHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	runSync := func(ctx context.Context, scope string) {
		result, err := ingest.Sync(ctx, service.SyncOptions{Scope: scope})
		if errors.Is(err, service.ErrSyncRunning) {
			logger.Debug("sync still running, tick skipped", zap.String("scope", scope))
			return
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Warn("cron auction sync failed", zap.String("scope", scope), zap.Error(err))
			}
			return
		}
		if !result.Unchanged {
			logger.Info("cron auction sync ok",
				zap.String("scope", result.Scope),
				zap.Int("pages", result.Pages),
				zap.Int("rows", result.Rows),
				zap.Int("skipped", result.Skipped),
				zap.Int("anomalies", result.Anomalies),
			)
		}
	}

	if cfg.Ingest.InitialFullSync {
		go runSync(baseCtx, service.ScopeFull)
	}

	cronRunner := cronrunner.New(logger, baseCtx)
	if cfg.Cron.Enabled {
		if spec := strings.TrimSpace(cfg.Cron.RecentSync); spec != "" {
			if _, err := cronRunner.Add("recent_sync", spec, func(ctx context.Context) {
				runSync(ctx, service.ScopeRecent)
			}); err != nil {
				logger.Warn("cron register recent sync failed", zap.Error(err))
			}
		}
		if spec := strings.TrimSpace(cfg.Cron.FullSync); spec != "" {
			if _, err := cronRunner.Add("full_sync", spec, func(ctx context.Context) {
				runSync(ctx, service.ScopeFull)
			}); err != nil {
				logger.Warn("cron register full sync failed", zap.Error(err))
			}
		}
		if spec := strings.TrimSpace(cfg.Cron.Retention); spec != "" && cfg.Ingest.Retention > 0 {
			if _, err := cronRunner.Add("retention", spec, func(ctx context.Context) {
				if _, err := ingest.PurgeEnded(ctx, cfg.Ingest.Retention); err != nil {
					logger.Warn("purge ended auctions failed", zap.Error(err))
				}
			}); err != nil {
				logger.Warn("cron register retention failed", zap.Error(err))
			}
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)

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
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
