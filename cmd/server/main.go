package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	importapp "github.com/bizlink/backend/internal/application/import"
	"github.com/bizlink/backend/internal/domain/bulk"
	"github.com/bizlink/backend/internal/domain/partner"
	"github.com/bizlink/backend/internal/infrastructure/config"
	"github.com/bizlink/backend/internal/infrastructure/excel"
	"github.com/bizlink/backend/internal/infrastructure/logger"
	"github.com/bizlink/backend/internal/infrastructure/persistence"
	"github.com/bizlink/backend/internal/infrastructure/staging"
	"github.com/bizlink/backend/internal/interfaces/http/handler"
	"github.com/bizlink/backend/internal/interfaces/http/middleware"
	"github.com/bizlink/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync(log)

	log.Info("starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(cfg.Database, gormLog)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", zap.Error(err))
		}
	}()

	if err := db.DB.AutoMigrate(&partner.Customer{}, &bulk.ImportHistory{}); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	historyRepo := persistence.NewGormImportHistoryRepository(db.DB)

	sessions, cleanup := newSessionStore(cfg, log)
	defer cleanup()

	parser := excel.NewParser(cfg.Import.MaxRows)
	uploadService := importapp.NewCustomerUploadService(
		customerRepo,
		historyRepo,
		sessions,
		parser,
		importapp.WithLogger(log),
		importapp.WithCodeFormat(cfg.Import.CodePrefix, cfg.Import.CodeSeqWidth),
		importapp.WithMaxErrors(cfg.Import.MaxErrors),
	)

	uploadHandler := handler.NewCustomerUploadHandler(uploadService, cfg.Import.MaxFileSize)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("failed to set trusted proxies", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsCfg))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Actor(cfg.JWT.Secret))

	engine.GET("/health", healthHandler(db, log))

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(uploadHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

// newSessionStore builds the staging backend selected by import.store.
// The returned cleanup stops background sweeping or closes the client.
func newSessionStore(cfg *config.Config, log *zap.Logger) (bulk.SessionStore, func()) {
	if cfg.Import.Store == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		log.Info("using redis session store", zap.String("addr", cfg.Redis.Addr()))
		store := staging.NewRedisStore(client, cfg.Import.SessionTTL)
		return store, func() {
			if err := client.Close(); err != nil {
				log.Error("failed to close redis client", zap.Error(err))
			}
		}
	}

	log.Info("using in-memory session store",
		zap.Duration("ttl", cfg.Import.SessionTTL),
		zap.Duration("sweep_interval", cfg.Import.SweepInterval),
	)
	store := staging.NewMemoryStore(cfg.Import.SessionTTL, cfg.Import.SweepInterval)
	return store, store.Stop
}

// healthHandler reports process and database health
func healthHandler(db *persistence.Database, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			log.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "down",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "up",
		})
	}
}
