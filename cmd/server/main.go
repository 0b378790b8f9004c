package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/anotoki/config"
	"github.com/d60-Lab/anotoki/internal/api/handler"
	"github.com/d60-Lab/anotoki/internal/api/middleware"
	"github.com/d60-Lab/anotoki/internal/api/router"
	"github.com/d60-Lab/anotoki/internal/auth"
	"github.com/d60-Lab/anotoki/internal/cache"
	"github.com/d60-Lab/anotoki/internal/repository"
	"github.com/d60-Lab/anotoki/internal/service"
	"github.com/d60-Lab/anotoki/pkg/database"
	"github.com/d60-Lab/anotoki/pkg/logger"
	"github.com/d60-Lab/anotoki/pkg/tracing"
)

// @title anotoki API
// @version 1.0
// @description 会员制的经验分享服务：帖子、分类、点赞与收藏。
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		panic(err)
	}
	defer logger.Sync()
	gin.SetMode(cfg.Server.Mode)

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			SampleRate:       cfg.Sentry.SampleRate,
			AttachStacktrace: true,
		}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}

	dbh := database.NewHandle(cfg.Database)
	db, err := dbh.DB()
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}

	rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("redis unavailable, category cache disabled", zap.Error(err))
		rdb = nil
	}

	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)
	catRepo := repository.NewCategoryRepository(db)
	reactRepo := repository.NewReactionRepository(db)

	categoryCache := cache.NewCategories(catRepo, rdb, cfg.Redis.CategoryTTL)
	categories := service.NewCategoryService(catRepo, categoryCache)
	if err := categories.EnsureDefaults(ctx); err != nil {
		logger.Fatal("seed categories failed", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	h := handler.NewHandler(handler.Deps{
		Posts:      service.NewPostService(postRepo, userRepo, catRepo, categoryCache, reactRepo),
		Reactions:  service.NewReactionService(postRepo, reactRepo),
		Categories: categories,
		Users:      service.NewUserService(userRepo),
		Tokens:     tokens,
		Provider:   auth.NewProvider(cfg.Auth.OAuth),
		Session: handler.SessionConfig{
			CookieName:   cfg.Auth.CookieName,
			CookieSecure: cfg.Auth.CookieSecure,
			PostLoginURL: cfg.Auth.PostLoginURL,
		},
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})

	r := router.Setup(h, tokens, router.Options{
		ServiceName: cfg.Tracing.ServiceName,
		Limiter:     middleware.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Swagger:     cfg.Server.Mode != gin.ReleaseMode,
	})

	sweeper := service.NewOrphanSweeper(reactRepo, cfg.Sweeper.Interval, cfg.Sweeper.BatchSize)
	stopSweeper := sweeper.Start()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := stopSweeper(shutdownCtx); err != nil {
		logger.Warn("sweeper stop", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := dbh.Close(); err != nil {
		logger.Error("database close", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}
