package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/linkfeed/config"
	"github.com/cppla/linkfeed/preview"
	"github.com/cppla/linkfeed/routes"
	"github.com/cppla/linkfeed/services"
	"github.com/cppla/linkfeed/store"
	"github.com/cppla/linkfeed/utils"
)

func main() {
	cfg := config.Load()

	logger, err := utils.InitLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}

	assets, err := preview.NewAssetStore(cfg.AssetsDir, cfg.UploadMaxMB)
	if err != nil {
		logger.Fatal("asset store", zap.Error(err))
	}

	cache := utils.NewCache(utils.NewRedis(cfg))
	blacklist := utils.NewTokenBlacklist(cache)

	// An unavailable strategy (e.g. no browser for screenshots) stops startup.
	resolver, err := preview.New(assets,
		preview.NewMetadataCache(cache, time.Duration(cfg.PreviewCacheTTLMin)*time.Minute),
		preview.Options{
			Strategy:      cfg.PreviewStrategy,
			Timeout:       time.Duration(cfg.PreviewTimeoutSec) * time.Second,
			UserAgent:     cfg.PreviewUserAgent,
			MaxImageBytes: int64(cfg.PreviewMaxImageMB) << 20,
			ThumbWidth:    cfg.PreviewThumbWidth,
			ChromePath:    cfg.ChromePath,
			ScreenWidth:   cfg.ScreenshotWidth,
			ScreenHeight:  cfg.ScreenshotHeight,
		})
	if err != nil {
		logger.Fatal("preview resolver", zap.String("strategy", cfg.PreviewStrategy), zap.Error(err))
	}

	pool := preview.NewPool(resolver, assets, cfg.PreviewWorkers,
		time.Duration(cfg.PreviewTimeoutSec)*time.Second, logger)
	pool.Start(ctx)

	var postResolver services.PreviewResolver = pool
	if resolver.Name() == preview.StrategyNone {
		postResolver = nil
	}

	accessLog, err := utils.NewRollingFileLogger(cfg, cfg.GinPath)
	if err != nil {
		logger.Warn("access log disabled", zap.Error(err))
		accessLog = nil
	}

	r := routes.SetupRouter(routes.Deps{
		Config:    cfg,
		Posts:     services.NewPostService(st, st, postResolver, assets, logger),
		Feed:      services.NewFeedService(st),
		Users:     services.NewUserService(st, assets, blacklist, time.Duration(cfg.JWTExpireHours)*time.Hour, logger),
		Blacklist: blacklist,
		AccessLog: accessLog,
	})

	srv := utils.NewServer(":"+cfg.AppPort, r)
	srv.OnShutdown(func(ctx context.Context) {
		pool.Stop()
		if err := st.Close(ctx); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	})

	logger.Info("starting server",
		zap.String("port", cfg.AppPort),
		zap.String("store", cfg.StoreDriver),
		zap.String("preview", resolver.Name()))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case "mysql":
		db, err := config.OpenDatabase(cfg, logger)
		if err != nil {
			return nil, err
		}
		g := store.NewGorm(db)
		if err := g.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return g, nil
	case "mongo":
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
