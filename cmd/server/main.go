package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/retailops/replenish/internal/api"
	"github.com/retailops/replenish/internal/batch"
	"github.com/retailops/replenish/internal/cache"
	"github.com/retailops/replenish/internal/config"
	"github.com/retailops/replenish/internal/masterdata"
	"github.com/retailops/replenish/internal/storage"
	"github.com/retailops/replenish/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
		logger.SetLevel("debug")
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger.SetLevel("info")
	}

	store, err := newStore(cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to initialize event store")
	}

	db, err := masterdata.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to connect to master database")
	}
	defer db.Close()

	masterCache, err := cache.NewMasterDataCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("cache unavailable, running uncached")
		masterCache = cache.NewNoopMasterDataCache()
	}
	master := cache.NewCachedSource(masterdata.NewRepository(db), masterCache)

	controller := batch.NewController(store, master, cfg.Pipeline)
	router := api.NewRouter(controller, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Log.Info().Msg("server exiting")
}

func newStore(cfg *config.Config) (storage.EventStore, error) {
	if cfg.Store.Backend == "s3" {
		return storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.Store.Endpoint,
			AccessKey: cfg.Store.AccessKey,
			SecretKey: cfg.Store.SecretKey,
			Bucket:    cfg.Store.Bucket,
			Region:    cfg.Store.Region,
			UseSSL:    cfg.Store.UseSSL,
		})
	}
	return storage.NewFSStore(cfg.Store.RootDir)
}
