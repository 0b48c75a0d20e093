package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pastebox/cfg"
	"pastebox/metrics"
	"pastebox/svc/api"
	"pastebox/svc/cache"
	"pastebox/svc/db"
	"pastebox/svc/svc"
	"pastebox/svc/util"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "-health" {
		runHealthProbe()
		return
	}

	// .env is optional; deployments configure through the environment
	_ = godotenv.Load()

	util.InitLog("info", false)
	c, err := cfg.Load()
	if err != nil {
		util.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(c); err != nil {
		util.Fatal().Err(err).Msg("invalid configuration")
	}
	defer c.Wipe()
	util.InitLog(c.LogLevel, c.Environment == "development")

	util.Info().Str("environment", c.Environment).Msg("starting pastebox")
	metrics.Init()

	sqlDB, err := db.NewSQLiteWithConfig(c.DatabasePath, c.DBMaxOpenConns, c.DBMaxIdleConns, c.DBQueryTimeout)
	if err != nil {
		util.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer sqlDB.Close()
	util.Info().Str("path", c.DatabasePath).Msg("database initialized")

	var rdb *db.Redis
	if c.RedisURL != "" {
		rdb, err = db.NewRedis(c.RedisURL, c)
		if err != nil {
			util.Warn().Err(err).Msg("redis unavailable, serving from sqlite only")
			rdb = nil
		} else {
			util.Info().Msg("redis cache connected")
		}
	}
	if rdb != nil {
		defer rdb.Close()
	}

	lruCache, err := cache.NewLRU(c.LRUCacheSize)
	if err != nil {
		util.Fatal().Err(err).Msg("failed to create LRU cache")
	}
	util.Info().Int("size", c.LRUCacheSize).Msg("LRU cache initialized")

	pasteSvc := svc.NewPaste(sqlDB, lruCache, rdb, util.NewIDGenerator(time.Now), c)
	util.Info().Msg("paste service initialized")

	server := api.NewServer(c, pasteSvc, sqlDB, rdb)

	quitWAL := make(chan struct{})
	walDone := db.StartWALMaintenance(sqlDB.DB(), quitWAL)
	util.Info().Msg("WAL maintenance worker started")

	go func() {
		if err := server.Start(); err != nil {
			util.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	util.Info().Msg("shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		util.Error().Err(err).Msg("server shutdown error")
	}

	close(quitWAL)
	select {
	case <-walDone:
		util.Info().Msg("WAL maintenance stopped")
	case <-time.After(5 * time.Second):
		util.Warn().Msg("WAL maintenance did not stop in time")
	}
	util.Info().Msg("shutdown complete")
}

func runHealthProbe() {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "pastes.db"
	}
	sqlDB, err := db.NewSQLite(dbPath)
	if err != nil {
		os.Exit(1)
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sqlDB.Ping(ctx); err != nil {
		os.Exit(1)
	}
}
