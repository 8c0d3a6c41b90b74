package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sgd-gov/despacho-service/audit"
	"github.com/sgd-gov/despacho-service/config"
	"github.com/sgd-gov/despacho-service/repository"
	"github.com/sgd-gov/despacho-service/server"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "config", "", "Path to the yaml config file (optional)")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Building logger: %v", err)
	}
	defer logger.Sync()

	repo := repository.NewRepository(logger, cfg.RetentionPeriod)
	logger.Info("connecting to database")
	if err := repo.ConnectDB(cfg.PostgresDSN); err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := repo.Migrate(); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	if cfg.SeedOnStart {
		if err := repo.Seed(); err != nil {
			logger.Fatal("seeding failed", zap.Error(err))
		}
	}

	auditLog, err := audit.Open(cfg.AuditPath)
	if err != nil {
		logger.Fatal("opening audit store failed", zap.Error(err))
	}
	defer func() {
		if err := auditLog.Close(); err != nil {
			logger.Error("closing audit store", zap.Error(err))
		}
	}()

	ws := server.NewWebServer(repo, auditLog, cfg.HTTPAddr, logger)
	if err := ws.Start(); err != nil {
		logger.Fatal("starting web server failed", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := ws.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func buildLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = lvl
	return zapCfg.Build()
}
