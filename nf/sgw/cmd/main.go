// Command sgw runs the S-GW stand-in: an S11 GTP-C responder plus a
// small admin HTTP API, used by the MME's adapters/gtpc client and the
// integration harness as a real peer to exercise Delete-Session-Request
// against. It never establishes a user-plane tunnel.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openepc/mme/common/metrics"
	"github.com/openepc/mme/nf/sgw/internal/config"
	sgwctx "github.com/openepc/mme/nf/sgw/internal/context"
	"github.com/openepc/mme/nf/sgw/internal/gtpc"
	"github.com/openepc/mme/nf/sgw/internal/server"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "nf/sgw/config/sgw.yaml", "path to configuration file")
	flag.Parse()

	logger := createLogger("info")
	defer logger.Sync()

	logger.Info("starting S-GW stand-in",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.String("plmn_mcc", cfg.PLMN.MCC),
		zap.String("plmn_mnc", cfg.PLMN.MNC),
		zap.String("s11_address", cfg.GetS11Address()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := sgwctx.NewStore()

	gtpcServer, err := gtpc.Listen(cfg.GetS11Address(), store, logger)
	if err != nil {
		logger.Fatal("failed to set up S11 GTP-C server", zap.Error(err))
	}
	defer gtpcServer.Close()

	gtpcErrors := make(chan error, 1)
	go func() {
		gtpcErrors <- gtpcServer.Serve(ctx)
	}()

	metricsServer := metrics.NewMetricsServer(9097, logger)
	go func() {
		logger.Info("starting metrics server")
		if err := metricsServer.Start(); err != nil {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	defer metricsServer.Stop()

	metrics.SetServiceUp(true)
	defer metrics.SetServiceUp(false)

	adminAddr := fmt.Sprintf("%s:9096", cfg.S11.BindAddress)
	adminServer := server.NewServer(cfg, store, logger)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("S-GW stand-in started successfully", zap.String("s11_address", cfg.GetS11Address()))
		serverErrors <- adminServer.Start(adminAddr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("admin server error", zap.Error(err))
	case err := <-gtpcErrors:
		if err != nil {
			logger.Error("S11 GTP-C server error", zap.Error(err))
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := adminServer.Stop(shutdownCtx); err != nil {
			logger.Error("failed to gracefully shut down admin server", zap.Error(err))
		}

		cancel()
		logger.Info("S-GW stand-in shutdown complete")
	}
}

func createLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}

	return logger
}
