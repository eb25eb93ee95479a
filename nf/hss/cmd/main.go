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
	"github.com/openepc/mme/nf/hss/internal/config"
	"github.com/openepc/mme/nf/hss/internal/crypto"
	"github.com/openepc/mme/nf/hss/internal/server"
	"github.com/openepc/mme/nf/hss/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "nf/hss/config/hss.yaml", "path to configuration file")
	flag.Parse()

	logger := createLogger("info")
	defer logger.Sync()

	logger.Info("starting HSS (Home Subscriber Server)",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.String("sbi_bind", cfg.SBI.BindAddress),
		zap.Int("sbi_port", cfg.SBI.Port),
		zap.Int("subscriber_count", len(cfg.Subscribers)),
	)

	subs, err := loadSubscribers(cfg.Subscribers)
	if err != nil {
		logger.Fatal("failed to load subscriber key material", zap.Error(err))
	}

	authService := service.NewAuthenticationService(cfg.PLMN.MCC, cfg.PLMN.MNC, subs, logger)
	logger.Info("authentication service initialized")

	srv := server.NewServer(cfg, authService, logger)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Observability.Metrics.Enabled {
		metricsServer := metrics.NewMetricsServer(cfg.Observability.Metrics.Port, logger)
		go func() {
			logger.Info("starting metrics server", zap.Int("port", cfg.Observability.Metrics.Port))
			if err := metricsServer.Start(); err != nil {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
		defer metricsServer.Stop()
	}

	metrics.SetServiceUp(true)
	defer metrics.SetServiceUp(false)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("HSS started successfully",
			zap.String("address", fmt.Sprintf("%s:%d", cfg.SBI.BindAddress, cfg.SBI.Port)),
			zap.String("scheme", cfg.SBI.Scheme),
		)
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("server error", zap.Error(err))
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("failed to gracefully shut down server", zap.Error(err))
		}

		logger.Info("HSS shutdown complete")
	}
}

// loadSubscribers decodes the provisioned subscriber key material from
// its hex configuration form.
func loadSubscribers(cfgs []config.SubscriberConfig) ([]service.Subscriber, error) {
	subs := make([]service.Subscriber, 0, len(cfgs))
	for _, c := range cfgs {
		k, err := crypto.HexToBytes(c.KHex)
		if err != nil {
			return nil, fmt.Errorf("subscriber %s: invalid K: %w", c.IMSI, err)
		}
		opc, err := crypto.HexToBytes(c.OPcHex)
		if err != nil {
			return nil, fmt.Errorf("subscriber %s: invalid OPc: %w", c.IMSI, err)
		}
		subs = append(subs, service.Subscriber{IMSI: c.IMSI, K: k, OPc: opc})
	}
	return subs, nil
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
