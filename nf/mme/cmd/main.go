package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openepc/mme/common/metrics"
	"github.com/openepc/mme/nf/mme/internal/adapters/gtpc"
	"github.com/openepc/mme/nf/mme/internal/adapters/s1ap"
	"github.com/openepc/mme/nf/mme/internal/adapters/s6a"
	"github.com/openepc/mme/nf/mme/internal/adapters/sgsap"
	"github.com/openepc/mme/nf/mme/internal/config"
	uectx "github.com/openepc/mme/nf/mme/internal/context"
	"github.com/openepc/mme/nf/mme/internal/dispatch"
	"github.com/openepc/mme/nf/mme/internal/emm"
	"github.com/openepc/mme/nf/mme/internal/server"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	shardCount    = 16
	shardQueue    = 256
	reapInterval  = 30 * time.Second
	reapGraceTime = 5 * time.Minute
)

func main() {
	configPath := flag.String("config", "nf/mme/config/mme.yaml", "path to configuration file")
	flag.Parse()

	logger := createLogger("info")
	defer logger.Sync()

	logger.Info("starting MME (Mobility Management Entity)",
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
		zap.Uint16("mme_group_id", cfg.GUMMEI.MMEGroupID),
		zap.String("server_bind", cfg.Server.BindAddress),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := uectx.NewStore(reapInterval, reapGraceTime)
	defer store.Close()

	s1apAdapter := s1ap.New(logger)
	sgsapAdapter := sgsap.New(cfg.SGsAP.VLRAddr, logger)
	s6aAdapter := s6a.New(cfg.S6a.URL, cfg.S6a.Timeout, logger)

	gtpcAdapter, err := gtpc.Dial(ctx, cfg.GTPC.LocalAddr, cfg.GTPC.SGWAddr, cfg.GTPC.Timeout, logger)
	if err != nil {
		logger.Fatal("failed to dial S11 GTP-C peer", zap.Error(err))
	}
	defer gtpcAdapter.Close()

	adapters := emm.Adapters{
		S1AP:  s1apAdapter,
		S6a:   s6aAdapter,
		GTPC:  gtpcAdapter,
		SGsAP: sgsapAdapter,
	}

	timerSpecs := map[uectx.TimerID]uectx.TimerSpec{
		uectx.TimerT3413: {DurationMS: cfg.Timers.T3413.DurationMS, MaxCount: cfg.Timers.T3413.MaxCount},
		uectx.TimerT3460: {DurationMS: cfg.Timers.T3460.DurationMS, MaxCount: cfg.Timers.T3460.MaxCount},
		uectx.TimerT3470: {DurationMS: cfg.Timers.T3470.DurationMS, MaxCount: cfg.Timers.T3470.MaxCount},
	}

	// deliver is late-bound below once the dispatcher exists, since timer
	// expiries must re-enter the FSM through the same per-UE shard that
	// ordinary NAS events use. Both paths key on UEContext.ShardKey (the
	// MME-UE-S1AP-ID), not the IMSI, so a UE whose identity isn't learned
	// yet still lands on the same shard as its NAS traffic.
	var disp *dispatch.Dispatcher
	deliver := func(ue *uectx.UEContext, id uectx.TimerID, generation uint64) {
		disp.Submit(ue.ShardKey(), dispatch.Job{
			UE: ue,
			Event: emm.Event{
				Kind:       emm.EventEMMTimer,
				TimerID:    id,
				Generation: generation,
			},
		})
	}
	timers := emm.NewTimerManager(timerSpecs, deliver)

	tracer := otel.Tracer("mme-emm")
	fsm := emm.New(store, adapters, timers, logger, tracer)

	disp = dispatch.New(fsm, shardCount, shardQueue, logger)
	disp.Start(ctx)

	metricsPort := 9095
	if _, portStr, err := net.SplitHostPort(cfg.Observability.MetricsAddr); err == nil {
		if p, err := strconv.Atoi(portStr); err == nil {
			metricsPort = p
		}
	}
	metricsServer := metrics.NewMetricsServer(metricsPort, logger)
	go func() {
		logger.Info("starting metrics server", zap.String("address", cfg.Observability.MetricsAddr))
		if err := metricsServer.Start(); err != nil {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	defer metricsServer.Stop()

	metrics.SetServiceUp(true)
	defer metrics.SetServiceUp(false)

	opsServer := server.New(cfg, store, disp, logger)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("MME started successfully", zap.String("address", cfg.Server.BindAddress))
		serverErrors <- opsServer.Start()
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

		if err := opsServer.Stop(shutdownCtx); err != nil {
			logger.Error("failed to gracefully shut down ops server", zap.Error(err))
		}

		cancel()
		disp.Shutdown()

		logger.Info("MME shutdown complete")
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
