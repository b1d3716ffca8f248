package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/config"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/dash"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/engine"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/feed"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/metrics"
	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/store"
)

func newLogger(debug bool) (*zap.Logger, error) {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	cfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stack",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.TimeEncoder(func(t time.Time, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(t.Format(time.RFC3339)) }),
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("received signal, shutting down...")
		cancel()
	}()

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger)

	st := store.New(cfg.Redis, logger)
	defer st.Close()

	if !cfg.DryRun {
		// live submission is not wired yet, the engine always simulates
		logger.Warn("dry_run=false requested but no live executor is available, running in dry-run")
	}
	exec := engine.NewDryRunExecutor(logger)

	eng, err := engine.New(cfg, exec, st, logger)
	if err != nil {
		logger.Fatal("engine init failed", zap.Error(err))
	}
	if err := eng.Restore(ctx); err != nil {
		logger.Warn("tracker restore failed, starting fresh", zap.Error(err))
	}

	go st.SnapshotLoop(ctx, eng.Tracker(), cfg.SnapshotInterval())

	if cfg.Dash.ListenAddr != "" {
		go dash.StartHTTP(ctx, eng, cfg.Dash.ListenAddr)
	}

	opps := feed.NewWS(cfg.Feed.WsURL, logger).Subscribe(ctx)

	logger.Info("engine started",
		zap.String("feed", cfg.Feed.WsURL),
		zap.Float64("min_score", cfg.Scorer.MinScore),
		zap.Bool("dry_run", true))

	eng.Run(ctx, opps)
}
