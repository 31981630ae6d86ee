package main

import (
	"cam-relay/contract"
	"cam-relay/decode"
	"cam-relay/infrastructure/nats"
	"cam-relay/infrastructure/storage"
	"cam-relay/internal"
	"cam-relay/runtime"
	"cam-relay/runtime/workers"
	"cam-relay/sink"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Receiver terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the relay and blocks until a signal is received. Deferred cleanups
// (subscription, database) always run before the exit code is returned.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	key, iv, err := config.Cipher()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	pipeline, err := decode.NewPipeline(logger, decode.Options{
		Key:                      key,
		IV:                       iv,
		RequireImageValidation:   config.RequireImageValidation,
		MinViableCiphertextChars: config.MinViableCiphertextChars,
		MinViableDecodedBytes:    config.MinViableDecodedBytes,
	})
	if err != nil {
		return exitConfig, err
	}
	if !pipeline.Encrypted() {
		logger.Warn("No cipher configured, payloads are expected in clear")
	}

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 4. Relay and sinks
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	relay := runtime.NewOrchestrator(logger, supervisor, pipeline, runtime.Options{
		IngestWorkers:  config.IngestWorkers,
		DecodeWorkers:  config.DecodeWorkers,
		BufferSize:     config.BufferSize,
		SinkTimeout:    config.SinkTimeout,
		SessionTTL:     config.SessionTTL,
		ReaperInterval: config.ReaperInterval,
		StatusSubject:  config.NatsStatusSubject,

		MetricInterval:       config.MetricInterval,
		LowCapacityThreshold: config.LowCapacity,
	})

	timeline := sink.NewTimeline()
	sinks := []contract.EventSink{
		sink.NewLogSink(logger),
		timeline,
		sink.NewCaptureSink(storage.NewCaptureRepository(db, logger), logger, config.CaptureRetention),
	}
	if config.SaveFolder != "" {
		diskSink, err := sink.NewDiskSink(config.SaveFolder, logger)
		if err != nil {
			return exitRuntime, err
		}
		sinks = append(sinks, diskSink)
	}
	relay.Add(sinks...)

	if logger.Enabled(ctx, slog.LevelDebug) && config.DebugPort > 0 {
		stats := func() map[string]any {
			res := relay.Stats()
			res["sources"] = len(timeline.Snapshot())
			return res
		}
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
		internal.StartDebugServer(ctx, logger, db, config.DebugPort, "/inspect", internal.CaptureMapper, stats)
	}

	// 5. Transport. A broker unreachable at startup is fatal.
	subscriber, err := nats.NewSubscriber(config.NatsURL, "cam-relay", config.Subjects(), relay, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer subscriber.Close()
	supervisor.Add(subscriber)

	// 6. Run until a signal is received
	logger.Info("Relay listening", "url", config.NatsURL, "subjects", config.Subjects())
	if err := relay.Start(ctx); err != nil {
		return exitRuntime, fmt.Errorf("relay error: %w", err)
	}

	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return options
}
