package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfr-racing/slicks/internal/availability"
	"github.com/wfr-racing/slicks/internal/movement"
	"github.com/wfr-racing/slicks/internal/telemetry"
	"github.com/wfr-racing/slicks/pkg/config"
	"github.com/wfr-racing/slicks/pkg/influx"
	"github.com/wfr-racing/slicks/pkg/mqtt"
	"github.com/wfr-racing/slicks/pkg/timescale"
)

func main() {
	// Load configuration with hierarchy: defaults → env → flags
	cfg := config.NewConfig()
	cfg.ServiceName = "scan-agent"
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// One-shot run, but still honor Ctrl-C mid-scan
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Interrupt received, cancelling scan")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		if errors.Is(err, telemetry.ErrNoData) {
			fmt.Println("No data found in the requested range")
			return
		}
		logger.Error("Scan failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	r, err := scanRange(cfg)
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	logger.Info("Scanning data availability",
		"start", r.Start.Format(time.RFC3339),
		"end", r.End.Format(time.RFC3339),
		"bin", cfg.ScanBinSize,
		"timezone", cfg.Timezone)

	scanner := availability.NewScanner(store, logger)
	if progress := startProgress(ctx, cfg, logger); progress != nil {
		scanner.SetProgress(progress.Notify)
	}

	result, err := scanner.Scan(ctx, r, availability.Options{
		Bin:       cfg.ScanBin(),
		Location:  cfg.Location(),
		ChunkDays: cfg.ScanChunkDays,
	})
	if err != nil {
		return err
	}
	fmt.Println(result.String())

	if cfg.SegmentReport {
		return segmentReport(ctx, store, cfg, r, logger)
	}
	return nil
}

// segmentReport fetches the speed channel for the range and prints the
// movement breakdown
func segmentReport(ctx context.Context, store telemetry.Store, cfg *config.Config, r telemetry.TimeRange, logger *slog.Logger) error {
	fetcher := telemetry.NewFetcher(store, cfg, logger)
	frame, err := fetcher.FetchRange(ctx, r, cfg.FetchChunk(), []string{cfg.SpeedColumn})
	if err != nil {
		return err
	}
	frame = frame.Resample(cfg.ResampleFreq())

	ratio := movement.MovementRatio(frame, cfg.SpeedColumn, cfg.SpeedThreshold)
	segments := movement.BuildSegments(frame, cfg.SpeedColumn, cfg.SpeedThreshold, cfg.MaxGap())

	fmt.Printf("\nMovement Report (%s > %.1f)\n", cfg.SpeedColumn, cfg.SpeedThreshold)
	fmt.Printf("Rows: %d  Moving: %d  Idle: %d  Ratio: %.3f\n",
		ratio.TotalRows, ratio.MovingRows, ratio.IdleRows, ratio.MovementRatio)
	for i, seg := range segments {
		fmt.Printf("  %3d. %-6s %s -> %s  (%s, %d rows, mean %.1f)\n",
			i+1, seg.State,
			seg.Start.In(cfg.Location()).Format("2006-01-02 15:04:05"),
			seg.End.In(cfg.Location()).Format("15:04:05"),
			seg.Duration.Round(time.Second), seg.RowCount, seg.MeanSpeed)
	}
	return nil
}

// scanRange resolves the requested range, falling back to the trailing
// lookback window when no explicit bounds were given
func scanRange(cfg *config.Config) (telemetry.TimeRange, error) {
	if cfg.ScanStart != "" {
		start, err := time.Parse(time.RFC3339, cfg.ScanStart)
		if err != nil {
			return telemetry.TimeRange{}, fmt.Errorf("invalid scan start %q: %w", cfg.ScanStart, err)
		}
		end := time.Now().UTC()
		if cfg.ScanEnd != "" {
			end, err = time.Parse(time.RFC3339, cfg.ScanEnd)
			if err != nil {
				return telemetry.TimeRange{}, fmt.Errorf("invalid scan end %q: %w", cfg.ScanEnd, err)
			}
		}
		return telemetry.NewTimeRange(start, end)
	}
	now := time.Now().UTC()
	lookback := time.Duration(cfg.DiscoveryLookbackDays) * 24 * time.Hour
	return telemetry.NewTimeRange(now.Add(-lookback), now)
}

// startProgress connects the broker for progress events when enabled.
// The scan proceeds without progress if the broker is unreachable.
func startProgress(ctx context.Context, cfg *config.Config, logger *slog.Logger) *mqtt.ProgressPublisher {
	if !cfg.EnableProgress {
		return nil
	}
	client := mqtt.NewClient(cfg, logger)
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		logger.Warn("MQTT unavailable, continuing without progress", "error", err)
		return nil
	}
	return mqtt.NewProgressPublisher(client, logger)
}

// buildStore creates the configured telemetry store backend
func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (telemetry.Store, func(), error) {
	switch cfg.StoreBackend {
	case "influx":
		client, err := influx.NewClient(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {
			if err := client.Close(); err != nil {
				logger.Error("Error closing InfluxDB client", "error", err)
			}
		}, nil
	case "timescale":
		client := timescale.NewClient(cfg, logger)
		if err := client.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return client, func() {
			if err := client.Disconnect(); err != nil {
				logger.Error("Error closing TimescaleDB client", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
