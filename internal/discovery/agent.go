package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/wfr-racing/slicks/internal/registry"
	"github.com/wfr-racing/slicks/internal/telemetry"
	"github.com/wfr-racing/slicks/pkg/config"
	"github.com/wfr-racing/slicks/pkg/mqtt"
)

// RegistryUpdate is announced over MQTT after each discovery pass
type RegistryUpdate struct {
	ScanID      string    `json:"scanId"`
	SignalCount int       `json:"signalCount"`
	NewSignals  []string  `json:"newSignals,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Agent periodically scans a trailing window for signal names and keeps
// the shared registry cache up to date
type Agent struct {
	scanner  *Scanner
	mqtt     mqtt.Client
	registry *registry.Storage
	cfg      *config.Config
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewAgent creates a discovery agent
func NewAgent(store telemetry.Store, mqttClient mqtt.Client, registryStorage *registry.Storage, cfg *config.Config, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		scanner:  NewScanner(store, cfg, logger),
		mqtt:     mqttClient,
		registry: registryStorage,
		cfg:      cfg,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs the discovery loop until the context is cancelled. The first
// pass runs immediately.
func (a *Agent) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	defer close(a.done)

	a.logger.Info("Starting discovery loop",
		"interval_sec", a.cfg.DiscoveryIntervalSec,
		"lookback_days", a.cfg.DiscoveryLookbackDays,
		"chunk_days", a.cfg.DiscoveryChunkDays)

	ticker := time.NewTicker(time.Duration(a.cfg.DiscoveryIntervalSec) * time.Second)
	defer ticker.Stop()

	for {
		if err := a.runDiscovery(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Keep the loop alive; the next tick retries from scratch
			a.logger.Error("Discovery pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Stop cancels the loop and waits for the current pass to finish
func (a *Agent) Stop() error {
	if a.cancel != nil {
		a.cancel()
	}
	<-a.done
	a.logger.Info("Discovery agent stopped")
	return nil
}

// runDiscovery executes one discovery pass over the trailing lookback window
func (a *Agent) runDiscovery(ctx context.Context) error {
	now := time.Now().UTC()
	lookback := time.Duration(a.cfg.DiscoveryLookbackDays) * 24 * time.Hour
	r, err := telemetry.NewTimeRange(now.Add(-lookback), now)
	if err != nil {
		return err
	}

	progress := mqtt.NewProgressPublisher(a.mqtt, a.logger)
	if a.cfg.EnableProgress {
		a.scanner.SetProgress(progress.Notify)
	}

	chunk := time.Duration(a.cfg.DiscoveryChunkDays) * 24 * time.Hour
	signals, err := a.scanner.Discover(ctx, r, chunk)
	if err != nil {
		return fmt.Errorf("discovery pass: %w", err)
	}

	before, err := a.registry.LoadSignals(ctx)
	if err != nil {
		return err
	}
	merged, err := a.registry.MergeSignals(ctx, signals)
	if err != nil {
		return err
	}
	added := diff(before, merged)

	// Keep the on-disk registry in sync for offline tooling
	if a.cfg.RegistryPath != "" {
		if err := registry.SaveFile(a.cfg.RegistryPath, merged); err != nil {
			a.logger.Warn("Failed to write registry file", "path", a.cfg.RegistryPath, "error", err)
		}
	}

	a.logger.Info("Discovery pass complete",
		"scan_id", progress.ScanID(),
		"observed", len(signals),
		"registry", len(merged),
		"new", len(added))

	a.announce(RegistryUpdate{
		ScanID:      progress.ScanID(),
		SignalCount: len(merged),
		NewSignals:  added,
		Timestamp:   now,
	})
	return nil
}

// announce publishes a registry update; failures are advisory only
func (a *Agent) announce(update RegistryUpdate) {
	if a.mqtt == nil || !a.mqtt.IsConnected() {
		return
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return
	}
	if err := a.mqtt.Publish(mqtt.TopicRegistryUpdates, 0, false, payload); err != nil {
		a.logger.Warn("Failed to announce registry update", "error", err)
	}
}

// diff returns the names in after that are not in before
func diff(before, after []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, name := range before {
		seen[name] = struct{}{}
	}
	var added []string
	for _, name := range after {
		if _, ok := seen[name]; !ok {
			added = append(added, name)
		}
	}
	return added
}
