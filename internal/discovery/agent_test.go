package discovery

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/wfr-racing/slicks/internal/registry"
	"github.com/wfr-racing/slicks/pkg/config"
	"github.com/wfr-racing/slicks/pkg/mqtt"
	"github.com/wfr-racing/slicks/pkg/redis"
)

type fakeMQTT struct {
	connected bool
	topics    []string
	payloads  [][]byte
}

func (c *fakeMQTT) Connect(ctx context.Context) error { return nil }
func (c *fakeMQTT) Disconnect()                       {}
func (c *fakeMQTT) IsConnected() bool                 { return c.connected }

func (c *fakeMQTT) Publish(topic string, qos byte, retained bool, payload []byte) error {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload)
	return nil
}

func testRegistryStorage(t *testing.T) *registry.Storage {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := config.NewConfig()
	cfg.RedisHost = mr.Host()
	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("bad miniredis port: %v", err)
	}
	cfg.RedisPort = port

	client := redis.NewClient(cfg, nil)
	t.Cleanup(func() { client.Close() })
	return registry.NewStorage(client, nil)
}

func TestAgent_RunDiscoveryMergesAndAnnounces(t *testing.T) {
	store := &fakeStore{
		distinct: func(_ int, _, _ time.Time) ([]string, error) {
			return []string{"SOC", "Throttle"}, nil
		},
	}
	storage := testRegistryStorage(t)
	broker := &fakeMQTT{connected: true}

	ctx := context.Background()
	if err := storage.StoreSignals(ctx, []string{"PackCurrent"}); err != nil {
		t.Fatalf("seed registry: %v", err)
	}

	cfg := testScanConfig()
	cfg.DiscoveryLookbackDays = 1
	cfg.DiscoveryChunkDays = 7
	cfg.RegistryPath = filepath.Join(t.TempDir(), "sensors.yaml")
	agent := NewAgent(store, broker, storage, cfg, nil)

	if err := agent.runDiscovery(ctx); err != nil {
		t.Fatalf("discovery pass failed: %v", err)
	}

	merged, err := storage.LoadSignals(ctx)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("registry = %v, want 3 names", merged)
	}

	if len(broker.topics) != 1 || broker.topics[0] != mqtt.TopicRegistryUpdates {
		t.Fatalf("announce topics = %v", broker.topics)
	}
	var update RegistryUpdate
	if err := json.Unmarshal(broker.payloads[0], &update); err != nil {
		t.Fatalf("bad announce payload: %v", err)
	}
	if update.SignalCount != 3 {
		t.Errorf("announced count = %d, want 3", update.SignalCount)
	}
	if len(update.NewSignals) != 2 {
		t.Errorf("new signals = %v, want SOC and Throttle", update.NewSignals)
	}

	// The on-disk registry mirrors the merge
	fromFile, err := registry.LoadFile(cfg.RegistryPath)
	if err != nil {
		t.Fatalf("load registry file: %v", err)
	}
	if len(fromFile) != 3 {
		t.Errorf("registry file = %v, want 3 names", fromFile)
	}
}

func TestAgent_AnnounceSkippedWhenDisconnected(t *testing.T) {
	store := &fakeStore{
		distinct: func(_ int, _, _ time.Time) ([]string, error) {
			return []string{"SOC"}, nil
		},
	}
	broker := &fakeMQTT{connected: false}
	cfg := testScanConfig()
	cfg.RegistryPath = filepath.Join(t.TempDir(), "sensors.yaml")
	agent := NewAgent(store, broker, testRegistryStorage(t), cfg, nil)

	if err := agent.runDiscovery(context.Background()); err != nil {
		t.Fatalf("discovery pass failed: %v", err)
	}
	if len(broker.topics) != 0 {
		t.Errorf("expected no announce while disconnected, got %v", broker.topics)
	}
}
