package registry

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfr-racing/slicks/pkg/config"
	"github.com/wfr-racing/slicks/pkg/redis"
)

func testStorage(t *testing.T) *Storage {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := config.NewConfig()
	cfg.RedisHost = mr.Host()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	cfg.RedisPort = port

	client := redis.NewClient(cfg, nil)
	t.Cleanup(func() { client.Close() })
	return NewStorage(client, nil)
}

func TestStorage_StoreAndLoad(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.StoreSignals(ctx, []string{"Throttle", "SOC", "Throttle"}))

	got, err := storage.LoadSignals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"SOC", "Throttle"}, got)
}

func TestStorage_LoadMissingIsEmpty(t *testing.T) {
	storage := testStorage(t)

	got, err := storage.LoadSignals(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStorage_MergeSignals(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.StoreSignals(ctx, []string{"SOC"}))

	merged, err := storage.MergeSignals(ctx, []string{"PackCurrent", "SOC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PackCurrent", "SOC"}, merged)

	// The merge is persisted
	got, err := storage.LoadSignals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"PackCurrent", "SOC"}, got)
}
