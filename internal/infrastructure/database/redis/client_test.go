package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&RedisConfig{Mode: "standalone", Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient_Standalone_Success(t *testing.T) {
	client, _ := newTestClient(t)
	assert.NoError(t, client.GetUnderlyingClient().Ping(context.Background()).Err())
	assert.Equal(t, "ibex:basis:", client.config.KeyPrefix)
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	cfg := &RedisConfig{Mode: "standalone", Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1}
	client, err := NewClient(cfg, nil)
	assert.True(t, errors.IsCode(err, errors.CodeStorageFailure))
	assert.Nil(t, client)
}

func TestClient_Close(t *testing.T) {
	client, _ := newTestClient(t)
	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
	assert.Equal(t, ErrClientClosed, client.Ping(context.Background()))
}

func TestBlobStore_RoundTrip(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewBlobStore(client)
	ctx := context.Background()

	_, err := store.Get(ctx, "DPI4L1.basis")
	assert.True(t, errors.IsCode(err, errors.CodeBlobNotFound))

	payload := []byte{0x49, 0x42, 0x58, 0x42, 0x00, 0xff}
	require.NoError(t, store.Put(ctx, "DPI4L1.basis", payload))
	assert.True(t, mr.Exists("ibex:basis:DPI4L1.basis"))

	got, err := store.Get(ctx, "DPI4L1.basis")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, store.Put(ctx, "DPI8L2.basis", []byte{1}))
	require.NoError(t, mr.Set("unrelated", "x"))
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"DPI4L1.basis", "DPI8L2.basis"}, keys)

	require.NoError(t, store.Delete(ctx, "DPI4L1.basis"))
	assert.False(t, mr.Exists("ibex:basis:DPI4L1.basis"))
}

func TestBlobStore_TTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewClient(&RedisConfig{Addr: mr.Addr(), TTL: time.Hour, KeyPrefix: "t:"}, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, NewBlobStore(client).Put(context.Background(), "k", []byte("v")))
	assert.Equal(t, time.Hour, mr.TTL("t:k"))
}

func TestBlobStore_ClosedClient(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewBlobStore(client)
	require.NoError(t, client.Close())

	_, err := store.Get(context.Background(), "k")
	assert.Equal(t, ErrClientClosed, err)
	assert.Equal(t, ErrClientClosed, store.Put(context.Background(), "k", nil))
}
