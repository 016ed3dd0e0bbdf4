package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/BlackCockder/IBEX-Mapper/internal/testutil"
)

// toggleChecker fails while broken is set.
type toggleChecker struct {
	name   string
	broken atomic.Bool
}

func (c *toggleChecker) Name() string { return c.name }

func (c *toggleChecker) Check(context.Context) error {
	if c.broken.Load() {
		return errors.New("backend unreachable")
	}
	return nil
}

// serve starts srv on an in-memory listener and returns a health client.
func serve(t *testing.T, srv *Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(lis) }()

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		require.NoError(t, srv.Stop(context.Background()))
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("grpc server did not stop")
		}
	})
	return healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.Status
}

func TestServer_StatusFollowsCheckers(t *testing.T) {
	cache := &toggleChecker{name: "basis_cache_memory"}
	log := testutil.NewMockLogger()
	srv := NewServer([]Checker{cache}, WithLogger(log))
	client := serve(t, srv)

	require.True(t, srv.Refresh(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ServiceName))

	cache.broken.Store(true)
	require.False(t, srv.Refresh(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ServiceName))
	assert.True(t, log.HasMessage("warn", "health check failed"))

	cache.broken.Store(false)
	require.True(t, srv.Refresh(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
}

func TestServer_UnknownService(t *testing.T) {
	client := serve(t, NewServer(nil))
	_, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "other.Service"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_PollsCheckers(t *testing.T) {
	catalog := &toggleChecker{name: "feature_catalog"}
	srv := NewServer([]Checker{catalog}, WithPollInterval(10*time.Millisecond))
	client := serve(t, srv)

	catalog.broken.Store(true)
	assert.Eventually(t, func() bool {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
		return err == nil && resp.Status == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_StopIsIdempotent(t *testing.T) {
	srv := NewServer(nil)
	require.NoError(t, srv.Stop(context.Background()), "stop before serve")

	client := serve(t, srv)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.ErrorIs(t, srv.Serve(bufconn.Listen(1<<16)), errAlreadyStarted)

	require.NoError(t, srv.Stop(context.Background()))
	require.NoError(t, srv.Stop(context.Background()))
}
