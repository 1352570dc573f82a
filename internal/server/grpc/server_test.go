package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakeDB struct {
	down atomic.Bool
}

func (f *fakeDB) PingContext(context.Context) error {
	if f.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func startHealth(t *testing.T, db Pinger, interval time.Duration) (healthpb.HealthClient, context.CancelFunc, <-chan error) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewHealthServer(lis.Addr().String(), logging.Nop(), db, interval)
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		_ = conn.Close()
	})
	return healthpb.NewHealthClient(conn), cancel, done
}

func servingStatus(c healthpb.HealthClient) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN
	}
	return resp.GetStatus()
}

func TestHealthServer_ServingWhileDatabaseAnswers(t *testing.T) {
	c, _, _ := startHealth(t, &fakeDB{}, time.Hour)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(c))
}

func TestHealthServer_FollowsDatabase(t *testing.T) {
	db := &fakeDB{}
	c, _, _ := startHealth(t, db, 20*time.Millisecond)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(c))

	db.down.Store(true)
	assert.Eventually(t, func() bool {
		return servingStatus(c) == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 20*time.Millisecond)

	db.down.Store(false)
	assert.Eventually(t, func() bool {
		return servingStatus(c) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHealthServer_StopsOnContextCancel(t *testing.T) {
	_, cancel, done := startHealth(t, &fakeDB{}, time.Hour)

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestHealthServer_RunReturnsErrorOnBadAddress(t *testing.T) {
	srv := NewHealthServer("127.0.0.1:99999", logging.Nop(), &fakeDB{}, time.Second)
	assert.Error(t, srv.Run(context.Background()))
}
