package broadcast

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/richarrd92/hobbymatch/internal/domain"
)

var testRedisURL string

func TestMain(m *testing.M) {
	// Parse flags to check for -short
	flag.Parse()

	// Skip container setup if running in short mode
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	redisContainer, err := rediscontainer.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}
	testRedisURL = "redis://" + endpoint

	code := m.Run()

	if err := testcontainers.TerminateContainer(redisContainer); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate redis container: %v\n", err)
	}
	os.Exit(code)
}

func newTestRedisClient(t *testing.T) *goredis.Client {
	t.Helper()
	opts, err := goredis.ParseURL(testRedisURL)
	require.NoError(t, err)
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestBroadcasterIntegration_RelayDeliversOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	hub, dial, _ := testHub(t, 50)
	b := NewBroadcaster(hub, newTestRedisClient(t))
	t.Cleanup(b.Close)
	require.True(t, b.DistributedActive())

	conn := dial()
	require.True(t, waitForClientCount(hub, 1))

	postID := uuid.New()
	b.Broadcast(context.Background(), domain.DeletePostEvent{PostID: postID})

	// Delivered exactly once, through the subscription path.
	event := readEvent(t, conn)
	assert.Equal(t, domain.DeletePostEvent{PostID: postID}, event)

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "expected no duplicate delivery")
}

func TestBroadcasterIntegration_PeerInstanceReceivesRelay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	hubA, dialA, _ := testHub(t, 50)
	hubB, dialB, _ := testHub(t, 50)
	instanceA := NewBroadcaster(hubA, newTestRedisClient(t))
	instanceB := NewBroadcaster(hubB, newTestRedisClient(t))
	t.Cleanup(instanceA.Close)
	t.Cleanup(instanceB.Close)

	connA := dialA()
	connB := dialB()
	require.True(t, waitForClientCount(hubA, 1))
	require.True(t, waitForClientCount(hubB, 1))

	postID := uuid.New()
	instanceA.Broadcast(context.Background(), domain.DeletePostEvent{PostID: postID})

	// Both the producer's clients and the peer's clients see the event.
	assert.Equal(t, domain.DeletePostEvent{PostID: postID}, readEvent(t, connA))
	assert.Equal(t, domain.DeletePostEvent{PostID: postID}, readEvent(t, connB))
}

func TestBroadcasterIntegration_MalformedRelayMessageSkipped(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	client := newTestRedisClient(t)
	hub, dial, _ := testHub(t, 50)
	b := NewBroadcaster(hub, client)
	t.Cleanup(b.Close)

	conn := dial()
	require.True(t, waitForClientCount(hub, 1))

	require.NoError(t, client.Publish(context.Background(), relayChannel, "not an event").Err())

	// The garbage is skipped and the listener keeps running.
	postID := uuid.New()
	b.Broadcast(context.Background(), domain.DeletePostEvent{PostID: postID})
	assert.Equal(t, domain.DeletePostEvent{PostID: postID}, readEvent(t, conn))
	assert.True(t, b.DistributedActive())
}

func TestBroadcasterIntegration_PublishFailureFallsBackPermanently(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	client := newTestRedisClient(t)
	hub, dial, _ := testHub(t, 50)
	b := NewBroadcaster(hub, client)
	t.Cleanup(b.Close)

	// Closing the client makes the next publish fail.
	require.NoError(t, client.Close())

	conn := dial()
	require.True(t, waitForClientCount(hub, 1))

	// Publish fails, event still reaches local clients via fallback.
	first := uuid.New()
	b.Broadcast(context.Background(), domain.DeletePostEvent{PostID: first})
	assert.Equal(t, domain.DeletePostEvent{PostID: first}, readEvent(t, conn))
	assert.False(t, b.DistributedActive())

	// Relay stays disabled; later broadcasts go straight to local delivery.
	second := uuid.New()
	b.Broadcast(context.Background(), domain.DeletePostEvent{PostID: second})
	assert.Equal(t, domain.DeletePostEvent{PostID: second}, readEvent(t, conn))
	assert.False(t, b.DistributedActive())
}
