package notify

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prudhvinik1/medsync/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []job
	err   error
	block chan struct{}
}

func (s *recordingSender) SendVerificationLink(ctx context.Context, email, token string) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, job{Email: email, Token: token})
	return s.err
}

func (s *recordingSender) jobs() []job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]job(nil), s.sent...)
}

func TestSyncDispatcher_SwallowsErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewSyncDispatcher(sender, zap.NewNop())

	d.Dispatch("jane@example.com", "tok")

	assert.Equal(t, []job{{Email: "jane@example.com", Token: "tok"}}, sender.jobs())
}

func TestAsyncDispatcher_DeliversAndDrains(t *testing.T) {
	sender := &recordingSender{}
	d := NewAsyncDispatcher(sender, 2, 10, zap.NewNop())

	for i := 0; i < 5; i++ {
		d.Dispatch("jane@example.com", "tok")
	}
	d.Close()

	assert.Len(t, sender.jobs(), 5)
}

func TestAsyncDispatcher_DropsWhenFull(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewAsyncDispatcher(sender, 1, 1, zap.NewNop())

	// The worker takes the first job and blocks, the second fills the buffer
	d.Dispatch("a@example.com", "1")
	require.Eventually(t, func() bool { return len(d.jobs) == 0 }, time.Second, time.Millisecond)
	d.Dispatch("b@example.com", "2")

	done := make(chan struct{})
	go func() {
		d.Dispatch("c@example.com", "3")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}

	close(sender.block)
	d.Close()
	assert.Len(t, sender.jobs(), 2, "The third link is dropped")
}

func TestSMTPMailer_VerificationLink(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{FromName: "MedSync"}, "https://app.example.com/", 24*time.Hour)

	assert.Equal(t, "https://app.example.com/verify-email?token=a%2Bb", m.VerificationLink("a+b"))
}

func TestHumanizeDuration(t *testing.T) {
	assert.Equal(t, "24 hours", humanizeDuration(24*time.Hour))
	assert.Equal(t, "1 hour", humanizeDuration(time.Hour))
	assert.Equal(t, "30m0s", humanizeDuration(30*time.Minute))
}

func getTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	require.NoError(t, client.Ping(context.Background()).Err(), "Failed to connect to test Redis")
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisQueue_RoundTrip(t *testing.T) {
	client := getTestRedisClient(t)
	ctx := context.Background()
	key := "medsync:test:" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() { client.Del(context.Background(), key) })

	sender := &recordingSender{}
	q := NewRedisQueue(client, key, sender, zap.NewNop())

	q.Dispatch("first@example.com", "1")
	require.NoError(t, q.Enqueue(ctx, "second@example.com", "2"))

	// FIFO: LPUSH on one end, BRPOP from the other
	for _, want := range []string{"first@example.com", "second@example.com"} {
		ok, err := q.ConsumeOne(ctx, time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		jobs := sender.jobs()
		assert.Equal(t, want, jobs[len(jobs)-1].Email)
	}

	ok, err := q.ConsumeOne(ctx, time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "Queue should be empty")
}

func TestRedisQueue_SkipsMalformedJobs(t *testing.T) {
	client := getTestRedisClient(t)
	ctx := context.Background()
	key := "medsync:test:" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() { client.Del(context.Background(), key) })

	require.NoError(t, client.LPush(ctx, key, "not json").Err())

	sender := &recordingSender{}
	q := NewRedisQueue(client, key, sender, zap.NewNop())

	ok, err := q.ConsumeOne(ctx, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, sender.jobs())
}

func TestRedisQueue_ConsumeStopsOnCancel(t *testing.T) {
	client := getTestRedisClient(t)
	key := "medsync:test:" + time.Now().Format(time.RFC3339Nano)

	q := NewRedisQueue(client, key, &recordingSender{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- q.Consume(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(popTimeout + 2*time.Second):
		t.Fatal("Consume did not stop")
	}
}
