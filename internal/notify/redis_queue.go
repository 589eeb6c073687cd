package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	enqueueTimeout = 2 * time.Second
	popTimeout     = 5 * time.Second
)

// RedisQueue pushes jobs onto a Redis list so any process running Consume can
// deliver them. A crash between pop and send loses that one email.
type RedisQueue struct {
	client *redis.Client
	key    string
	sender Sender
	logger *zap.Logger
}

func NewRedisQueue(client *redis.Client, key string, sender Sender, logger *zap.Logger) *RedisQueue {
	return &RedisQueue{client: client, key: key, sender: sender, logger: logger}
}

func (q *RedisQueue) Dispatch(email, token string) {
	if err := q.Enqueue(context.Background(), email, token); err != nil {
		q.logger.Error("failed to enqueue verification email", zap.String("email", email), zap.Error(err))
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, email, token string) error {
	data, err := json.Marshal(job{Email: email, Token: token})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()

	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	return nil
}

// Consume delivers queued jobs until ctx is cancelled.
func (q *RedisQueue) Consume(ctx context.Context) error {
	q.logger.Info("notification consumer started", zap.String("queue", q.key))
	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := q.ConsumeOne(ctx, popTimeout); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			q.logger.Error("failed to pop notification", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

// ConsumeOne waits up to timeout for a single job and delivers it. It reports
// false when the queue stayed empty.
func (q *RedisQueue) ConsumeOne(ctx context.Context, timeout time.Duration) (bool, error) {
	result, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// result is [key, value]
	var j job
	if err := json.Unmarshal([]byte(result[1]), &j); err != nil {
		q.logger.Error("dropping malformed notification", zap.Error(err))
		return true, nil
	}

	deliver(q.sender, q.logger, j.Email, j.Token)
	return true, nil
}
