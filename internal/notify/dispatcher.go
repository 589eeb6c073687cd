// Package notify hands verification links off to the mail sender without
// making the caller wait for, or observe, delivery.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const sendTimeout = 30 * time.Second

// Dispatcher is fire-and-forget: failures are logged, never returned.
type Dispatcher interface {
	Dispatch(email, token string)
}

// SyncDispatcher sends inline. Used by tests and single-process tooling.
type SyncDispatcher struct {
	sender Sender
	logger *zap.Logger
}

func NewSyncDispatcher(sender Sender, logger *zap.Logger) *SyncDispatcher {
	return &SyncDispatcher{sender: sender, logger: logger}
}

func (d *SyncDispatcher) Dispatch(email, token string) {
	deliver(d.sender, d.logger, email, token)
}

type job struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// AsyncDispatcher sends on a fixed pool of goroutines. When the buffer is full
// the link is dropped and logged; the account can request a resend.
type AsyncDispatcher struct {
	sender Sender
	logger *zap.Logger
	jobs   chan job
	wg     sync.WaitGroup
	once   sync.Once
}

func NewAsyncDispatcher(sender Sender, workers, buffer int, logger *zap.Logger) *AsyncDispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &AsyncDispatcher{
		sender: sender,
		logger: logger,
		jobs:   make(chan job, buffer),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *AsyncDispatcher) Dispatch(email, token string) {
	select {
	case d.jobs <- job{Email: email, Token: token}:
	default:
		d.logger.Warn("notification queue full, dropping verification email", zap.String("email", email))
	}
}

// Close stops accepting work and waits for queued sends to finish.
func (d *AsyncDispatcher) Close() {
	d.once.Do(func() { close(d.jobs) })
	d.wg.Wait()
}

func (d *AsyncDispatcher) work() {
	defer d.wg.Done()
	for j := range d.jobs {
		deliver(d.sender, d.logger, j.Email, j.Token)
	}
}

func deliver(sender Sender, logger *zap.Logger, email, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := sender.SendVerificationLink(ctx, email, token); err != nil {
		logger.Error("failed to send verification email", zap.String("email", email), zap.Error(err))
		return
	}
	logger.Info("verification email sent", zap.String("email", email))
}
