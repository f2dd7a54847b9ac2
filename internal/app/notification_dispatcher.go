package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"recurring_payments/internal/domain/notification"
)

// NotificationQueue accepts outbound messages without blocking the caller.
type NotificationQueue interface {
	// Enqueue reports false when the message was dropped.
	Enqueue(userID int64, message string) bool
}

type DispatcherOptions struct {
	QueueSize      int
	MaxAttempts    int
	RetryBackoff   time.Duration // first wait, doubled on each retry
	AttemptTimeout time.Duration
}

func (o DispatcherOptions) withDefaults() DispatcherOptions {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 10 * time.Second
	}
	return o
}

type outbound struct {
	userID  int64
	message string
}

// NotificationDispatcher delivers messages on a single worker goroutine.
// Delivery failures are retried a bounded number of times and then logged;
// they never reach the writer that produced the message.
type NotificationDispatcher struct {
	notifier notification.Notifier
	logger   *logrus.Entry
	opts     DispatcherOptions

	queue  chan outbound
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

func NewNotificationDispatcher(n notification.Notifier, logger *logrus.Entry, opts DispatcherOptions) *NotificationDispatcher {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &NotificationDispatcher{
		notifier: n,
		logger:   logger.WithField("component", "notification_dispatcher"),
		opts:     opts,
		queue:    make(chan outbound, opts.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker. Calling it twice is a no-op.
func (d *NotificationDispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	d.wg.Add(1)
	go d.run()
}

func (d *NotificationDispatcher) Enqueue(userID int64, message string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.WithField("user_id", userID).Warn("Dispatcher stopped, dropping notification")
		return false
	}
	select {
	case d.queue <- outbound{userID: userID, message: message}:
		return true
	default:
		d.logger.WithField("user_id", userID).Warn("Notification queue full, dropping notification")
		return false
	}
}

// Stop closes the queue and waits for queued messages to drain. When ctx
// expires first, in-flight deliveries are cancelled and ctx.Err() is returned.
func (d *NotificationDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	started := d.started
	d.mu.Unlock()

	if !started {
		d.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *NotificationDispatcher) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *NotificationDispatcher) deliver(msg outbound) {
	logCtx := d.logger.WithField("user_id", msg.userID)

	attempt := 0
	op := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(d.ctx, d.opts.AttemptTimeout)
		defer cancel()
		err := d.notifier.Notify(attemptCtx, msg.userID, msg.message)
		if errors.Is(err, notification.ErrRecipientNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logCtx.WithError(err).WithFields(logrus.Fields{
			"attempt":  attempt,
			"retry_in": wait,
		}).Warn("Notification delivery failed")
	}

	err := backoff.RetryNotify(op, d.retryPolicy(), notify)
	switch {
	case err == nil:
		logCtx.WithField("attempt", attempt).Debug("Notification delivered")
	case errors.Is(err, notification.ErrRecipientNotFound):
		logCtx.Debug("User has no notification recipient, skipping")
	case d.ctx.Err() != nil:
		logCtx.WithError(err).Error("Notification abandoned on shutdown")
	default:
		logCtx.WithError(err).WithField("attempt", attempt).Error("Giving up on notification after retries")
	}
}

// retryPolicy allows MaxAttempts deliveries in total, doubling the wait from
// RetryBackoff, and stops early once the dispatcher is cancelled.
func (d *NotificationDispatcher) retryPolicy() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = d.opts.RetryBackoff
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(d.opts.MaxAttempts-1)), d.ctx)
}

type discardQueue struct{}

func (discardQueue) Enqueue(int64, string) bool { return false }
