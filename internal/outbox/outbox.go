package outbox

import (
	"context"
	"sync"
	"time"

	"course-portal/internal/domain"

	"go.uber.org/zap"
)

const (
	DefaultCapacity    = 16
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 200 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
)

// Sender delivers one full profile record to the remote store.
type Sender interface {
	UpsertProfile(ctx context.Context, user domain.User) error
}

// Outbox mirrors record snapshots to a Sender from a single background worker.
// Enqueue never blocks; when the queue is full the oldest snapshot is dropped.
type Outbox struct {
	sender      Sender
	logger      *zap.Logger
	capacity    int
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	queue   []domain.User
	closed  bool
	started bool
	dropped int

	wake   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

// Option configures an Outbox.
type Option func(*Outbox)

func WithCapacity(n int) Option {
	return func(o *Outbox) {
		if n > 0 {
			o.capacity = n
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(o *Outbox) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithBackoff sets the first retry delay and its ceiling.
func WithBackoff(base, max time.Duration) Option {
	return func(o *Outbox) {
		if base > 0 {
			o.baseDelay = base
		}
		if max > 0 {
			o.maxDelay = max
		}
	}
}

func New(sender Sender, logger *zap.Logger, opts ...Option) *Outbox {
	o := &Outbox{
		sender:      sender,
		logger:      logger,
		capacity:    DefaultCapacity,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
		sleep:       sleepContext,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start launches the worker. It stops when ctx is canceled or after Close drains the queue.
func (o *Outbox) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return
	}
	o.started = true
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	go o.run(runCtx)
}

// Enqueue queues a snapshot for delivery.
func (o *Outbox) Enqueue(user domain.User) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.logger.Warn("outbox closed, dropping profile snapshot", zap.String("email", user.Email))
		return
	}
	if len(o.queue) >= o.capacity {
		dropped := o.queue[0]
		o.queue = o.queue[1:]
		o.dropped++
		o.logger.Debug("outbox full, dropping oldest snapshot", zap.String("email", dropped.Email))
	}
	o.queue = append(o.queue, user)
	o.mu.Unlock()
	o.signal()
}

// Pending returns the number of queued snapshots.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Dropped returns how many snapshots were evicted by a full queue.
func (o *Outbox) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

// Close stops intake and waits for the worker to drain the queue.
// When ctx expires first the worker is canceled and ctx.Err() is returned.
func (o *Outbox) Close(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	started := o.started
	o.mu.Unlock()
	if !started {
		return nil
	}
	o.signal()

	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		o.cancel()
		<-o.done
		o.mu.Lock()
		left := len(o.queue)
		o.mu.Unlock()
		if left > 0 {
			o.logger.Warn("outbox closed with undelivered snapshots", zap.Int("pending", left))
		}
		return ctx.Err()
	}
}

func (o *Outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Outbox) run(ctx context.Context) {
	defer close(o.done)
	for {
		user, ok, closed := o.next()
		if ok {
			o.deliver(ctx, user)
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if closed {
			return
		}
		select {
		case <-o.wake:
		case <-ctx.Done():
			return
		}
	}
}

func (o *Outbox) next() (domain.User, bool, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return domain.User{}, false, o.closed
	}
	user := o.queue[0]
	o.queue = o.queue[1:]
	return user, true, o.closed
}

func (o *Outbox) deliver(ctx context.Context, user domain.User) {
	for attempt := 1; ; attempt++ {
		err := o.sender.UpsertProfile(ctx, user)
		if err == nil {
			return
		}
		if attempt >= o.maxAttempts || ctx.Err() != nil {
			o.logger.Error("profile sync failed, giving up",
				zap.String("email", user.Email),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return
		}
		delay := Backoff(attempt-1, o.baseDelay, o.maxDelay)
		o.logger.Warn("profile sync failed, retrying",
			zap.String("email", user.Email),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := o.sleep(ctx, delay); err != nil {
			return
		}
	}
}

// Backoff doubles base once per earlier retry, capped at max.
func Backoff(retries int, base, max time.Duration) time.Duration {
	delay := base
	for i := 0; i < retries; i++ {
		delay *= 2
		if delay > max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
