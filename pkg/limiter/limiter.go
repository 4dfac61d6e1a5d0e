package limiter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// ConcurrencyLimiter bounds how many functions run at once.
type ConcurrencyLimiter struct {
	name       string
	limit      int
	tickets    chan int
	inProgress *atomic.Int32
}

// NewConcurrencyLimiter allocates a new ConcurrencyLimiter. This is used to
// bound how many events are being published at once.
func NewConcurrencyLimiter(name string, limit int) *ConcurrencyLimiter {
	if limit <= 0 {
		limit = 1
	}

	c := &ConcurrencyLimiter{
		name:       name,
		limit:      limit,
		tickets:    make(chan int, limit),
		inProgress: atomic.NewInt32(0),
	}

	for i := 0; i < c.limit; i++ {
		c.tickets <- i
	}

	return c
}

func (c *ConcurrencyLimiter) Name() string {
	return c.name
}

func (c *ConcurrencyLimiter) Limit() int {
	return c.limit
}

// Wait waits for a free ticket in the queue. Callers must pass the ticket to FreeTicket.
func (c *ConcurrencyLimiter) Wait(ctx context.Context) (int, error) {
	select {
	case ticket := <-c.tickets:
		c.inProgress.Inc()

		return ticket, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// FreeTicket adds the ticket back into the queue.
func (c *ConcurrencyLimiter) FreeTicket(ticket int) {
	c.inProgress.Dec()
	c.tickets <- ticket
}

// InProgress returns how many tickets are being used.
func (c *ConcurrencyLimiter) InProgress() int32 {
	return c.inProgress.Load()
}

// DurationLimiter allows an operation to run only limit times in every duration.
type DurationLimiter struct {
	name     string
	limit    int32
	duration time.Duration

	mu        sync.Mutex
	resetsAt  time.Time
	available int32

	now func() time.Time
}

func NewDurationLimiter(name string, limit int32, duration time.Duration) *DurationLimiter {
	if limit <= 0 {
		limit = 1
	}

	return &DurationLimiter{
		name:     name,
		limit:    limit,
		duration: duration,
		now:      time.Now,
	}
}

func (l *DurationLimiter) Name() string {
	return l.name
}

// Lock waits until there is an available slot. It returns how long it waited.
func (l *DurationLimiter) Lock(ctx context.Context) (time.Duration, error) {
	var waited time.Duration

	for {
		wait := l.reserve()
		if wait <= 0 {
			return waited, nil
		}

		timer := time.NewTimer(wait)

		select {
		case <-timer.C:
			waited += wait
		case <-ctx.Done():
			timer.Stop()

			return waited, ctx.Err()
		}
	}
}

// reserve takes a slot and returns zero, or returns how long until the window resets.
func (l *DurationLimiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if !l.resetsAt.After(now) {
		l.resetsAt = now.Add(l.duration)
		l.available = l.limit
	}

	if l.available <= 0 {
		return l.resetsAt.Sub(now)
	}

	l.available--

	return 0
}

// Reset starts a new window from now without freeing slots.
func (l *DurationLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resetsAt = l.now().Add(l.duration)
}
