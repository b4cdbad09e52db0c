package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"lumacheckin/pkg/logger"
)

var (
	ErrQueueFull       = errors.New("check-in event queue is full")
	ErrPublisherClosed = errors.New("check-in event publisher is closed")
)

// AsyncPublisher queues events for a background worker so a slow broker
// never holds up a check-in response. Events that do not fit the queue are
// dropped with ErrQueueFull.
type AsyncPublisher struct {
	next    Publisher
	queue   chan *CheckinEvent
	timeout time.Duration
	log     *logger.Logger

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// NewAsyncPublisher starts the worker. timeout bounds each delivery.
func NewAsyncPublisher(next Publisher, queueSize int, timeout time.Duration, log *logger.Logger) *AsyncPublisher {
	if log == nil {
		log = logger.GetDefault()
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	ap := &AsyncPublisher{
		next:    next,
		queue:   make(chan *CheckinEvent, queueSize),
		timeout: timeout,
		log:     log,
	}
	ap.wg.Add(1)
	go ap.run()
	return ap
}

// PublishCheckin enqueues the event and returns at once
func (ap *AsyncPublisher) PublishCheckin(ctx context.Context, event *CheckinEvent) error {
	ap.mu.RLock()
	defer ap.mu.RUnlock()
	if ap.closed {
		return ErrPublisherClosed
	}

	select {
	case ap.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close delivers what is queued, then closes the wrapped publisher
func (ap *AsyncPublisher) Close() error {
	ap.closeOnce.Do(func() {
		ap.mu.Lock()
		ap.closed = true
		close(ap.queue)
		ap.mu.Unlock()

		ap.wg.Wait()
		ap.closeErr = ap.next.Close()
	})
	return ap.closeErr
}

func (ap *AsyncPublisher) HealthCheck(ctx context.Context) error {
	return ap.next.HealthCheck(ctx)
}

func (ap *AsyncPublisher) run() {
	defer ap.wg.Done()

	for event := range ap.queue {
		ctx := context.Background()
		cancel := func() {}
		if ap.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, ap.timeout)
		}
		if err := ap.next.PublishCheckin(ctx, event); err != nil {
			ap.log.WithError(err).Error("Failed to publish check-in event",
				"event_id", event.EventID,
				"guest_id", event.GuestID,
			)
		}
		cancel()
	}
}
