// Package occupancysync propagates occupancy counts to the external system
// of record. Delivery is best-effort: all failures are logged and never
// surfaced to the admission that triggered them; the reconciliation job
// closes any residual gap.
package occupancysync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Domenick1991/exambooking/internal/kafka"
)

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Backoff decides the delay before retry attempt n (1-based).
type Backoff interface {
	Delay(attempt int) time.Duration
}

// ExponentialBackoff doubles the base delay per attempt.
type ExponentialBackoff struct {
	Base time.Duration
}

func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

type Dispatcher struct {
	producer    Producer
	topic       string
	maxAttempts int
	backoff     Backoff
	timeout     time.Duration
}

func NewDispatcher(producer Producer, topic string, maxAttempts int, backoff Backoff) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		producer:    producer,
		topic:       topic,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		timeout:     30 * time.Second,
	}
}

// Dispatch enqueues a notification and returns immediately. The request
// that admitted the booking never waits on, or fails because of, delivery.
func (d *Dispatcher) Dispatch(event kafka.OccupancyEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.Notify(ctx, event); err != nil {
			log.Printf("occupancy sync for session %d abandoned: %v", event.SessionID, err)
		}
	}()
}

// Notify attempts delivery with bounded retries. Exposed for the worker and
// for tests; Dispatch is the fire-and-forget wrapper.
func (d *Dispatcher) Notify(ctx context.Context, event kafka.OccupancyEvent) error {
	key := occupancyEventKey(event.SessionID)
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		lastErr = d.producer.Publish(ctx, d.topic, key, event)
		if lastErr == nil {
			return nil
		}
		if attempt == d.maxAttempts {
			break
		}
		select {
		case <-time.After(d.backoff.Delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// occupancyEventKey keys events by session so updates for one session stay
// on one partition, in order.
func occupancyEventKey(sessionID int64) string {
	return fmt.Sprintf("session:%d", sessionID)
}
