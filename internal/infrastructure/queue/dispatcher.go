package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/printease/printease/internal/api/metrics"
	"github.com/printease/printease/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes notifications to a fixed set of workers using consistent
// hashing on the recipient id, so one recipient's notifications are stored in
// the order they were enqueued.
type Dispatcher struct {
	workers []chan ports.NotificationInput
	service ports.NotificationService
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.NotificationService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.NotificationInput, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.NotificationInput, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Cancelling ctx does not stop them;
// workers run until Stop closes their channels and the backlog is stored.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Stop refuses new notifications and waits for workers to drain what is
// already queued. It returns ctx.Err() if ctx ends first. Safe to call twice.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue hands a notification to the worker responsible for its recipient.
// It never blocks: when the shard is full or the dispatcher is stopped the
// notification is dropped and counted.
func (d *Dispatcher) Enqueue(in ports.NotificationInput) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(in, "stopped")
		return
	}

	idx := d.shardIndex(in.RecipientID)
	select {
	case d.workers[idx] <- in:
		metrics.NotificationsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		d.drop(in, "shard full")
	}
}

func (d *Dispatcher) drop(in ports.NotificationInput, reason string) {
	metrics.NotificationsDispatchedTotal.WithLabelValues("dropped").Inc()
	d.log.Warn().
		Str("recipient_id", in.RecipientID).
		Str("reason", reason).
		Msg("notification dropped")
}

// shardIndex maps a recipient id deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipientID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipientID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.NotificationInput) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for in := range ch {
		metrics.NotificationsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))

		start := time.Now()
		err := d.service.Publish(ctx, in)
		metrics.NotificationDeliveryDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.NotificationsDispatchedTotal.WithLabelValues("failed").Inc()
			d.log.Error().Err(err).
				Str("recipient_id", in.RecipientID).
				Int("worker_id", id).
				Msg("notification delivery failed")
			continue
		}
		metrics.NotificationsDispatchedTotal.WithLabelValues("stored").Inc()
	}
}
