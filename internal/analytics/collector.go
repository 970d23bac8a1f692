package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/metrics"
)

// Sink receives flushed batches of events.
type Sink interface {
	Publish(ctx context.Context, events []SearchEvent) error
}

// Collector buffers events on a channel and hands them to a Sink in batches,
// either when batchSize events have accumulated or every flushInterval.
// Track never blocks: events are dropped when the buffer is full.
type Collector struct {
	sink          Sink
	eventCh       chan SearchEvent
	batchSize     int
	flushInterval time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

// NewCollector creates a Collector. m may be nil.
func NewCollector(sink Sink, bufferSize, batchSize int, flushInterval time.Duration, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		sink:          sink,
		eventCh:       make(chan SearchEvent, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		metrics:       m,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the flush loop. It returns immediately; the loop stops when
// ctx is cancelled or Close is called, flushing whatever is buffered.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.run(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Track queues an event. It reports whether the event was accepted.
func (c *Collector) Track(event SearchEvent) bool {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.count("dropped", 1)
		return false
	}
	select {
	case c.eventCh <- event:
		return true
	default:
		c.count("dropped", 1)
		c.logger.Warn("analytics event dropped (buffer full)", "type", event.Type)
		return false
	}
}

// Close stops accepting events and waits for the buffered ones to be flushed.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	started := c.started
	close(c.eventCh)
	c.mu.Unlock()

	if started {
		<-c.done
	}
}

// Pending returns the number of events waiting in the channel.
func (c *Collector) Pending() int {
	return len(c.eventCh)
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]SearchEvent, 0, c.batchSize)
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				c.finalFlush(batch)
				return
			}
			batch = append(batch, event)
			if len(batch) >= c.batchSize {
				batch = c.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = c.flush(ctx, batch)
		case <-ctx.Done():
			for drained := false; !drained; {
				select {
				case event, ok := <-c.eventCh:
					if !ok {
						drained = true
						break
					}
					batch = append(batch, event)
				default:
					drained = true
				}
			}
			c.finalFlush(batch)
			return
		}
	}
}

func (c *Collector) finalFlush(batch []SearchEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.flush(ctx, batch)
}

func (c *Collector) flush(ctx context.Context, batch []SearchEvent) []SearchEvent {
	if len(batch) == 0 {
		return batch
	}
	if err := c.sink.Publish(ctx, batch); err != nil {
		c.count("failed", len(batch))
		c.logger.Error("analytics batch flush failed", "batch_size", len(batch), "error", err)
	} else {
		c.count("published", len(batch))
		c.logger.Debug("analytics batch flushed", "events", len(batch))
	}
	return make([]SearchEvent, 0, c.batchSize)
}

func (c *Collector) count(status string, n int) {
	if c.metrics != nil {
		c.metrics.AnalyticsEventsTotal.WithLabelValues(status).Add(float64(n))
	}
}
