package queue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spaolacci/murmur3"
	"golang.org/x/time/rate"

	"github.com/caimari/musedock-sub009/internal/api/metrics"
	"github.com/caimari/musedock-sub009/internal/core/domain"
	"github.com/caimari/musedock-sub009/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// Dispatcher persists security events off the request path. Events are
// sharded by client IP so one source's events are written in order.
type Dispatcher struct {
	workers []chan domain.SecurityEvent
	repo    ports.SecurityLogRepository
	log     zerolog.Logger
	wg      sync.WaitGroup

	// dropWarn limits the "queue full" warning to one per second.
	dropWarn rate.Sometimes
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, repo ports.SecurityLogRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan domain.SecurityEvent, numWorkers),
		repo:     repo,
		log:      log,
		dropWarn: rate.Sometimes{Interval: time.Second},
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.SecurityEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain their queue and stop
// when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Record implements ports.SecurityAuditor. It never blocks: when the worker
// queue is full the event is logged and dropped.
func (d *Dispatcher) Record(event domain.SecurityEvent) {
	idx := d.shardIndex(event.IP)
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.SecurityEventsDroppedTotal.Inc()
		d.dropWarn.Do(func() {
			d.log.Warn().
				Str("event", string(event.Type)).
				Str("ip", event.IP).
				Int("worker_id", idx).
				Msg("security audit queue full, events dropped")
		})
	}
}

// shardIndex maps an IP deterministically to a worker index.
func (d *Dispatcher) shardIndex(ip string) int {
	return int(murmur3.Sum32([]byte(ip)) % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.SecurityEvent) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case event := <-ch:
			d.write(context.Background(), id, event)
		}
	}
}

// drain flushes what is still queued at shutdown.
func (d *Dispatcher) drain(id int, ch <-chan domain.SecurityEvent) {
	for {
		select {
		case event := <-ch:
			d.write(context.Background(), id, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) write(parent context.Context, id int, event domain.SecurityEvent) {
	ctx, cancel := context.WithTimeout(parent, writeTimeout)
	defer cancel()

	if err := d.repo.Insert(ctx, event); err != nil {
		d.log.Error().Err(err).
			Str("event", string(event.Type)).
			Int("worker_id", id).
			Msg("security event persistence failed")
	}
	metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(d.workers[id])))
}
