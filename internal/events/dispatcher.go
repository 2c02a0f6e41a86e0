package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

type DispatcherConfig struct {
	Workers   int
	Buffer    int
	RetryMax  int
	RetryBase time.Duration
	// DrainTimeout bounds delivery of buffered events once the start
	// context ends.
	DrainTimeout time.Duration
}

type job struct {
	ev      MatchFinished
	attempt int
}

// Dispatcher hands events to a sink on background workers so settlement never
// waits on the broker. Failed sends are retried with exponential backoff and
// dropped after RetryMax attempts. When the start context ends, workers drain
// the buffer and any waiting retries with one final attempt each.
type Dispatcher struct {
	cfg  DispatcherConfig
	sink Publisher

	dispatchCh chan job
	retryQ     *retryQueue
	done       chan struct{}
	stopping   atomic.Bool

	// sendCtx outlives the start context so in-flight sends finish; it is
	// cancelled DrainTimeout after shutdown begins.
	sendCtx    context.Context
	sendCancel context.CancelFunc

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

func NewDispatcher(sink Publisher, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 200 * time.Millisecond
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}
	d := &Dispatcher{
		cfg:        cfg,
		sink:       sink,
		dispatchCh: make(chan job, cfg.Buffer),
		done:       make(chan struct{}),
	}
	d.retryQ = newRetryQueue(d.dispatchCh, d.done)
	return d
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.sendCtx, d.sendCancel = context.WithCancel(context.WithoutCancel(ctx))
	d.mu.Unlock()

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	go func() {
		<-ctx.Done()
		d.stopping.Store(true)
		time.AfterFunc(d.cfg.DrainTimeout, d.sendCancel)
		close(d.done)
	}()
}

// Wait blocks until the workers have drained and exited after the start
// context ends.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
	d.mu.Lock()
	cancel := d.sendCancel
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Publish enqueues ev without blocking. A full buffer drops the event.
func (d *Dispatcher) Publish(_ context.Context, ev MatchFinished) error {
	select {
	case d.dispatchCh <- job{ev: ev}:
		eventsQueued.Inc()
		eventsQueueLen.Set(float64(len(d.dispatchCh)))
	default:
		eventsDropped.WithLabelValues("buffer_full").Inc()
		log.Warn().Str("match_id", ev.MatchID).Str("event_id", ev.EventID).Msg("event_dropped")
	}
	return nil
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			d.drain()
			return
		case j := <-d.dispatchCh:
			eventsQueueLen.Set(float64(len(d.dispatchCh)))
			d.process(j)
		}
	}
}

// drain delivers what is left in the buffer, then pulls waiting retries
// forward, until both are empty.
func (d *Dispatcher) drain() {
	for {
		select {
		case j := <-d.dispatchCh:
			eventsQueueLen.Set(float64(len(d.dispatchCh)))
			d.process(j)
		default:
			retries := d.retryQ.Flush()
			if len(retries) == 0 {
				return
			}
			for _, j := range retries {
				d.process(j)
			}
		}
	}
}

func (d *Dispatcher) process(j job) {
	if err := d.sink.Publish(d.sendCtx, j.ev); err != nil {
		eventsFailed.Inc()
		log.Error().Err(err).
			Str("match_id", j.ev.MatchID).
			Int("attempt", j.attempt).
			Msg("event_publish_failed")
		if d.stopping.Load() {
			eventsDropped.WithLabelValues("shutdown").Inc()
			log.Warn().Str("match_id", j.ev.MatchID).Str("event_id", j.ev.EventID).Msg("event_dropped_on_shutdown")
			return
		}
		d.retryOrDrop(j)
		return
	}
	eventsSent.Inc()
}

func (d *Dispatcher) retryOrDrop(j job) bool {
	if j.attempt >= d.cfg.RetryMax {
		eventsDropped.WithLabelValues("retry_exhausted").Inc()
		return false
	}
	j.attempt++
	eventsRetried.Inc()
	delay := d.cfg.RetryBase * time.Duration(1<<(j.attempt-1))
	d.retryQ.Enqueue(j, delay)
	return true
}
