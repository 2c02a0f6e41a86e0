package events

import (
	"sync"
	"time"
)

type pendingRetry struct {
	timer *time.Timer
	j     job
}

// retryQueue re-feeds failed jobs into the dispatch channel after a delay.
// Jobs still waiting when the dispatcher stops are handed back by Flush.
type retryQueue struct {
	out  chan<- job
	done <-chan struct{}

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]pendingRetry
}

func newRetryQueue(out chan<- job, done <-chan struct{}) *retryQueue {
	return &retryQueue{out: out, done: done, pending: make(map[uint64]pendingRetry)}
}

func (q *retryQueue) Enqueue(j job, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.nextID
	q.nextID++
	q.pending[id] = pendingRetry{j: j, timer: time.AfterFunc(delay, func() { q.fire(id) })}
}

func (q *retryQueue) fire(id uint64) {
	q.mu.Lock()
	p, ok := q.pending[id]
	delete(q.pending, id)
	q.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-q.done:
		eventsDropped.WithLabelValues("shutdown").Inc()
		return
	default:
	}
	select {
	case <-q.done:
		eventsDropped.WithLabelValues("shutdown").Inc()
	case q.out <- p.j:
		eventsQueueLen.Set(float64(len(q.out)))
	}
}

// Flush stops every waiting timer and returns the jobs it held.
func (q *retryQueue) Flush() []job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]job, 0, len(q.pending))
	for id, p := range q.pending {
		p.timer.Stop()
		out = append(out, p.j)
		delete(q.pending, id)
	}
	return out
}

func (q *retryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
