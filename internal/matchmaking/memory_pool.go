package matchmaking

import (
	"context"
	"sync"
	"time"

	"rps-arena/internal/arena"
)

// MemoryPool is a process-local Pool backed by one slice per stake.
type MemoryPool struct {
	mu      sync.Mutex
	buckets map[int64][]Entry
}

func NewMemoryPool() *MemoryPool {
	return &MemoryPool{buckets: make(map[int64][]Entry)}
}

func (p *MemoryPool) Evict(_ context.Context, stake int64, before time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	bucket := p.buckets[stake]
	kept := bucket[:0]
	for _, e := range bucket {
		if !e.EnqueuedAt.After(before) {
			continue
		}
		kept = append(kept, e)
	}
	removed := len(bucket) - len(kept)
	p.set(stake, kept)
	return removed, nil
}

func (p *MemoryPool) Contains(_ context.Context, stake int64, playerID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indexOf(stake, playerID) >= 0, nil
}

func (p *MemoryPool) PopOldest(_ context.Context, stake int64) (Entry, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	bucket := p.buckets[stake]
	if len(bucket) == 0 {
		return Entry{}, false, nil
	}
	e := bucket[0]
	p.set(stake, bucket[1:])
	return e, true, nil
}

func (p *MemoryPool) Add(_ context.Context, e Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indexOf(e.Stake, e.PlayerID) >= 0 {
		return arena.ErrAlreadyQueued
	}
	p.buckets[e.Stake] = append(p.buckets[e.Stake], e)
	return nil
}

func (p *MemoryPool) Remove(_ context.Context, stake int64, playerID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexOf(stake, playerID)
	if i < 0 {
		return false, nil
	}
	bucket := p.buckets[stake]
	p.set(stake, append(bucket[:i:i], bucket[i+1:]...))
	return true, nil
}

func (p *MemoryPool) Len(_ context.Context, stake int64) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets[stake]), nil
}

func (p *MemoryPool) indexOf(stake int64, playerID string) int {
	for i, e := range p.buckets[stake] {
		if e.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func (p *MemoryPool) set(stake int64, bucket []Entry) {
	if len(bucket) == 0 {
		delete(p.buckets, stake)
		return
	}
	p.buckets[stake] = bucket
}
