package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"rps-arena/internal/arena"
)

// RedisPool shares the waiting pools across server instances. Each stake has
// a sorted set of player ids scored by enqueue time in milliseconds and a hash
// of player id to client IP.
type RedisPool struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisPool(client redis.UniversalClient, prefix string) *RedisPool {
	if prefix == "" {
		prefix = "arena:queue"
	}
	return &RedisPool{client: client, prefix: prefix}
}

func (p *RedisPool) setKey(stake int64) string {
	return fmt.Sprintf("%s:%d", p.prefix, stake)
}

func (p *RedisPool) ipKey(stake int64) string {
	return fmt.Sprintf("%s:%d:ip", p.prefix, stake)
}

func (p *RedisPool) Evict(ctx context.Context, stake int64, before time.Time) (int, error) {
	cutoff := strconv.FormatInt(before.UnixMilli(), 10)
	stale, err := p.client.ZRangeByScore(ctx, p.setKey(stake), &redis.ZRangeBy{Min: "-inf", Max: cutoff}).Result()
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}
	pipe := p.client.TxPipeline()
	removed := pipe.ZRemRangeByScore(ctx, p.setKey(stake), "-inf", cutoff)
	pipe.HDel(ctx, p.ipKey(stake), stale...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(removed.Val()), nil
}

func (p *RedisPool) Contains(ctx context.Context, stake int64, playerID string) (bool, error) {
	_, err := p.client.ZScore(ctx, p.setKey(stake), playerID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *RedisPool) PopOldest(ctx context.Context, stake int64) (Entry, bool, error) {
	popped, err := p.client.ZPopMin(ctx, p.setKey(stake), 1).Result()
	if err != nil {
		return Entry{}, false, err
	}
	if len(popped) == 0 {
		return Entry{}, false, nil
	}
	playerID, _ := popped[0].Member.(string)
	e := Entry{
		PlayerID:   playerID,
		Stake:      stake,
		EnqueuedAt: time.UnixMilli(int64(popped[0].Score)),
	}
	ip, err := p.client.HGet(ctx, p.ipKey(stake), playerID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Entry{}, false, err
	}
	e.IP = ip
	if err := p.client.HDel(ctx, p.ipKey(stake), playerID).Err(); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (p *RedisPool) Add(ctx context.Context, e Entry) error {
	added, err := p.client.ZAddNX(ctx, p.setKey(e.Stake), redis.Z{
		Score:  float64(e.EnqueuedAt.UnixMilli()),
		Member: e.PlayerID,
	}).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		return arena.ErrAlreadyQueued
	}
	if e.IP == "" {
		return nil
	}
	return p.client.HSet(ctx, p.ipKey(e.Stake), e.PlayerID, e.IP).Err()
}

func (p *RedisPool) Remove(ctx context.Context, stake int64, playerID string) (bool, error) {
	pipe := p.client.TxPipeline()
	removed := pipe.ZRem(ctx, p.setKey(stake), playerID)
	pipe.HDel(ctx, p.ipKey(stake), playerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return removed.Val() > 0, nil
}

func (p *RedisPool) Len(ctx context.Context, stake int64) (int, error) {
	n, err := p.client.ZCard(ctx, p.setKey(stake)).Result()
	return int(n), err
}
