package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Redis keeps the most recent records as a capped JSON list under key and
// the per-label counts in a hash under key:counts.
type Redis struct {
	client   *redis.Client
	key      string
	capacity int
}

// NewRedis connects to addr.
func NewRedis(ctx context.Context, addr, key string, capacity int) (*Redis, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis unavailable: %w", err)
	}

	return &Redis{client: client, key: key, capacity: capacity}, nil
}

// Name implements Store.
func (r *Redis) Name() string { return "redis" }

func (r *Redis) countsKey() string { return r.key + ":counts" }

// Save implements Store.
func (r *Redis) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.key, data)
		pipe.LTrim(ctx, r.key, 0, int64(r.capacity-1))
		pipe.HIncrBy(ctx, r.countsKey(), rec.Label.String(), 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store reading: %w", err)
	}
	return nil
}

// Recent implements Store.
func (r *Redis) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > r.capacity {
		limit = r.capacity
	}

	items, err := r.client.LRange(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read readings: %w", err)
	}

	return decodeRecords(items)
}

// Stats implements Store.
func (r *Redis) Stats(ctx context.Context) (Stats, error) {
	counts, err := r.client.HGetAll(ctx, r.countsKey()).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read counts: %w", err)
	}
	return parseCounts(counts)
}

// Close implements Store.
func (r *Redis) Close() error {
	return r.client.Close()
}

func decodeRecords(items []string) ([]Record, error) {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("invalid stored reading: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseCounts(counts map[string]string) (Stats, error) {
	st := Stats{ByLabel: make(map[string]int64, len(counts))}
	for label, v := range counts {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Stats{}, fmt.Errorf("invalid count for %s: %w", label, err)
		}
		st.ByLabel[label] = n
		st.Total += n
	}
	return st, nil
}
