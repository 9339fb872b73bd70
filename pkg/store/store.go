// Package store keeps the readings classified by the classifier service.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/itohio/gowqm/pkg/classify"
	"github.com/itohio/gowqm/pkg/config"
	"github.com/itohio/gowqm/pkg/sample"
)

// Record is one classified reading.
type Record struct {
	ID           uuid.UUID      `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Chlorine     float32        `json:"chlorine"`
	Turbidity    float32        `json:"turbidity"`
	Conductivity float32        `json:"conductivity"`
	PH           float32        `json:"ph"`
	Score        int            `json:"score"`
	Label        classify.Label `json:"label"`
}

// NewRecord creates a Record with a fresh id.
func NewRecord(r sample.Reading, score int, label classify.Label) Record {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return Record{
		ID:           uuid.New(),
		Timestamp:    ts.UTC(),
		Chlorine:     r.Chlorine,
		Turbidity:    r.Turbidity,
		Conductivity: r.Conductivity,
		PH:           r.PH,
		Score:        score,
		Label:        label,
	}
}

// Stats summarizes the stored records.
type Stats struct {
	Total   int64            `json:"total"`
	ByLabel map[string]int64 `json:"by_label"`
}

// Store persists records.
type Store interface {
	Name() string
	Save(ctx context.Context, rec Record) error
	// Recent returns at most limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// New opens the store selected by cfg.Store.
func New(ctx context.Context, cfg config.ServerConfig) (Store, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemory(cfg.HistoryLimit), nil
	case "postgres":
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("postgres store needs postgres_url")
		}
		return NewPostgres(ctx, cfg.PostgresURL)
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis store needs redis_addr")
		}
		return NewRedis(ctx, cfg.RedisAddr, cfg.RedisKey, cfg.HistoryLimit)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
