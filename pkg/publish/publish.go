// Package publish fans completed trigger cycles out to a message broker.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/itohio/gowqm/pkg/classify"
	"github.com/itohio/gowqm/pkg/config"
	"github.com/itohio/gowqm/pkg/sample"
)

// Result is the published record of one trigger cycle.
type Result struct {
	ID           uuid.UUID      `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Chlorine     float32        `json:"chlorine"`
	Turbidity    float32        `json:"turbidity"`
	Conductivity float32        `json:"conductivity"`
	PH           float32        `json:"ph"`
	Label        classify.Label `json:"label"`
}

// NewResult builds a Result from a cycle's reading and label.
func NewResult(id uuid.UUID, r sample.Reading, label classify.Label) Result {
	return Result{
		ID:           id,
		Timestamp:    r.Timestamp,
		Chlorine:     r.Chlorine,
		Turbidity:    r.Turbidity,
		Conductivity: r.Conductivity,
		PH:           r.PH,
		Label:        label,
	}
}

// Publisher delivers results to an external system.
type Publisher interface {
	Publish(ctx context.Context, r Result) error
	Close() error
}

// New creates the publisher selected by cfg.Backend.
func New(cfg config.PublishConfig) (Publisher, error) {
	switch cfg.Backend {
	case "", "none":
		return Nop{}, nil
	case "mqtt":
		return NewMQTT(cfg.Broker, cfg.ClientID, cfg.Topic)
	case "kafka":
		if len(cfg.Brokers) == 0 {
			return nil, fmt.Errorf("kafka publisher needs at least one broker")
		}
		return NewKafka(cfg.Brokers, cfg.Topic), nil
	default:
		return nil, fmt.Errorf("unknown publish backend %q", cfg.Backend)
	}
}

// Nop discards results.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Result) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }

func encode(r Result) ([]byte, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return payload, nil
}
