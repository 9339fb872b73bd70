// Package monitor runs the trigger loop: wait for the manual input, take one
// reading, classify it and render the verdict.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/itohio/gowqm/pkg/classify"
	"github.com/itohio/gowqm/pkg/config"
	"github.com/itohio/gowqm/pkg/sample"
)

// Phase is the state of the trigger loop.
type Phase int

const (
	Idle Phase = iota
	Cycling
)

func (p Phase) String() string {
	if p == Cycling {
		return "cycling"
	}
	return "idle"
}

// Button reports the level of the manual trigger input.
type Button interface {
	Pressed() bool
}

// Sensors takes one calibrated reading.
type Sensors interface {
	Read() sample.Reading
}

// Classifier obtains the verdict for a reading.
type Classifier interface {
	Classify(ctx context.Context, r sample.Reading) (classify.Label, error)
}

// Renderer drives the lamps and the status screen.
type Renderer interface {
	Render(r sample.Reading, label classify.Label) error
}

// State is the result of the most recent completed trigger cycle.
// Reading and Label are always written together.
type State struct {
	ID      uuid.UUID
	Reading sample.Reading
	Label   classify.Label
	Err     error
	Cycles  uint64
}

// Monitor implements the Idle/Cycling loop.
type Monitor struct {
	cfg        config.TriggerConfig
	button     Button
	sensors    Sensors
	classifier Classifier
	renderer   Renderer

	mu    sync.RWMutex
	state State
	phase Phase

	callbacks []func(State, time.Duration)
	cbMu      sync.RWMutex
}

// New creates a Monitor in the Idle phase with a Standby state.
func New(cfg config.TriggerConfig, button Button, sensors Sensors, classifier Classifier, renderer Renderer) *Monitor {
	def := config.Default().Trigger
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.DebounceDelay < 0 {
		cfg.DebounceDelay = 0
	}

	return &Monitor{
		cfg:        cfg,
		button:     button,
		sensors:    sensors,
		classifier: classifier,
		renderer:   renderer,
		state:      State{Label: classify.Standby},
	}
}

// OnCycle registers a callback invoked after every completed cycle with the
// committed state and the cycle duration. Callbacks run on the loop goroutine.
func (m *Monitor) OnCycle(fn func(State, time.Duration)) {
	m.cbMu.Lock()
	m.callbacks = append(m.callbacks, fn)
	m.cbMu.Unlock()
}

// State returns the last committed state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Phase returns the current loop phase.
func (m *Monitor) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// Run polls the button until ctx is cancelled. Each asserted edge starts one
// cycle; the loop then waits the debounce delay and for the button to be
// released before it re-arms.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !m.button.Pressed() {
			continue
		}

		m.Cycle(ctx)

		if !sleep(ctx, m.cfg.DebounceDelay) {
			return nil
		}

		for m.button.Pressed() {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
}

// Cycle performs one read, classify and render sequence and commits the result.
// The classifier request is not cancelled with ctx once it has been issued.
func (m *Monitor) Cycle(ctx context.Context) (sample.Reading, classify.Label) {
	m.setPhase(Cycling)
	defer m.setPhase(Idle)

	start := time.Now()

	r := m.sensors.Read()
	label, err := m.classifier.Classify(context.WithoutCancel(ctx), r)
	if err != nil {
		if !label.IsError() {
			label = classify.LabelForError(err)
		}
		log.Printf("Classification failed: %v", err)
	} else if label == classify.Unrecognized {
		log.Printf("Classifier returned an unrecognized verdict")
	}

	st := m.commit(r, label, err)

	if err := m.renderer.Render(r, label); err != nil {
		log.Printf("Render failed: %v", err)
	}

	elapsed := time.Since(start)
	log.Printf("Cycle %d: %s -> %s (%v)", st.Cycles, r, label, elapsed.Round(time.Millisecond))

	m.cbMu.RLock()
	callbacks := make([]func(State, time.Duration), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, fn := range callbacks {
		fn(st, elapsed)
	}

	return r, label
}

func (m *Monitor) commit(r sample.Reading, label classify.Label, err error) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = State{
		ID:      uuid.New(),
		Reading: r,
		Label:   label,
		Err:     err,
		Cycles:  m.state.Cycles + 1,
	}
	return m.state
}

func (m *Monitor) setPhase(p Phase) {
	m.mu.Lock()
	m.phase = p
	m.mu.Unlock()
}

// sleep waits d or until ctx is done. It reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
