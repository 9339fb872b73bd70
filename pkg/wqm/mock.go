package wqm

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/itohio/gowqm/pkg/config"
)

// Mock simulates a sensor board for testing and development.
type Mock struct {
	cfg *config.MockConfig

	samples   chan RawSample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	rnd       *rand.Rand

	// Simulated inputs
	raw     [4]uint16
	pressed bool

	// Lamp states (green, yellow, red)
	lamps [3]bool
}

// NewMock creates a new mocked sensor board.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:     cfg,
		samples: make(chan RawSample, DefaultBufferSize),
		ctx:     ctx,
		cancel:  cancel,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		raw:     [4]uint16{cfg.Chlorine, cfg.Turbidity, cfg.Conductivity, cfg.PH},
	}
}

// Connect simulates connecting to the board.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	go m.generateSamples()

	return nil
}

// Close stops the mocked board.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.connected = false
	close(m.samples)

	return nil
}

// Samples returns the channel for reading samples.
func (m *Mock) Samples() <-chan RawSample {
	return m.samples
}

// SetIndicators records the lamp states.
func (m *Mock) SetIndicators(green, yellow, red bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}

	m.lamps = [3]bool{green, yellow, red}
	return nil
}

// Indicators returns the last lamp states (green, yellow, red).
func (m *Mock) Indicators() [3]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lamps
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Press asserts the simulated trigger button.
func (m *Mock) Press() {
	m.mu.Lock()
	m.pressed = true
	m.mu.Unlock()
}

// Release releases the simulated trigger button.
func (m *Mock) Release() {
	m.mu.Lock()
	m.pressed = false
	m.mu.Unlock()
}

// SetRaw overrides the base raw values of the four channels.
func (m *Mock) SetRaw(chlorine, turbidity, conductivity, ph uint16) {
	m.mu.Lock()
	m.raw = [4]uint16{chlorine, turbidity, conductivity, ph}
	m.mu.Unlock()
}

// generateSamples generates simulated samples.
func (m *Mock) generateSamples() {
	ticker := time.NewTicker(m.cfg.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			if !m.connected {
				m.mu.RUnlock()
				return
			}
			select {
			case m.samples <- m.generateSample(time.Now()):
			default:
				// Channel full, skip
			}
			m.mu.RUnlock()
		}
	}
}

// generateSample generates a single simulated sample. Caller holds m.mu.
func (m *Mock) generateSample(now time.Time) RawSample {
	var adc [4]uint16
	for i, base := range m.raw {
		adc[i] = m.jitter(base)
	}

	return RawSample{
		Timestamp:    now,
		Chlorine:     adc[0],
		Turbidity:    adc[1],
		Conductivity: adc[2],
		PH:           adc[3],
		Button:       m.pressed,
	}
}

// jitter adds bounded noise to a raw value, clamped to the ADC range.
func (m *Mock) jitter(base uint16) uint16 {
	if m.cfg.Noise == 0 {
		return base
	}
	n := int(m.cfg.Noise)
	v := int(base) + m.rnd.Intn(2*n+1) - n
	if v < 0 {
		v = 0
	} else if v > MaxADC {
		v = MaxADC
	}
	return uint16(v)
}
