package monitor

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/itohio/gowqm/pkg/classify"
	"github.com/itohio/gowqm/pkg/config"
	"github.com/itohio/gowqm/pkg/output"
	"github.com/itohio/gowqm/pkg/sample"
	"github.com/itohio/gowqm/pkg/wqm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeButton struct {
	pressed atomic.Bool
}

func (b *fakeButton) Pressed() bool { return b.pressed.Load() }

type fakeSensors struct {
	reading sample.Reading
}

func (s *fakeSensors) Read() sample.Reading { return s.reading }

type fakeClassifier struct {
	mu    sync.Mutex
	label classify.Label
	err   error
	calls int
	ctxs  []context.Context
}

func (c *fakeClassifier) Classify(ctx context.Context, r sample.Reading) (classify.Label, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.ctxs = append(c.ctxs, ctx)
	return c.label, c.err
}

func (c *fakeClassifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeRenderer struct {
	mu     sync.Mutex
	labels []classify.Label
}

func (r *fakeRenderer) Render(_ sample.Reading, label classify.Label) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = append(r.labels, label)
	return nil
}

type fakeIndicators struct {
	states [3]bool
}

func (f *fakeIndicators) SetIndicators(green, yellow, red bool) error {
	f.states = [3]bool{green, yellow, red}
	return nil
}

type rawSource struct {
	raw wqm.RawSample
}

func (s rawSource) Latest() (wqm.RawSample, bool) { return s.raw, true }

func testTrigger() config.TriggerConfig {
	return config.TriggerConfig{PollInterval: time.Millisecond, DebounceDelay: 10 * time.Millisecond}
}

func TestNew_InitialState(t *testing.T) {
	m := New(config.TriggerConfig{}, &fakeButton{}, &fakeSensors{}, &fakeClassifier{}, &fakeRenderer{})

	st := m.State()
	assert.Equal(t, classify.Standby, st.Label)
	assert.Zero(t, st.Cycles)
	assert.Equal(t, Idle, m.Phase())
	assert.Equal(t, 50*time.Millisecond, m.cfg.PollInterval)
}

func TestCycle_CommitsReadingAndLabel(t *testing.T) {
	reading := sample.Reading{Chlorine: 1, Turbidity: 2, Conductivity: 300, PH: 7}
	cls := &fakeClassifier{label: classify.Potable}
	rend := &fakeRenderer{}
	m := New(testTrigger(), &fakeButton{}, &fakeSensors{reading: reading}, cls, rend)

	var got []State
	m.OnCycle(func(s State, _ time.Duration) { got = append(got, s) })

	r, label := m.Cycle(context.Background())
	assert.Equal(t, reading, r)
	assert.Equal(t, classify.Potable, label)

	st := m.State()
	assert.Equal(t, reading, st.Reading)
	assert.Equal(t, classify.Potable, st.Label)
	assert.Equal(t, uint64(1), st.Cycles)
	assert.NotEqual(t, st.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, []classify.Label{classify.Potable}, rend.labels)
	require.Len(t, got, 1)
	assert.Equal(t, st, got[0])
	assert.Equal(t, Idle, m.Phase())
}

func TestCycle_ErrorSubstitutesLabel(t *testing.T) {
	tests := []struct {
		name  string
		label classify.Label
		err   error
		want  classify.Label
	}{
		{"no network", classify.NoNetwork, classify.ErrNoNetwork, classify.NoNetwork},
		{"status", classify.HTTPStatusError, &classify.StatusError{Code: 500}, classify.HTTPStatusError},
		{"bare transport error", classify.Standby, errors.New("reset"), classify.TransportFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(testTrigger(), &fakeButton{}, &fakeSensors{}, &fakeClassifier{label: tt.label, err: tt.err}, &fakeRenderer{})
			_, label := m.Cycle(context.Background())
			assert.Equal(t, tt.want, label)
			assert.Equal(t, tt.want, m.State().Label)
			assert.Error(t, m.State().Err)
		})
	}
}

func TestCycle_RequestSurvivesCancellation(t *testing.T) {
	cls := &fakeClassifier{label: classify.Suspect}
	m := New(testTrigger(), &fakeButton{}, &fakeSensors{}, cls, &fakeRenderer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, label := m.Cycle(ctx)
	assert.Equal(t, classify.Suspect, label)
	require.Len(t, cls.ctxs, 1)
	assert.NoError(t, cls.ctxs[0].Err())
}

func TestRun_EdgeTriggered(t *testing.T) {
	btn := &fakeButton{}
	cls := &fakeClassifier{label: classify.Potable}
	m := New(testTrigger(), btn, &fakeSensors{}, cls, &fakeRenderer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	// Holding the button yields exactly one cycle.
	btn.pressed.Store(true)
	require.Eventually(t, func() bool { return cls.Calls() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, cls.Calls())

	// Release re-arms; the next press runs another cycle.
	btn.pressed.Store(false)
	time.Sleep(10 * time.Millisecond)
	btn.pressed.Store(true)
	require.Eventually(t, func() bool { return cls.Calls() == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, uint64(2), m.State().Cycles)
}

func TestRun_SoftButton(t *testing.T) {
	btn := &SoftButton{}
	cls := &fakeClassifier{label: classify.NonPotable}
	m := New(testTrigger(), AnyButton{&fakeButton{}, btn}, &fakeSensors{}, cls, &fakeRenderer{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	btn.Trigger()
	require.Eventually(t, func() bool { return cls.Calls() == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, cls.Calls())

	btn.Trigger()
	require.Eventually(t, func() bool { return cls.Calls() == 2 }, time.Second, time.Millisecond)
}

func TestSoftButton(t *testing.T) {
	var b SoftButton
	assert.False(t, b.Pressed())
	b.Trigger()
	b.Trigger()
	assert.True(t, b.Pressed())
	assert.False(t, b.Pressed())
}

func TestAnyButton(t *testing.T) {
	held := &fakeButton{}
	held.pressed.Store(true)
	soft := &SoftButton{}
	soft.Trigger()

	buttons := AnyButton{held, soft, nil}
	assert.True(t, buttons.Pressed())
	// The soft trigger was consumed alongside the held button.
	assert.False(t, soft.Pressed())
	assert.False(t, AnyButton{&fakeButton{}}.Pressed())
}

func newEndToEnd(t *testing.T, handler http.HandlerFunc, timeout time.Duration, raw wqm.RawSample) (*Monitor, *fakeIndicators, *bytes.Buffer) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := classify.New(srv.URL+"/data", timeout, classify.StaticLink(true))
	require.NoError(t, err)

	ind := &fakeIndicators{}
	var screen bytes.Buffer
	drv := output.NewDriver(ind, &output.TextDisplay{W: &screen})
	drv.Start()

	reader := sample.NewReader(rawSource{raw: raw}, config.Default().Calibration)
	return New(testTrigger(), &fakeButton{}, reader, client, drv), ind, &screen
}

func TestEndToEnd_ZeroInputs(t *testing.T) {
	var query string
	m, _, _ := newEndToEnd(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte("POTAVEL"))
	}, time.Second, wqm.RawSample{})

	r, label := m.Cycle(context.Background())
	assert.Equal(t, classify.Potable, label)
	assert.InDelta(t, 0.0, r.Chlorine, 1e-6)
	assert.InDelta(t, 990.0, r.Turbidity, 1e-3)
	assert.InDelta(t, 0.0, r.Conductivity, 1e-6)
	assert.InDelta(t, 0.0, r.PH, 1e-6)
	assert.Equal(t, "chlorine=0.00&turbidity=990.00&conductivity=0.00&ph=0.00", query)
}

func TestEndToEnd_Suspect(t *testing.T) {
	m, ind, screen := newEndToEnd(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("SUSPEITA"))
	}, time.Second, wqm.RawSample{Chlorine: 820, Turbidity: 4050, Conductivity: 900, PH: 2100})

	screen.Reset()
	_, label := m.Cycle(context.Background())
	assert.Equal(t, classify.Suspect, label)
	assert.Equal(t, [3]bool{false, true, false}, ind.states)
	assert.Contains(t, screen.String(), "SUSPEITA")
}

func TestEndToEnd_Timeout(t *testing.T) {
	m, ind, screen := newEndToEnd(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, 50*time.Millisecond, wqm.RawSample{})

	ind.states = [3]bool{true, true, true}
	screen.Reset()

	_, label := m.Cycle(context.Background())
	assert.Equal(t, classify.TransportFailure, label)
	assert.Equal(t, [3]bool{}, ind.states)

	var transportErr *classify.TransportError
	assert.ErrorAs(t, m.State().Err, &transportErr)

	token, _ := output.TokenFor(label)
	assert.Contains(t, screen.String(), token)
	for _, verdict := range []classify.Label{classify.Potable, classify.Suspect, classify.NonPotable} {
		vt, _ := output.TokenFor(verdict)
		assert.NotEqual(t, vt, token)
	}
}
