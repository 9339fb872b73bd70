package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/itohio/gowqm/pkg/classify"
	"github.com/itohio/gowqm/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndicators struct {
	states [3]bool
	calls  int
	err    error
}

func (f *fakeIndicators) SetIndicators(green, yellow, red bool) error {
	f.calls++
	f.states = [3]bool{green, yellow, red}
	return f.err
}

type fakeDisplay struct {
	initErr error
	screens []Screen
}

func (f *fakeDisplay) Init() error { return f.initErr }

func (f *fakeDisplay) Paint(s Screen) error {
	f.screens = append(f.screens, s)
	return nil
}

func lit(states [3]bool) int {
	n := 0
	for _, on := range states {
		if on {
			n++
		}
	}
	return n
}

func TestLampFor(t *testing.T) {
	tests := []struct {
		label classify.Label
		want  Lamp
	}{
		{classify.Potable, LampGreen},
		{classify.Suspect, LampYellow},
		{classify.NonPotable, LampRed},
		{classify.Standby, LampNone},
		{classify.Unrecognized, LampNone},
		{classify.NoNetwork, LampNone},
		{classify.TransportFailure, LampNone},
		{classify.HTTPStatusError, LampNone},
	}

	for _, tt := range tests {
		t.Run(tt.label.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, LampFor(tt.label))
		})
	}
}

func TestRender_AtMostOneLamp(t *testing.T) {
	for _, label := range classify.Labels() {
		ind := &fakeIndicators{states: [3]bool{true, true, true}}
		d := NewDriver(ind, &fakeDisplay{})

		require.NoError(t, d.Render(sample.Reading{}, label))

		if label.IsVerdict() {
			assert.Equal(t, 1, lit(ind.states), label.String())
		} else {
			assert.Equal(t, 0, lit(ind.states), label.String())
		}
	}
}

func TestTokenFor_Injective(t *testing.T) {
	seen := map[string]classify.Label{}
	for _, label := range []classify.Label{classify.Potable, classify.Suspect, classify.NonPotable, classify.NoNetwork, classify.TransportFailure, classify.HTTPStatusError} {
		token, _ := TokenFor(label)
		prev, dup := seen[token]
		assert.False(t, dup, "%s and %s share token %q", prev, label, token)
		seen[token] = label
	}

	standby, hl := TokenFor(classify.Standby)
	assert.Equal(t, TokenWaiting, standby)
	assert.False(t, hl)
	unknown, _ := TokenFor(classify.Unrecognized)
	assert.Equal(t, TokenWaiting, unknown)
}

func TestTokenFor_ErrorsDistinctFromVerdicts(t *testing.T) {
	verdicts := map[string]bool{TokenPotable: true, TokenSuspect: true, TokenNonPotable: true}
	for _, label := range classify.Labels() {
		token, highlight := TokenFor(label)
		if label.IsError() {
			assert.False(t, verdicts[token], label.String())
			assert.False(t, highlight)
		}
		if label.IsVerdict() {
			assert.True(t, highlight)
		}
	}
}

func TestParsedBodyRendersCaseInsensitive(t *testing.T) {
	for _, body := range []string{"potavel", "POTAVEL"} {
		ind := &fakeIndicators{}
		disp := &fakeDisplay{}
		d := NewDriver(ind, disp)

		require.NoError(t, d.Render(sample.Reading{}, classify.ParseLabel(body)))
		assert.Equal(t, [3]bool{true, false, false}, ind.states)
		assert.Equal(t, TokenPotable, disp.screens[0].Status)
	}
}

func TestCompose(t *testing.T) {
	s := Compose(sample.Reading{Chlorine: 1.26, Turbidity: 3.6, Conductivity: 449.5, PH: 7.14}, classify.Suspect)

	assert.Equal(t, []string{
		"Chlorine: 1.3 mg/L",
		"Turbidity: 4 NTU",
		"Conduct.: 450 uS/cm",
		"pH: 7.1",
	}, s.Lines)
	assert.Equal(t, TokenSuspect, s.Status)
	assert.True(t, s.Highlight)
}

func TestRender_Idempotent(t *testing.T) {
	ind := &fakeIndicators{}
	disp := &fakeDisplay{}
	d := NewDriver(ind, disp)
	r := sample.Reading{Chlorine: 1, PH: 7}

	require.NoError(t, d.Render(r, classify.NonPotable))
	first := ind.states
	require.NoError(t, d.Render(r, classify.NonPotable))

	assert.Equal(t, first, ind.states)
	assert.Equal(t, 2, ind.calls)
	require.Len(t, disp.screens, 2)
	assert.Equal(t, disp.screens[0], disp.screens[1])
}

func TestRender_WritesDisplayOnIndicatorError(t *testing.T) {
	ind := &fakeIndicators{err: errors.New("port closed")}
	disp := &fakeDisplay{}
	d := NewDriver(ind, disp)

	err := d.Render(sample.Reading{}, classify.Potable)
	assert.Error(t, err)
	assert.Len(t, disp.screens, 1)
}

func TestStart_Splash(t *testing.T) {
	ind := &fakeIndicators{states: [3]bool{true, false, true}}
	disp := &fakeDisplay{}
	d := NewDriver(ind, disp)

	d.Start()

	assert.False(t, d.Degraded())
	require.Len(t, disp.screens, 1)
	assert.Equal(t, SplashScreen(), disp.screens[0])
	assert.Equal(t, [3]bool{}, ind.states)
}

func TestStart_DegradedDisplay(t *testing.T) {
	ind := &fakeIndicators{}
	disp := &fakeDisplay{initErr: errors.New("no display at 0x3C")}
	d := NewDriver(ind, disp)

	d.Start()
	assert.True(t, d.Degraded())
	assert.Empty(t, disp.screens)

	// Lamps keep working.
	require.NoError(t, d.Render(sample.Reading{}, classify.Suspect))
	assert.Equal(t, [3]bool{false, true, false}, ind.states)
}

func TestTextDisplay(t *testing.T) {
	var buf bytes.Buffer
	td := &TextDisplay{W: &buf}
	require.NoError(t, td.Init())

	require.NoError(t, td.Paint(Compose(sample.Reading{}, classify.Suspect)))
	out := buf.String()
	assert.Contains(t, out, "|Chlorine: 0.0 mg/L   |")
	assert.Contains(t, out, "|Status: [SUSPEITA]   |")

	assert.Error(t, (&TextDisplay{}).Init())
}

func TestTeeIndicators(t *testing.T) {
	a := &fakeIndicators{}
	b := &fakeIndicators{err: errors.New("boom")}
	tee := TeeIndicators{a, b}

	err := tee.SetIndicators(false, false, true)
	assert.Error(t, err)
	assert.Equal(t, [3]bool{false, false, true}, a.states)
	assert.Equal(t, [3]bool{false, false, true}, b.states)
}
