package wqm

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    RawSample
		wantErr bool
	}{
		{
			name: "valid line - button released",
			line: "1234567890123,820,4050,900,2100,0",
			want: RawSample{
				Timestamp:    time.Unix(0, 1234567890123*1000),
				Chlorine:     820,
				Turbidity:    4050,
				Conductivity: 900,
				PH:           2100,
			},
		},
		{
			name: "valid line - button pressed",
			line: "1234567890123,0,0,0,0,1",
			want: RawSample{
				Timestamp: time.Unix(0, 1234567890123*1000),
				Button:    true,
			},
		},
		{
			name: "valid line - max ADC values",
			line: "1234567890123,4095,4095,4095,4095,0",
			want: RawSample{
				Timestamp:    time.Unix(0, 1234567890123*1000),
				Chlorine:     4095,
				Turbidity:    4095,
				Conductivity: 4095,
				PH:           4095,
			},
		},
		{
			name:    "invalid - wrong number of fields",
			line:    "1234567890123,820,4050,900,2100",
			wantErr: true,
		},
		{
			name:    "invalid - too many fields",
			line:    "1234567890123,820,4050,900,2100,0,extra",
			wantErr: true,
		},
		{
			name:    "invalid - non-numeric timestamp",
			line:    "abc,820,4050,900,2100,0",
			wantErr: true,
		},
		{
			name:    "invalid - non-numeric chlorine",
			line:    "1234567890123,abc,4050,900,2100,0",
			wantErr: true,
		},
		{
			name:    "invalid - ph out of range",
			line:    "1234567890123,820,4050,900,5000,0",
			wantErr: true,
		},
		{
			name:    "invalid - negative turbidity",
			line:    "1234567890123,820,-1,900,2100,0",
			wantErr: true,
		},
		{
			name:    "invalid - button state",
			line:    "1234567890123,820,4050,900,2100,2",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Timestamp.UnixNano(), got.Timestamp.UnixNano())
			assert.Equal(t, tt.want.Chlorine, got.Chlorine)
			assert.Equal(t, tt.want.Turbidity, got.Turbidity)
			assert.Equal(t, tt.want.Conductivity, got.Conductivity)
			assert.Equal(t, tt.want.PH, got.PH)
			assert.Equal(t, tt.want.Button, got.Button)
		})
	}
}

func TestNew(t *testing.T) {
	dev := New("/dev/ttyACM0", 115200, 100)
	assert.NotNil(t, dev)
	assert.Equal(t, "/dev/ttyACM0", dev.port)
	assert.Equal(t, 115200, dev.baudRate)
	assert.Equal(t, 100, dev.bufSize)
	assert.NotNil(t, dev.samples)
	assert.False(t, dev.IsConnected())
}

func TestNew_Defaults(t *testing.T) {
	dev := New("/dev/ttyACM0", 0, 0)
	assert.Equal(t, DefaultBaudRate, dev.baudRate)
	assert.Equal(t, DefaultBufferSize, dev.bufSize)
}

func TestSerial_SetIndicatorsNotConnected(t *testing.T) {
	dev := New("/dev/ttyACM0", 0, 0)
	assert.Error(t, dev.SetIndicators(true, false, false))
	assert.NoError(t, dev.Close())
}

func TestSerial_StreamEnd(t *testing.T) {
	d := New("test", 0, 0)
	d.connected = true

	d.readSamples(strings.NewReader("garbage\n\n1000,820,4050,900,2100,1\n"))

	s, ok := <-d.Samples()
	require.True(t, ok)
	assert.Equal(t, uint16(820), s.Chlorine)
	assert.True(t, s.Button)

	_, ok = <-d.Samples()
	assert.False(t, ok, "channel closes when the stream ends")

	d.connected = false
	d.closeSamples()
}

func TestIndicatorCommand(t *testing.T) {
	tests := []struct {
		name               string
		green, yellow, red bool
		want               string
	}{
		{"all off", false, false, false, "000\n"},
		{"green", true, false, false, "100\n"},
		{"yellow", false, true, false, "010\n"},
		{"red", false, false, true, "001\n"},
		{"all on", true, true, true, "111\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, indicatorCommand(tt.green, tt.yellow, tt.red))
		})
	}
}
