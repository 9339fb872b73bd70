package sample

import (
	"fmt"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/gowqm/pkg/config"
	"github.com/itohio/gowqm/pkg/wqm"
)

// Reading represents the calibrated physical values of one trigger cycle.
type Reading struct {
	Timestamp    time.Time
	Chlorine     float32 // mg/L
	Turbidity    float32 // NTU
	Conductivity float32 // uS/cm
	PH           float32
}

// String formats the reading for logs.
func (r Reading) String() string {
	return fmt.Sprintf("chlorine=%.2f turbidity=%.2f conductivity=%.2f ph=%.2f",
		r.Chlorine, r.Turbidity, r.Conductivity, r.PH)
}

// Source provides the most recent raw sample of the sensor board.
type Source interface {
	Latest() (wqm.RawSample, bool)
}

// Reader converts the latest raw sample of a Source into a Reading.
type Reader struct {
	src Source
	cal config.CalibrationConfig
}

// NewReader creates a Reader using the given calibration.
func NewReader(src Source, cal config.CalibrationConfig) *Reader {
	return &Reader{src: src, cal: cal}
}

// Read samples the four channels. Before the first sample arrives all raw
// values read as zero, like an unconnected ADC pin.
func (r *Reader) Read() Reading {
	raw, ok := r.src.Latest()
	if !ok {
		raw.Timestamp = time.Now()
	}
	return Convert(raw, r.cal)
}

// Convert converts a RawSample to a Reading using the calibration.
func Convert(raw wqm.RawSample, cal config.CalibrationConfig) Reading {
	return Reading{
		Timestamp:    raw.Timestamp,
		Chlorine:     Channel(raw.Chlorine, cal.Chlorine),
		Turbidity:    Channel(raw.Turbidity, cal.Turbidity),
		Conductivity: Channel(raw.Conductivity, cal.Conductivity),
		PH:           Channel(raw.PH, cal.PH),
	}
}

// Channel applies the affine transform of one channel.
func Channel(raw uint16, ch config.ChannelConfig) float32 {
	mapped := mapRange(int(raw), ch.RawMin, ch.RawMax, ch.OutMin, ch.OutMax)
	return float32(mapped)/ch.Divisor + ch.Offset
}

// Range returns the documented output interval of a channel.
func Range(ch config.ChannelConfig) (lo, hi float32) {
	a := float32(ch.OutMin)/ch.Divisor + ch.Offset
	b := float32(ch.OutMax)/ch.Divisor + ch.Offset
	return math32.Min(a, b), math32.Max(a, b)
}

// Inverted reports whether the channel decreases as the raw value grows.
func Inverted(ch config.ChannelConfig) bool {
	return math32.Signbit(float32(ch.OutMax-ch.OutMin)) != math32.Signbit(float32(ch.RawMax-ch.RawMin))
}

// mapRange re-maps x from [inMin, inMax] onto [outMin, outMax] using integer
// arithmetic; the quotient truncates toward zero. Values outside the input
// range are extrapolated, not clamped.
func mapRange(x, inMin, inMax, outMin, outMax int) int {
	if inMax == inMin {
		return outMin
	}
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}
