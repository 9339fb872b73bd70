// Package rules scores a reading against drinking-water ranges.
package rules

import (
	"github.com/itohio/gowqm/pkg/classify"
	"github.com/itohio/gowqm/pkg/sample"
)

// Score thresholds.
const (
	PotableScore = 5
	SuspectScore = 2
)

// Score sums the per-parameter points of a reading.
func Score(r sample.Reading) int {
	return PH(r.PH) + Turbidity(r.Turbidity) + Chlorine(r.Chlorine) + Conductivity(r.Conductivity)
}

// Classify maps the score of a reading onto a verdict.
func Classify(r sample.Reading) classify.Label {
	switch s := Score(r); {
	case s >= PotableScore:
		return classify.Potable
	case s >= SuspectScore:
		return classify.Suspect
	default:
		return classify.NonPotable
	}
}

// PH scores the pH value. 6.5..8.5 is ideal, 6.0..9.0 acceptable.
func PH(v float32) int {
	switch {
	case v >= 6.5 && v <= 8.5:
		return 2
	case (v >= 6.0 && v < 6.5) || (v > 8.5 && v <= 9.0):
		return 1
	default:
		return -1
	}
}

// Turbidity scores turbidity in NTU.
func Turbidity(v float32) int {
	switch {
	case v < 5:
		return 2
	case v < 25:
		return 1
	case v < 100:
		return 0
	default:
		return -2
	}
}

// Chlorine scores residual chlorine in mg/L. 0.2..2.0 is ideal, 0.1..4.0 acceptable.
func Chlorine(v float32) int {
	switch {
	case v >= 0.2 && v <= 2.0:
		return 2
	case (v >= 0.1 && v < 0.2) || (v > 2.0 && v <= 4.0):
		return 1
	default:
		return -1
	}
}

// Conductivity scores conductivity in uS/cm.
func Conductivity(v float32) int {
	switch {
	case v < 50:
		return 0
	case v < 1000:
		return 1
	case v < 2500:
		return 0
	default:
		return -1
	}
}

// Plausible reports whether every value lies inside the physical range of
// the sensor channels. Implausible readings are still classified.
func Plausible(r sample.Reading) bool {
	return r.PH >= 0 && r.PH <= 14 &&
		r.Turbidity >= -10 && r.Turbidity <= 1000 &&
		r.Chlorine >= 0 && r.Chlorine <= 10 &&
		r.Conductivity >= 0 && r.Conductivity <= 5000
}
