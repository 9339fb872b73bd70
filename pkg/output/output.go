// Package output maps classification labels onto the indicator lamps and the
// status screen.
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/itohio/gowqm/pkg/classify"
	"github.com/itohio/gowqm/pkg/sample"
)

// Lamp identifies the single lit indicator.
type Lamp int

const (
	LampNone Lamp = iota
	LampGreen
	LampYellow
	LampRed
)

func (l Lamp) String() string {
	switch l {
	case LampGreen:
		return "green"
	case LampYellow:
		return "yellow"
	case LampRed:
		return "red"
	default:
		return "none"
	}
}

// States returns the green, yellow and red output levels for the lamp.
func (l Lamp) States() (green, yellow, red bool) {
	return l == LampGreen, l == LampYellow, l == LampRed
}

// Status tokens shown on the screen.
const (
	TokenPotable          = "POTAVEL"
	TokenSuspect          = "SUSPEITA"
	TokenNonPotable       = "NAO POT."
	TokenNoNetwork        = "SEM WIFI"
	TokenTransportFailure = "FALHA COM."
	TokenHTTPError        = "ERRO HTTP"
	TokenWaiting          = "AGUARDANDO"
)

// LampFor maps a label to its lamp; only the three verdicts light one.
func LampFor(label classify.Label) Lamp {
	switch label {
	case classify.Potable:
		return LampGreen
	case classify.Suspect:
		return LampYellow
	case classify.NonPotable:
		return LampRed
	default:
		return LampNone
	}
}

// TokenFor returns the status token and whether it is shown highlighted.
func TokenFor(label classify.Label) (token string, highlight bool) {
	switch label {
	case classify.Potable:
		return TokenPotable, true
	case classify.Suspect:
		return TokenSuspect, true
	case classify.NonPotable:
		return TokenNonPotable, true
	case classify.NoNetwork:
		return TokenNoNetwork, false
	case classify.TransportFailure:
		return TokenTransportFailure, false
	case classify.HTTPStatusError:
		return TokenHTTPError, false
	default:
		return TokenWaiting, false
	}
}

// Screen is the full content of the status surface.
type Screen struct {
	Lines     []string
	Status    string
	Highlight bool
}

// Compose builds the status screen for a reading and label.
func Compose(r sample.Reading, label classify.Label) Screen {
	token, highlight := TokenFor(label)
	return Screen{
		Lines: []string{
			fmt.Sprintf("Chlorine: %.1f mg/L", r.Chlorine),
			fmt.Sprintf("Turbidity: %.0f NTU", r.Turbidity),
			fmt.Sprintf("Conduct.: %.0f uS/cm", r.Conductivity),
			fmt.Sprintf("pH: %.1f", r.PH),
		},
		Status:    token,
		Highlight: highlight,
	}
}

// SplashScreen is shown once the display is initialized.
func SplashScreen() Screen {
	return Screen{
		Lines:  []string{"Water Monitor", "Press the button", "to analyze..."},
		Status: TokenWaiting,
	}
}

// Indicators drives the three lamps.
type Indicators interface {
	SetIndicators(green, yellow, red bool) error
}

// Display paints the status surface.
type Display interface {
	Init() error
	Paint(Screen) error
}

// Driver renders labels on indicators and a display.
type Driver struct {
	mu         sync.Mutex
	indicators Indicators
	display    Display
	degraded   bool
}

// NewDriver creates a Driver. Either output may be nil.
func NewDriver(indicators Indicators, display Display) *Driver {
	return &Driver{indicators: indicators, display: display}
}

// Start initializes the display and paints the splash screen. When the
// display cannot be initialized the driver keeps running on a LogDisplay.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.display == nil {
		d.display = LogDisplay{}
	}
	if err := d.display.Init(); err != nil {
		log.Printf("Display init failed, continuing on log display: %v", err)
		d.display = LogDisplay{}
		d.degraded = true
	}

	if err := d.display.Paint(SplashScreen()); err != nil {
		log.Printf("Failed to show splash screen: %v", err)
	}
	if d.indicators != nil {
		if err := d.indicators.SetIndicators(false, false, false); err != nil {
			log.Printf("Failed to reset indicators: %v", err)
		}
	}
}

// Degraded reports whether the display fell back to logging.
func (d *Driver) Degraded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.degraded
}

// Render overwrites all lamps and the whole screen for the given state.
// Both outputs are always written; the first error is returned.
func (d *Driver) Render(r sample.Reading, label classify.Label) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error

	if d.indicators != nil {
		if err := d.indicators.SetIndicators(LampFor(label).States()); err != nil {
			firstErr = fmt.Errorf("failed to set indicators: %w", err)
		}
	}

	if d.display != nil {
		if err := d.display.Paint(Compose(r, label)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to update display: %w", err)
		}
	}

	return firstErr
}
