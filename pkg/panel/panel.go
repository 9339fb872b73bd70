// Package panel is a fyne widget showing the status screen and the three
// indicator lamps of the monitor.
package panel

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gowqm/pkg/output"
)

var (
	_ fyne.Widget       = (*Panel)(nil)
	_ output.Display    = (*Panel)(nil)
	_ output.Indicators = (*Panel)(nil)
)

var (
	background = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	textColor  = color.RGBA{R: 230, G: 230, B: 230, A: 255}
	lampOff    = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	lampColors = [3]color.Color{
		color.RGBA{R: 40, G: 200, B: 60, A: 255},  // green
		color.RGBA{R: 240, G: 200, B: 30, A: 255}, // yellow
		color.RGBA{R: 220, G: 40, B: 40, A: 255},  // red
	}
)

// Panel renders a Screen and the lamp states.
type Panel struct {
	widget.BaseWidget

	mu     sync.RWMutex
	screen output.Screen
	lamps  [3]bool
}

// New creates a Panel showing the splash screen.
func New() *Panel {
	p := &Panel{screen: output.SplashScreen()}
	p.ExtendBaseWidget(p)
	return p
}

// Init implements output.Display.
func (p *Panel) Init() error {
	return nil
}

// Paint implements output.Display. It may be called from any goroutine.
func (p *Panel) Paint(s output.Screen) error {
	p.mu.Lock()
	p.screen = s
	p.mu.Unlock()

	fyne.Do(p.Refresh)
	return nil
}

// SetIndicators implements output.Indicators. It may be called from any goroutine.
func (p *Panel) SetIndicators(green, yellow, red bool) error {
	p.mu.Lock()
	p.lamps = [3]bool{green, yellow, red}
	p.mu.Unlock()

	fyne.Do(p.Refresh)
	return nil
}

// Screen returns the screen currently shown.
func (p *Panel) Screen() output.Screen {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.screen
}

// Lamps returns the lamp states (green, yellow, red).
func (p *Panel) Lamps() [3]bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lamps
}

// CreateRenderer creates the widget renderer.
func (p *Panel) CreateRenderer() fyne.WidgetRenderer {
	r := &panelRenderer{
		panel:      p,
		background: canvas.NewRectangle(background),
		status:     canvas.NewText("", textColor),
	}
	r.status.TextSize = 28
	r.status.TextStyle = fyne.TextStyle{Bold: true}
	r.status.Alignment = fyne.TextAlignCenter

	for i := range r.lamps {
		r.lamps[i] = canvas.NewCircle(lampOff)
		r.lamps[i].StrokeColor = textColor
		r.lamps[i].StrokeWidth = 1
	}

	r.Refresh()
	return r
}
