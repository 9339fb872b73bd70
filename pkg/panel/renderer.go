package panel

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/itohio/gowqm/pkg/output"
)

const (
	margin     = float32(16)
	lineHeight = float32(24)
	lampSize   = float32(40)
)

// panelRenderer renders the panel widget.
type panelRenderer struct {
	panel *Panel

	background *canvas.Rectangle
	lines      []*canvas.Text
	status     *canvas.Text
	lamps      [3]*canvas.Circle

	objects []fyne.CanvasObject
}

// MinSize returns the minimum size of the widget.
func (r *panelRenderer) MinSize() fyne.Size {
	return fyne.NewSize(320, 280)
}

// Layout arranges the screen lines, status token and lamps top to bottom.
func (r *panelRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)

	y := margin
	for _, line := range r.lines {
		line.Move(fyne.NewPos(margin, y))
		line.Resize(fyne.NewSize(size.Width-2*margin, lineHeight))
		y += lineHeight
	}

	y += margin / 2
	r.status.Move(fyne.NewPos(margin, y))
	r.status.Resize(fyne.NewSize(size.Width-2*margin, 2*lineHeight))
	y += 2*lineHeight + margin

	step := size.Width / float32(len(r.lamps)+1)
	for i, lamp := range r.lamps {
		x := step*float32(i+1) - lampSize/2
		lamp.Move(fyne.NewPos(x, y))
		lamp.Resize(fyne.NewSize(lampSize, lampSize))
	}
}

// Refresh updates the texts and lamp colors from the panel state.
func (r *panelRenderer) Refresh() {
	r.panel.mu.RLock()
	screen := r.panel.screen
	lamps := r.panel.lamps
	r.panel.mu.RUnlock()

	for len(r.lines) < len(screen.Lines) {
		t := canvas.NewText("", textColor)
		t.TextSize = 18
		t.TextStyle = fyne.TextStyle{Monospace: true}
		r.lines = append(r.lines, t)
	}
	for i, line := range r.lines {
		if i < len(screen.Lines) {
			line.Text = screen.Lines[i]
		} else {
			line.Text = ""
		}
	}

	r.status.Text = screen.Status
	r.status.Color = statusColor(screen)

	for i, lamp := range r.lamps {
		if lamps[i] {
			lamp.FillColor = lampColors[i]
		} else {
			lamp.FillColor = lampOff
		}
	}

	r.objects = r.objects[:0]
	r.objects = append(r.objects, r.background)
	for _, line := range r.lines {
		r.objects = append(r.objects, line)
	}
	r.objects = append(r.objects, r.status)
	for _, lamp := range r.lamps {
		r.objects = append(r.objects, lamp)
	}

	r.Layout(r.panel.Size())
	for _, o := range r.objects {
		o.Refresh()
	}
}

// statusColor highlights the status token when the screen asks for it.
func statusColor(s output.Screen) color.Color {
	if s.Highlight {
		return lampColors[2]
	}
	return textColor
}

// Objects returns all canvas objects.
func (r *panelRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *panelRenderer) Destroy() {}
