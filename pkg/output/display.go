package output

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

// TextDisplay paints screens as framed text on a writer.
type TextDisplay struct {
	W     io.Writer
	Width int
}

// Init implements Display.
func (t *TextDisplay) Init() error {
	if t.W == nil {
		return errors.New("no writer")
	}
	if t.Width <= 0 {
		t.Width = 21 // 128 px / 6 px per glyph
	}
	return nil
}

// Paint implements Display.
func (t *TextDisplay) Paint(s Screen) error {
	border := "+" + strings.Repeat("-", t.Width) + "+\n"

	var b strings.Builder
	b.WriteString(border)
	for _, line := range s.Lines {
		fmt.Fprintf(&b, "|%-*s|\n", t.Width, truncate(line, t.Width))
	}
	status := s.Status
	if s.Highlight {
		status = "[" + status + "]"
	}
	fmt.Fprintf(&b, "|%-*s|\n", t.Width, truncate("Status: "+status, t.Width))
	b.WriteString(border)

	_, err := io.WriteString(t.W, b.String())
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// LogDisplay writes screens to the standard logger.
type LogDisplay struct{}

// Init implements Display.
func (LogDisplay) Init() error { return nil }

// Paint implements Display.
func (LogDisplay) Paint(s Screen) error {
	log.Printf("Screen: %s | Status: %s", strings.Join(s.Lines, " | "), s.Status)
	return nil
}

// TeeIndicators fans lamp updates out to several outputs.
type TeeIndicators []Indicators

// SetIndicators implements Indicators; every output is written and the
// errors are joined.
func (t TeeIndicators) SetIndicators(green, yellow, red bool) error {
	var errs []error
	for _, ind := range t {
		if err := ind.SetIndicators(green, yellow, red); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
