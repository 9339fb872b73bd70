package classify

import (
	"fmt"
	"strings"
)

// Label is the potability verdict of a trigger cycle, or the local error
// that replaced it.
type Label int

const (
	// Standby is the initial label before any classification was obtained.
	Standby Label = iota
	Potable
	Suspect
	NonPotable
	// Unrecognized is a success response whose body is not a known verdict.
	Unrecognized
	NoNetwork
	TransportFailure
	HTTPStatusError
)

// Wire tokens exchanged with the classifier service.
const (
	TokenPotable    = "POTAVEL"
	TokenSuspect    = "SUSPEITA"
	TokenNonPotable = "NAO_POTAVEL"
)

var labelNames = [...]string{
	Standby:          "STANDBY",
	Potable:          TokenPotable,
	Suspect:          TokenSuspect,
	NonPotable:       TokenNonPotable,
	Unrecognized:     "UNRECOGNIZED",
	NoNetwork:        "NO_NETWORK",
	TransportFailure: "TRANSPORT_FAILURE",
	HTTPStatusError:  "HTTP_STATUS_ERROR",
}

// Labels lists every label.
func Labels() []Label {
	return []Label{Standby, Potable, Suspect, NonPotable, Unrecognized, NoNetwork, TransportFailure, HTTPStatusError}
}

// String returns the canonical name of the label.
func (l Label) String() string {
	if l < 0 || int(l) >= len(labelNames) {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return labelNames[l]
}

// IsVerdict reports whether the label is one of the three classifier verdicts.
func (l Label) IsVerdict() bool {
	return l == Potable || l == Suspect || l == NonPotable
}

// IsError reports whether the label substitutes a transport error.
func (l Label) IsError() bool {
	return l == NoNetwork || l == TransportFailure || l == HTTPStatusError
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(text []byte) error {
	for _, c := range Labels() {
		if strings.EqualFold(string(text), c.String()) {
			*l = c
			return nil
		}
	}
	return fmt.Errorf("unknown label %q", text)
}

// ParseLabel maps a response body onto a verdict. The comparison is an exact,
// case-insensitive match; any other body yields Unrecognized.
func ParseLabel(body string) Label {
	switch {
	case strings.EqualFold(body, TokenPotable):
		return Potable
	case strings.EqualFold(body, TokenSuspect):
		return Suspect
	case strings.EqualFold(body, TokenNonPotable):
		return NonPotable
	default:
		return Unrecognized
	}
}
