package classify

import (
	"errors"
	"fmt"
)

// ErrNoNetwork is returned when the network association is down.
var ErrNoNetwork = errors.New("network not associated")

// TransportError means no response was received at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("classifier unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError means the classifier answered with a non-success status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("classifier returned status %d", e.Code)
	}
	return fmt.Sprintf("classifier returned status %d: %s", e.Code, e.Body)
}

// LabelForError maps a Classify error onto its substitute label.
func LabelForError(err error) Label {
	var statusErr *StatusError
	switch {
	case err == nil:
		return Standby
	case errors.Is(err, ErrNoNetwork):
		return NoNetwork
	case errors.As(err, &statusErr):
		return HTTPStatusError
	default:
		return TransportFailure
	}
}
