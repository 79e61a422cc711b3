package geo

import (
	"errors"
	"fmt"
	"strings"
)

// PositionErrorKind classifies why a position could not be obtained.
type PositionErrorKind string

const (
	ErrKindPermissionDenied    PositionErrorKind = "permission_denied"
	ErrKindPositionUnavailable PositionErrorKind = "position_unavailable"
	ErrKindTimeout             PositionErrorKind = "timeout"
	ErrKindUnsupported         PositionErrorKind = "unsupported"
)

var (
	// ErrGeocodeFailed wraps any reverse lookup or search failure.
	ErrGeocodeFailed = errors.New("geocoding lookup failed")
	// ErrNoResults is returned when the geocoder has no match for the input.
	ErrNoResults = errors.New("geocoding returned no results")
)

// PositioningError is the only error Acquire returns for positioning problems.
type PositioningError struct {
	Kind PositionErrorKind
	Err  error
}

// NewPositioningError builds a classified error. err may be nil.
func NewPositioningError(kind PositionErrorKind, err error) *PositioningError {
	return &PositioningError{Kind: kind, Err: err}
}

func (e *PositioningError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("positioning failed: %s", e.Kind)
	}
	return fmt.Sprintf("positioning failed: %s: %v", e.Kind, e.Err)
}

func (e *PositioningError) Unwrap() error {
	return e.Err
}

// Message is the remediation text shown to the viewer for this kind.
func (e *PositioningError) Message() string {
	switch e.Kind {
	case ErrKindPermissionDenied:
		return "Location access denied. Please enable location permissions and try again."
	case ErrKindPositionUnavailable:
		return "Location information unavailable. Please try again."
	case ErrKindTimeout:
		return "Location request timed out. Please try again."
	case ErrKindUnsupported:
		return "Location is not supported on this device."
	default:
		return "Location access failed. Please try again."
	}
}

// AsPositioningError extracts a *PositioningError from err's chain.
func AsPositioningError(err error) (*PositioningError, bool) {
	var pe *PositioningError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// ParsePositionErrorKind maps a device-reported error to a kind. It accepts the
// kind names and the numeric codes browsers use (1 denied, 2 unavailable, 3 timeout).
func ParsePositionErrorKind(s string) (PositionErrorKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", string(ErrKindPermissionDenied), "permission-denied", "denied":
		return ErrKindPermissionDenied, true
	case "2", string(ErrKindPositionUnavailable), "unavailable":
		return ErrKindPositionUnavailable, true
	case "3", string(ErrKindTimeout):
		return ErrKindTimeout, true
	case string(ErrKindUnsupported), "not_supported":
		return ErrKindUnsupported, true
	}
	return "", false
}
