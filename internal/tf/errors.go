package tf

import (
	"errors"
	"fmt"
)

// Lookup failure kinds. Every LookupError wraps exactly one of these, so
// callers can branch with errors.Is.
var (
	ErrFrameNotFound      = errors.New("frame not found")
	ErrNoDataForFrame     = errors.New("frame has no data")
	ErrFramesNotConnected = errors.New("frames not connected")
	ErrCycleDetected      = errors.New("cycle detected in frame graph")
)

// LookupError describes why a lookup could not produce a pose.
type LookupError struct {
	Kind   error
	Frame  string // frame the failure was detected at, if any
	Target string
	Source string
	Stamp  Time
}

func (e *LookupError) Error() string {
	if e.Frame != "" {
		return fmt.Sprintf("lookup %s->%s at %s: %v: %q", e.Source, e.Target, e.Stamp, e.Kind, e.Frame)
	}
	return fmt.Sprintf("lookup %s->%s at %s: %v", e.Source, e.Target, e.Stamp, e.Kind)
}

func (e *LookupError) Unwrap() error { return e.Kind }
