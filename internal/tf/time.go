package tf

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const nanosPerSecond = int64(time.Second)

// Time is a message timestamp in whole seconds plus nanoseconds.
// Stamps are ordered with integer arithmetic so repeated lookups at the same
// stamp never drift.
type Time struct {
	Sec  int64 `json:"sec" yaml:"sec"`
	Nsec int64 `json:"nsec" yaml:"nsec"`
}

// Zero is the stamp used for static links.
var Zero = Time{}

// NewTime returns a normalized Time.
func NewTime(sec, nsec int64) Time {
	return Time{Sec: sec, Nsec: nsec}.Normalize()
}

// FromNanos converts a unix-nanosecond count into a Time.
func FromNanos(ns int64) Time {
	return Time{Sec: ns / nanosPerSecond, Nsec: ns % nanosPerSecond}.Normalize()
}

// FromStdTime converts a time.Time into a Time.
func FromStdTime(t time.Time) Time {
	return Time{Sec: t.Unix(), Nsec: int64(t.Nanosecond())}
}

// Normalize carries nanosecond overflow into seconds so that
// 0 <= Nsec < 1e9.
func (t Time) Normalize() Time {
	if t.Nsec >= nanosPerSecond || t.Nsec <= -nanosPerSecond {
		t.Sec += t.Nsec / nanosPerSecond
		t.Nsec %= nanosPerSecond
	}
	if t.Nsec < 0 {
		t.Sec--
		t.Nsec += nanosPerSecond
	}
	return t
}

// Nanos returns the stamp as a single nanosecond count.
func (t Time) Nanos() int64 {
	n := t.Normalize()
	return n.Sec*nanosPerSecond + n.Nsec
}

// Compare returns -1, 0 or +1 depending on whether t is before, equal to or
// after u.
func (t Time) Compare(u Time) int {
	a, b := t.Normalize(), u.Normalize()
	switch {
	case a.Sec < b.Sec:
		return -1
	case a.Sec > b.Sec:
		return 1
	case a.Nsec < b.Nsec:
		return -1
	case a.Nsec > b.Nsec:
		return 1
	}
	return 0
}

// Before reports whether t is strictly before u.
func (t Time) Before(u Time) bool { return t.Compare(u) < 0 }

// After reports whether t is strictly after u.
func (t Time) After(u Time) bool { return t.Compare(u) > 0 }

// Equal reports whether t and u denote the same instant.
func (t Time) Equal(u Time) bool { return t.Compare(u) == 0 }

// IsZero reports whether t is the zero stamp.
func (t Time) IsZero() bool { return t.Equal(Zero) }

// Sub returns t-u.
func (t Time) Sub(u Time) time.Duration {
	a, b := t.Normalize(), u.Normalize()
	return time.Duration((a.Sec-b.Sec)*nanosPerSecond + (a.Nsec - b.Nsec))
}

// Add returns t+d.
func (t Time) Add(d time.Duration) Time {
	return Time{Sec: t.Sec, Nsec: t.Nsec + int64(d)}.Normalize()
}

func (t Time) String() string {
	n := t.Normalize()
	return fmt.Sprintf("%d.%09d", n.Sec, n.Nsec)
}

// ParseTime parses "sec" or "sec.fraction" with up to nine fractional
// digits, the format String produces.
func ParseTime(s string) (Time, error) {
	whole, frac, hasFrac := strings.Cut(strings.TrimSpace(s), ".")
	neg := strings.HasPrefix(whole, "-")
	sec, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Time{}, fmt.Errorf("invalid stamp %q: %w", s, err)
	}
	if !hasFrac {
		return Time{Sec: sec}, nil
	}
	if frac == "" || len(frac) > 9 {
		return Time{}, fmt.Errorf("invalid stamp %q: fraction must have 1-9 digits", s)
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return Time{}, fmt.Errorf("invalid stamp %q: fraction must be digits", s)
		}
	}
	nsec, _ := strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
	if neg {
		nsec = -nsec
	}
	return NewTime(sec, nsec), nil
}
