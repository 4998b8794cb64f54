package tf

import "sort"

// Frame is a named node in the transform graph holding its time series of
// samples, ordered by stamp with at most one sample per stamp.
//
// A *Frame obtained from a Tree or Snapshot is read-only. The Tree copies a
// frame before its first write after a snapshot, so pointers held by readers
// never change underneath them.
type Frame struct {
	id      string
	samples []Sample
	gen     uint64 // tree generation that owns this copy
}

func newFrame(id string, gen uint64) *Frame {
	return &Frame{id: id, gen: gen}
}

// clone returns a private copy of f owned by generation gen. Spare capacity
// is reserved for the append that usually follows.
func (f *Frame) clone(gen uint64) *Frame {
	samples := make([]Sample, len(f.samples), len(f.samples)+1)
	copy(samples, f.samples)
	return &Frame{id: f.id, samples: samples, gen: gen}
}

// ID returns the frame name.
func (f *Frame) ID() string { return f.id }

// Len returns the number of recorded samples.
func (f *Frame) Len() int { return len(f.samples) }

// Samples returns a copy of the sample series, oldest first.
func (f *Frame) Samples() []Sample {
	out := make([]Sample, len(f.samples))
	copy(out, f.samples)
	return out
}

// Earliest returns the oldest sample.
func (f *Frame) Earliest() (Sample, bool) {
	if len(f.samples) == 0 {
		return Sample{}, false
	}
	return f.samples[0], true
}

// Latest returns the newest sample.
func (f *Frame) Latest() (Sample, bool) {
	if len(f.samples) == 0 {
		return Sample{}, false
	}
	return f.samples[len(f.samples)-1], true
}

// ParentAt returns the parent frame active at stamp t, using the same
// bracketing rule as lookups.
func (f *Frame) ParentAt(t Time) (string, bool) {
	parent, _, ok := f.poseAt(t)
	return parent, ok
}

// search returns the index of the first sample with stamp >= t.
func (f *Frame) search(t Time) int {
	return sort.Search(len(f.samples), func(i int) bool {
		return !f.samples[i].Stamp.Before(t)
	})
}

// insert records s, replacing any sample at the same stamp. It reports
// whether the series changed.
func (f *Frame) insert(s Sample) bool {
	n := len(f.samples)
	if n == 0 || f.samples[n-1].Stamp.Before(s.Stamp) {
		f.samples = append(f.samples, s)
		return true
	}
	i := f.search(s.Stamp)
	if i < n && f.samples[i].Stamp.Equal(s.Stamp) {
		if f.samples[i].equal(s) {
			return false
		}
		f.samples[i] = s
		return true
	}
	f.samples = append(f.samples, Sample{})
	copy(f.samples[i+1:], f.samples[i:])
	f.samples[i] = s
	return true
}

// trimBefore drops samples older than t, keeping the newest sample at or
// before t so a lookup at the edge of the window still resolves. It returns
// the number of samples removed.
func (f *Frame) trimBefore(t Time) int {
	drop := f.trimCount(t)
	if drop == 0 {
		return 0
	}
	f.samples = append(f.samples[:0], f.samples[drop:]...)
	return drop
}

func (f *Frame) trimCount(t Time) int {
	i := f.search(t)
	if i < len(f.samples) && f.samples[i].Stamp.Equal(t) {
		return i
	}
	if i == 0 {
		return 0
	}
	return i - 1
}

// capTo keeps only the newest max samples.
func (f *Frame) capTo(max int) int {
	if max <= 0 || len(f.samples) <= max {
		return 0
	}
	drop := len(f.samples) - max
	f.samples = append(f.samples[:0], f.samples[drop:]...)
	return drop
}
