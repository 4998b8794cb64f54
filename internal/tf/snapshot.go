package tf

// Snapshot is an immutable view of a Tree at one point in ingestion. Frames
// that did not change between snapshots are shared by pointer. A Snapshot
// is safe for concurrent readers without locking.
type Snapshot struct {
	frames     frameSet
	generation uint64
	session    string
}

// Generation increases with every snapshot a tree publishes.
func (s *Snapshot) Generation() uint64 { return s.generation }

// SessionID identifies the tree session the snapshot was taken from.
func (s *Snapshot) SessionID() string { return s.session }

// Len returns the number of frames.
func (s *Snapshot) Len() int { return len(s.frames) }

// Frame returns the named frame, or nil.
func (s *Snapshot) Frame(name string) *Frame { return s.frames[CanonicalFrameID(name)] }

// FrameIDs returns all frame names, sorted.
func (s *Snapshot) FrameIDs() []string { return s.frames.ids() }

// RootFrames returns the frames with no parent at stamp.
func (s *Snapshot) RootFrames(stamp Time) []string { return s.frames.roots(stamp) }

// LookupTransform returns the pose of source expressed in target at stamp:
// the pose that maps source-frame points into the target frame. Failures
// are *LookupError values wrapping ErrFrameNotFound, ErrNoDataForFrame,
// ErrFramesNotConnected or ErrCycleDetected.
func (s *Snapshot) LookupTransform(stamp Time, target, source string) (Pose, error) {
	return s.frames.lookup(stamp, target, source)
}

// CanTransform reports whether LookupTransform would succeed.
func (s *Snapshot) CanTransform(stamp Time, target, source string) bool {
	_, err := s.LookupTransform(stamp, target, source)
	return err == nil
}

// Chain returns the parent chain of frame at stamp, frame first.
func (s *Snapshot) Chain(stamp Time, frame string) ([]string, error) {
	return s.frames.chainNames(stamp, frame)
}

// FrameInfo summarises one frame for listings.
type FrameInfo struct {
	ID       string `json:"id"`
	Parent   string `json:"parent,omitempty"` // parent of the newest sample
	Samples  int    `json:"samples"`
	Earliest Time   `json:"earliest"`
	Latest   Time   `json:"latest"`
}

// Describe lists every frame in name order.
func (s *Snapshot) Describe() []FrameInfo {
	ids := s.frames.ids()
	out := make([]FrameInfo, 0, len(ids))
	for _, id := range ids {
		f := s.frames[id]
		info := FrameInfo{ID: id, Samples: f.Len()}
		if first, ok := f.Earliest(); ok {
			info.Earliest = first.Stamp
		}
		if last, ok := f.Latest(); ok {
			info.Latest = last.Stamp
			info.Parent = last.Parent
		}
		out = append(out, info)
	}
	return out
}

// NewestStamp returns the latest sample stamp held by any frame, or Zero.
func (s *Snapshot) NewestStamp() Time {
	var newest Time
	for _, f := range s.frames {
		if last, ok := f.Latest(); ok && last.Stamp.After(newest) {
			newest = last.Stamp
		}
	}
	return newest
}
