package tf

import (
	"github.com/google/uuid"
)

// State is the lifecycle state of a Tree.
type State int

const (
	// StateEmpty holds no frames: freshly built or just reset.
	StateEmpty State = iota
	// StateAccumulating holds at least one frame.
	StateAccumulating
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	default:
		return "unknown"
	}
}

// Option configures a Tree.
type Option func(*Tree)

// WithMaxSamplesPerFrame bounds each frame's series to the newest n
// samples. Zero leaves series unbounded.
func WithMaxSamplesPerFrame(n int) Option {
	return func(t *Tree) {
		if n > 0 {
			t.maxSamples = n
		}
	}
}

// Tree is the live, mutable transform graph. It has one mutator; readers
// use Snapshot. A Tree is not safe for concurrent use.
type Tree struct {
	frames     frameSet
	gen        uint64 // bumped every time a snapshot is published
	dirty      bool
	last       *Snapshot
	session    string
	maxSamples int
}

// NewTree returns an empty tree with a fresh session id.
func NewTree(opts ...Option) *Tree {
	t := &Tree{
		frames:  make(frameSet),
		session: uuid.NewString(),
		dirty:   true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SessionID identifies the tree's current session. Reset starts a new one.
func (t *Tree) SessionID() string { return t.session }

// State reports whether the tree holds any frames.
func (t *Tree) State() State {
	if len(t.frames) == 0 {
		return StateEmpty
	}
	return StateAccumulating
}

// Dirty reports whether the tree changed since the last Snapshot call.
func (t *Tree) Dirty() bool { return t.dirty }

// Len returns the number of frames.
func (t *Tree) Len() int { return len(t.frames) }

// Frame returns the named frame, or nil.
func (t *Tree) Frame(name string) *Frame { return t.frames[CanonicalFrameID(name)] }

// FrameIDs returns all frame names, sorted.
func (t *Tree) FrameIDs() []string { return t.frames.ids() }

// GetOrCreateFrame returns the frame called name, creating an empty one if
// needed. Repeated calls return the same frame until the frame is next
// written after a snapshot.
func (t *Tree) GetOrCreateFrame(name string) *Frame {
	name = CanonicalFrameID(name)
	if f, ok := t.frames[name]; ok {
		return f
	}
	f := newFrame(name, t.gen)
	t.frames[name] = f
	t.dirty = true
	return f
}

// writable returns a frame the current generation may modify, copying it
// first if a published snapshot still shares it.
func (t *Tree) writable(name string) *Frame {
	f := t.GetOrCreateFrame(name)
	if f.gen != t.gen {
		f = f.clone(t.gen)
		t.frames[name] = f
	}
	return f
}

// AddTransform records the pose of child relative to parent at stamp. A
// sample already at that stamp is replaced. Both frames are created if
// needed. AddTransform never fails; non-finite poses are stored as given.
func (t *Tree) AddTransform(child, parent string, stamp Time, pose Pose) {
	child = CanonicalFrameID(child)
	parent = CanonicalFrameID(parent)
	t.GetOrCreateFrame(parent)

	s := Sample{Stamp: stamp.Normalize(), Parent: parent, Pose: pose}
	if f, ok := t.frames[child]; ok && f.gen != t.gen && !f.wouldChange(s) {
		return
	}
	f := t.writable(child)
	if f.insert(s) {
		f.capTo(t.maxSamples)
		t.dirty = true
	}
}

// wouldChange reports whether inserting s would modify the series, so an
// unchanged shared frame is not copied.
func (f *Frame) wouldChange(s Sample) bool {
	i := f.search(s.Stamp)
	return i >= len(f.samples) || !f.samples[i].equal(s)
}

// AddTransformMessage records a decoded TransformStamped message.
func (t *Tree) AddTransformMessage(msg TransformStamped) {
	t.AddTransform(msg.ChildFrameID, msg.Header.FrameID, msg.Header.Stamp, msg.Transform.Pose())
}

// TrimBefore drops samples older than stamp from every frame, keeping the
// newest sample at or before stamp. It returns the number of samples
// removed.
func (t *Tree) TrimBefore(stamp Time) int {
	removed := 0
	for _, id := range t.frames.ids() {
		removed += t.TrimFrameBefore(id, stamp)
	}
	if removed > 0 {
		diagf("trimmed %d samples older than %s", removed, stamp)
	}
	return removed
}

// TrimFrameBefore is TrimBefore for a single frame.
func (t *Tree) TrimFrameBefore(name string, stamp Time) int {
	name = CanonicalFrameID(name)
	f, ok := t.frames[name]
	if !ok || f.trimCount(stamp) == 0 {
		return 0
	}
	n := t.writable(name).trimBefore(stamp)
	if n > 0 {
		t.dirty = true
	}
	return n
}

// Reset discards every frame and starts a new session. Snapshots already
// handed out stay valid.
func (t *Tree) Reset() {
	diagf("reset session %s (frames=%d)", t.session, len(t.frames))
	t.frames = make(frameSet)
	t.session = uuid.NewString()
	t.gen++
	t.dirty = true
}

// Snapshot returns an immutable view of the tree. When nothing changed
// since the previous call the previous snapshot is returned, so callers can
// compare snapshots by pointer to skip redundant work.
func (t *Tree) Snapshot() *Snapshot {
	if !t.dirty && t.last != nil {
		return t.last
	}
	frames := make(frameSet, len(t.frames))
	for id, f := range t.frames {
		frames[id] = f
	}
	t.last = &Snapshot{frames: frames, generation: t.gen, session: t.session}
	t.gen++
	t.dirty = false
	tracef("snapshot gen=%d session=%s frames=%d", t.last.generation, t.session, len(frames))
	return t.last
}

// LookupTransform resolves the pose of source expressed in target at stamp
// against the live tree. Renderers should query a Snapshot instead.
func (t *Tree) LookupTransform(stamp Time, target, source string) (Pose, error) {
	return t.frames.lookup(stamp, target, source)
}
