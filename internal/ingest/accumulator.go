package ingest

import (
	"sort"
	"time"

	"github.com/banshee-data/tfgraph/internal/tf"
	"github.com/banshee-data/tfgraph/internal/timeutil"
)

// Reset reasons reported to metrics and session records.
const (
	ReasonInitial            = "initial"
	ReasonRequested          = "requested"
	ReasonStaticLinksChanged = "static_links_changed"
)

// SessionRecorder persists the lifecycle of accumulator sessions.
type SessionRecorder interface {
	StartSession(id, reason string, startedAt time.Time) error
	EndSession(id string, endedAt time.Time, frames, samples int) error
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithStaticLinks sets the fixed links applied at the start of every
// session.
func WithStaticLinks(links []tf.Link) Option {
	return func(a *Accumulator) { a.links = append([]tf.Link(nil), links...) }
}

// WithRetention trims samples older than d behind the newest ingested
// stamp after every batch. Zero disables trimming.
func WithRetention(d time.Duration) Option {
	return func(a *Accumulator) { a.retention = d }
}

// WithMaxSamplesPerFrame bounds each frame's series; see
// tf.WithMaxSamplesPerFrame.
func WithMaxSamplesPerFrame(n int) Option {
	return func(a *Accumulator) { a.maxSamples = n }
}

// WithMetrics records activity on m.
func WithMetrics(m *Metrics) Option {
	return func(a *Accumulator) { a.metrics = m }
}

// WithSessionRecorder records session starts and ends on r.
func WithSessionRecorder(r SessionRecorder) Option {
	return func(a *Accumulator) { a.recorder = r }
}

// WithLatest publishes every new snapshot to l.
func WithLatest(l *Latest) Option {
	return func(a *Accumulator) { a.latest = l }
}

// WithClock sets the clock used to stamp session records.
func WithClock(c timeutil.Clock) Option {
	return func(a *Accumulator) { a.clock = c }
}

// Accumulator turns batches of playback messages into transform snapshots.
// It is the single mutator of its tree; Update must not be called
// concurrently.
type Accumulator struct {
	tree       *tf.Tree
	topics     map[string]topicKind
	links      []tf.Link
	retention  time.Duration
	maxSamples int
	metrics    *Metrics
	recorder   SessionRecorder
	latest     *Latest
	clock      timeutil.Clock

	last         *tf.Snapshot
	newest       tf.Time // newest non-static stamp ingested this session
	samples      int     // samples ingested this session
	pendingReset string
	open         bool // a session start has been recorded without its end
}

// NewAccumulator returns an accumulator. The first Update starts the
// initial session.
func NewAccumulator(opts ...Option) *Accumulator {
	a := &Accumulator{
		topics:       make(map[string]topicKind),
		clock:        timeutil.RealClock{},
		pendingReset: ReasonInitial,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetTopics replaces the topic to datatype table used to recognise
// transform topics.
func (a *Accumulator) SetTopics(topics []Topic) {
	a.topics = make(map[string]topicKind, len(topics))
	for _, t := range topics {
		a.topics[t.Name] = classify(t.Datatype)
	}
}

// SetStaticLinks replaces the fixed links. Links are only applied at the
// start of a session, so the next Update resets.
func (a *Accumulator) SetStaticLinks(links []tf.Link) {
	a.links = append([]tf.Link(nil), links...)
	if a.pendingReset == "" {
		a.pendingReset = ReasonStaticLinksChanged
	}
}

// Reset discards accumulated transforms before the next Update.
func (a *Accumulator) Reset() {
	if a.pendingReset == "" {
		a.pendingReset = ReasonRequested
	}
}

// SessionID returns the id of the current session, or "" before the first
// Update.
func (a *Accumulator) SessionID() string {
	if a.tree == nil {
		return ""
	}
	return a.tree.SessionID()
}

// Snapshot returns the last snapshot Update produced, or nil.
func (a *Accumulator) Snapshot() *tf.Snapshot { return a.last }

// Update ingests one batch. reset discards everything accumulated so far
// first. The returned snapshot is the previous one, by pointer, when the
// batch changed nothing.
func (a *Accumulator) Update(batch FrameBatch, reset bool) *tf.Snapshot {
	if reset && a.pendingReset == "" {
		a.pendingReset = ReasonRequested
	}
	if a.pendingReset != "" {
		a.startSession(a.pendingReset)
	}

	framesBefore := a.tree.Len()
	ingested := 0

	// Topic order decides which write wins when two topics carry the same
	// frame at the same stamp; sort for repeatable results.
	names := make([]string, 0, len(batch))
	for name := range batch {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		msgs := batch[name]
		for _, ev := range msgs {
			for _, id := range frameIDs(ev.Message) {
				a.tree.GetOrCreateFrame(id)
			}
		}
		kind := a.topics[name]
		if kind == kindOther {
			continue
		}
		for _, ev := range msgs {
			for _, msg := range transforms(kind, ev.Message) {
				a.tree.AddTransformMessage(msg)
				ingested++
				if msg.Header.Stamp.After(a.newest) {
					a.newest = msg.Header.Stamp
				}
			}
		}
	}
	a.samples += ingested

	trimmed := 0
	if a.retention > 0 && !a.newest.IsZero() {
		trimmed = a.tree.TrimBefore(a.newest.Add(-a.retention))
	}

	snap := a.tree.Snapshot()
	if m := a.metrics; m != nil {
		m.SamplesIngested.Add(float64(ingested))
		m.SamplesTrimmed.Add(float64(trimmed))
		if grown := a.tree.Len() - framesBefore; grown > 0 {
			m.FramesRegistered.Add(float64(grown))
		}
		m.Frames.Set(float64(a.tree.Len()))
	}
	if snap != a.last {
		a.last = snap
		if a.metrics != nil {
			a.metrics.SnapshotsPublished.Inc()
		}
		if a.latest != nil {
			a.latest.Store(snap)
		}
		tracef("batch: topics=%d samples=%d trimmed=%d frames=%d gen=%d",
			len(batch), ingested, trimmed, snap.Len(), snap.Generation())
	}
	return snap
}

// Close ends the current session record.
func (a *Accumulator) Close() {
	a.endSession()
}

func (a *Accumulator) startSession(reason string) {
	a.endSession()
	if a.tree == nil {
		a.tree = tf.NewTree(tf.WithMaxSamplesPerFrame(a.maxSamples))
	} else {
		a.tree.Reset()
	}
	a.pendingReset = ""
	a.newest = tf.Time{}
	a.samples = 0
	a.tree.AddLinks(a.links)
	a.open = true

	diagf("session %s started: reason=%s static_links=%d", a.tree.SessionID(), reason, len(a.links))
	if a.metrics != nil {
		a.metrics.Resets.WithLabelValues(reason).Inc()
	}
	if a.recorder != nil {
		if err := a.recorder.StartSession(a.tree.SessionID(), reason, a.clock.Now()); err != nil {
			opsf("record session start %s: %v", a.tree.SessionID(), err)
		}
	}
}

func (a *Accumulator) endSession() {
	if !a.open || a.recorder == nil {
		return
	}
	a.open = false
	if err := a.recorder.EndSession(a.tree.SessionID(), a.clock.Now(), a.tree.Len(), a.samples); err != nil {
		opsf("record session end %s: %v", a.tree.SessionID(), err)
	}
}
