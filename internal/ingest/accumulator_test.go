package ingest

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tfgraph/internal/tf"
	"github.com/banshee-data/tfgraph/internal/timeutil"
)

func tfAt(sec int64, parent, child string, x float64) tf.TransformStamped {
	return tf.TransformStamped{
		Header:       tf.Header{Stamp: tf.Time{Sec: sec}, FrameID: parent},
		ChildFrameID: child,
		Transform: tf.Transform{
			Translation: tf.Vector3{X: x},
			Rotation:    tf.Quaternion{W: 1},
		},
	}
}

func defaultTopics() []Topic {
	return []Topic{
		{Name: "/tf", Datatype: "tf2_msgs/TFMessage"},
		{Name: "/tf_static", Datatype: "tf2_msgs/msg/TFMessage"},
		{Name: "/pose", Datatype: "geometry_msgs/TransformStamped"},
		{Name: "/markers", Datatype: "visualization_msgs/MarkerArray"},
		{Name: "/points", Datatype: "sensor_msgs/PointCloud2"},
	}
}

type fakeRecorder struct {
	mu      sync.Mutex
	started []string
	reasons []string
	ended   []string
	frames  []int
	samples []int
	err     error
}

func (f *fakeRecorder) StartSession(id, reason string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, id)
	f.reasons = append(f.reasons, reason)
	return f.err
}

func (f *fakeRecorder) EndSession(id string, _ time.Time, frames, samples int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, id)
	f.frames = append(f.frames, frames)
	f.samples = append(f.samples, samples)
	return f.err
}

func TestUpdate_ConsumesTFAndStampedTopics(t *testing.T) {
	acc := NewAccumulator()
	acc.SetTopics(defaultTopics())

	snap := acc.Update(FrameBatch{
		"/tf": {{Topic: "/tf", Message: TFMessage{Transforms: []tf.TransformStamped{
			tfAt(1, "world", "robot", 1),
		}}}},
		"/pose": {{Topic: "/pose", Message: tfAt(1, "robot", "sensor", 2)}},
	}, false)

	require.NotNil(t, snap)
	pose, err := snap.LookupTransform(tf.Time{Sec: 1}, "world", "sensor")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, pose.Translation.X, 1e-9)
}

func TestUpdate_AcceptsPointerMessages(t *testing.T) {
	acc := NewAccumulator()
	acc.SetTopics(defaultTopics())

	msg := tfAt(0, "a", "b", 1)
	snap := acc.Update(FrameBatch{
		"/tf":   {{Message: &TFMessage{Transforms: []tf.TransformStamped{tfAt(0, "root", "a", 1)}}}},
		"/pose": {{Message: &msg}},
	}, false)

	_, err := snap.LookupTransform(tf.Time{}, "root", "b")
	assert.NoError(t, err)
}

func TestUpdate_RegistersFramesFromHeaders(t *testing.T) {
	acc := NewAccumulator()
	acc.SetTopics(defaultTopics())

	snap := acc.Update(FrameBatch{
		"/points": {{Message: StampedMessage{Header: tf.Header{FrameID: "lidar"}}}},
		"/markers": {{Message: MarkerArray{Markers: []Marker{
			{Header: tf.Header{FrameID: "map"}},
			{Header: tf.Header{FrameID: "base_link"}},
			{Header: tf.Header{}},
		}}}},
	}, false)

	assert.Equal(t, []string{"base_link", "lidar", "map"}, snap.FrameIDs())
	assert.Equal(t, 0, snap.Frame("lidar").Len())
}

func TestUpdate_IgnoresTransformsOnUnknownTopics(t *testing.T) {
	acc := NewAccumulator()
	// No topic table: a TFMessage on an unrecognised topic is not consumed.
	snap := acc.Update(FrameBatch{
		"/tf": {{Message: TFMessage{Transforms: []tf.TransformStamped{tfAt(0, "world", "robot", 1)}}}},
	}, false)
	assert.Equal(t, 0, snap.Len())
}

func TestUpdate_ReusesSnapshotWhenNothingChanged(t *testing.T) {
	acc := NewAccumulator()
	acc.SetTopics(defaultTopics())

	s1 := acc.Update(FrameBatch{"/tf": {{Message: TFMessage{Transforms: []tf.TransformStamped{tfAt(0, "w", "r", 1)}}}}}, false)
	s2 := acc.Update(FrameBatch{}, false)
	s3 := acc.Update(FrameBatch{"/points": {{Message: StampedMessage{Header: tf.Header{FrameID: "r"}}}}}, false)
	assert.Same(t, s1, s2)
	assert.Same(t, s1, s3)
	assert.Same(t, s1, acc.Snapshot())

	s4 := acc.Update(FrameBatch{"/tf": {{Message: TFMessage{Transforms: []tf.TransformStamped{tfAt(1, "w", "r", 2)}}}}}, false)
	assert.NotSame(t, s1, s4)
}

func TestUpdate_ResetDiscardsTransforms(t *testing.T) {
	acc := NewAccumulator()
	acc.SetTopics(defaultTopics())

	s1 := acc.Update(FrameBatch{"/tf": {{Message: TFMessage{Transforms: []tf.TransformStamped{tfAt(5, "w", "r", 1)}}}}}, false)
	session := acc.SessionID()

	s2 := acc.Update(FrameBatch{}, true)
	assert.NotEqual(t, session, acc.SessionID())
	assert.Equal(t, 0, s2.Len())

	_, err := s2.LookupTransform(tf.Time{Sec: 5}, "w", "r")
	assert.True(t, errors.Is(err, tf.ErrFrameNotFound), "err = %v", err)

	// A snapshot from before the reset still answers.
	_, err = s1.LookupTransform(tf.Time{Sec: 5}, "w", "r")
	assert.NoError(t, err)
}

func TestUpdate_StaticLinksAppliedPerSession(t *testing.T) {
	link := tf.Link{Parent: "base_link", Child: "lidar", Pose: tf.NewPose(0, 0, 2, 0, 0, 0, 1)}
	acc := NewAccumulator(WithStaticLinks([]tf.Link{link}))
	acc.SetTopics(defaultTopics())

	snap := acc.Update(FrameBatch{"/tf": {{Message: TFMessage{Transforms: []tf.TransformStamped{tfAt(10, "odom", "base_link", 1)}}}}}, false)
	pose, err := snap.LookupTransform(tf.Time{Sec: 10}, "odom", "lidar")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, pose.Translation.Z, 1e-9)

	snap = acc.Update(nil, true)
	pose, err = snap.LookupTransform(tf.Time{Sec: 99}, "base_link", "lidar")
	require.NoError(t, err, "static link should survive reset")
	assert.InDelta(t, 2.0, pose.Translation.Z, 1e-9)
}

func TestSetStaticLinks_ForcesReset(t *testing.T) {
	rec := &fakeRecorder{}
	acc := NewAccumulator(WithSessionRecorder(rec))
	acc.SetTopics(defaultTopics())
	acc.Update(FrameBatch{"/tf": {{Message: TFMessage{Transforms: []tf.TransformStamped{tfAt(1, "w", "r", 1)}}}}}, false)

	acc.SetStaticLinks([]tf.Link{{Parent: "r", Child: "cam", Pose: tf.IdentityPose()}})
	snap := acc.Update(nil, false)

	assert.Nil(t, snap.Frame("w"), "dynamic transforms should be gone after a link change")
	assert.NotNil(t, snap.Frame("cam"))
	assert.Equal(t, []string{ReasonInitial, ReasonStaticLinksChanged}, rec.reasons)
}

func TestUpdate_RetentionTrimsOldSamples(t *testing.T) {
	acc := NewAccumulator(WithRetention(5 * time.Second))
	acc.SetTopics(defaultTopics())
	acc.SetStaticLinks([]tf.Link{{Parent: "r", Child: "cam", Pose: tf.IdentityPose()}})

	var snap *tf.Snapshot
	for s := int64(0); s <= 20; s++ {
		snap = acc.Update(FrameBatch{"/tf": {{Message: TFMessage{Transforms: []tf.TransformStamped{tfAt(s, "w", "r", float64(s))}}}}}, false)
	}

	first, ok := snap.Frame("r").Earliest()
	require.True(t, ok)
	assert.Equal(t, int64(15), first.Stamp.Sec)
	// The zero-stamp static link is the edge sample and is never trimmed.
	assert.Equal(t, 1, snap.Frame("cam").Len())
}

func TestUpdate_MaxSamplesPerFrame(t *testing.T) {
	acc := NewAccumulator(WithMaxSamplesPerFrame(2))
	acc.SetTopics(defaultTopics())
	var snap *tf.Snapshot
	for s := int64(0); s < 5; s++ {
		snap = acc.Update(FrameBatch{"/tf": {{Message: TFMessage{Transforms: []tf.TransformStamped{tfAt(s, "w", "r", 0)}}}}}, false)
	}
	assert.Equal(t, 2, snap.Frame("r").Len())
}

func TestUpdate_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	acc := NewAccumulator(WithMetrics(m))
	acc.SetTopics(defaultTopics())

	acc.Update(FrameBatch{"/tf": {{Message: TFMessage{Transforms: []tf.TransformStamped{
		tfAt(0, "w", "r", 1),
		tfAt(0, "r", "s", 1),
	}}}}}, false)
	acc.Update(FrameBatch{}, false)
	acc.Update(FrameBatch{}, true)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.SamplesIngested))
	assert.Equal(t, 3.0, promtest.ToFloat64(m.FramesRegistered))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.SnapshotsPublished))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Resets.WithLabelValues(ReasonInitial)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Resets.WithLabelValues(ReasonRequested)))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.Frames))
}

func TestSessionRecorder_Lifecycle(t *testing.T) {
	rec := &fakeRecorder{}
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	acc := NewAccumulator(WithSessionRecorder(rec), WithClock(clock))
	acc.SetTopics(defaultTopics())

	acc.Update(FrameBatch{"/tf": {{Message: TFMessage{Transforms: []tf.TransformStamped{tfAt(0, "w", "r", 1)}}}}}, false)
	first := acc.SessionID()
	acc.Reset()
	acc.Update(nil, false)
	acc.Close()
	acc.Close()

	assert.Equal(t, []string{first, acc.SessionID()}, rec.started)
	assert.Equal(t, []string{first, acc.SessionID()}, rec.ended)
	assert.Equal(t, []int{2, 0}, rec.frames)
	assert.Equal(t, []int{1, 0}, rec.samples)
}

func TestSessionRecorder_ErrorsDoNotStopIngest(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	acc := NewAccumulator(WithSessionRecorder(rec))
	acc.SetTopics(defaultTopics())
	snap := acc.Update(FrameBatch{"/tf": {{Message: TFMessage{Transforms: []tf.TransformStamped{tfAt(0, "w", "r", 1)}}}}}, false)
	assert.Equal(t, 2, snap.Len())
}

func TestLatest_PublishedByAccumulator(t *testing.T) {
	var latest Latest
	assert.Nil(t, latest.Snapshot())

	acc := NewAccumulator(WithLatest(&latest))
	acc.SetTopics(defaultTopics())
	snap := acc.Update(FrameBatch{"/tf": {{Message: TFMessage{Transforms: []tf.TransformStamped{tfAt(0, "w", "r", 1)}}}}}, false)
	assert.Same(t, snap, latest.Snapshot())
}

func TestSessionID_EmptyBeforeFirstUpdate(t *testing.T) {
	acc := NewAccumulator()
	assert.Equal(t, "", acc.SessionID())
	assert.Nil(t, acc.Snapshot())
}
