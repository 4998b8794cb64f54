package tf

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"
)

func offset(x, y, z float64) Pose { return NewPose(x, y, z, 0, 0, 0, 1) }

func sec(s int64) Time { return Time{Sec: s} }

func TestGetOrCreateFrame_Idempotent(t *testing.T) {
	tree := NewTree()
	a := tree.GetOrCreateFrame("base_link")
	b := tree.GetOrCreateFrame("base_link")
	if a != b {
		t.Fatal("GetOrCreateFrame returned different frames for the same name")
	}
	if tree.Len() != 1 {
		t.Errorf("Len = %d, want 1", tree.Len())
	}
	if c := tree.GetOrCreateFrame("/base_link"); c != a {
		t.Error("leading slash should name the same frame")
	}
}

func TestAddTransform_CreatesBothFrames(t *testing.T) {
	tree := NewTree()
	tree.AddTransform("child", "parent", sec(1), offset(1, 0, 0))

	if diff := cmp.Diff([]string{"child", "parent"}, tree.FrameIDs()); diff != "" {
		t.Errorf("FrameIDs mismatch (-want +got):\n%s", diff)
	}
	if tree.Frame("parent").Len() != 0 {
		t.Error("parent frame should have no samples")
	}
	if tree.State() != StateAccumulating {
		t.Errorf("State = %v, want accumulating", tree.State())
	}
}

func TestAddTransform_LastWriteWins(t *testing.T) {
	tree := NewTree()
	tree.AddTransform("c", "p", sec(3), offset(1, 0, 0))
	tree.AddTransform("c", "p", sec(3), offset(2, 0, 0))

	samples := tree.Frame("c").Samples()
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	if samples[0].Pose.Translation.X != 2 {
		t.Errorf("sample X = %f, want 2", samples[0].Pose.Translation.X)
	}
}

func TestAddTransform_OutOfOrderKeepsSorted(t *testing.T) {
	tree := NewTree()
	for _, s := range []int64{5, 1, 3, 9, 7, 3} {
		tree.AddTransform("c", "p", sec(s), offset(float64(s), 0, 0))
	}

	var got []int64
	for _, s := range tree.Frame("c").Samples() {
		got = append(got, s.Stamp.Sec)
	}
	if diff := cmp.Diff([]int64{1, 3, 5, 7, 9}, got); diff != "" {
		t.Errorf("stamps mismatch (-want +got):\n%s", diff)
	}
}

func TestAddTransformMessage(t *testing.T) {
	tree := NewTree()
	tree.AddTransformMessage(TransformStamped{
		Header:       Header{Stamp: sec(2), FrameID: "/odom"},
		ChildFrameID: "base_link",
		Transform: Transform{
			Translation: Vector3{X: 1, Y: 2, Z: 3},
			Rotation:    Quaternion{W: 1},
		},
	})

	parent, ok := tree.Frame("base_link").ParentAt(sec(2))
	if !ok || parent != "odom" {
		t.Errorf("ParentAt = %q, %v; want odom", parent, ok)
	}
	pose, err := tree.LookupTransform(sec(2), "odom", "base_link")
	if err != nil {
		t.Fatalf("LookupTransform: %v", err)
	}
	if pose.Translation != (r3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Errorf("translation = %v", pose.Translation)
	}
}

func TestWithMaxSamplesPerFrame(t *testing.T) {
	tree := NewTree(WithMaxSamplesPerFrame(3))
	for s := int64(0); s < 10; s++ {
		tree.AddTransform("c", "p", sec(s), offset(float64(s), 0, 0))
	}
	f := tree.Frame("c")
	if f.Len() != 3 {
		t.Fatalf("Len = %d, want 3", f.Len())
	}
	first, _ := f.Earliest()
	if first.Stamp.Sec != 7 {
		t.Errorf("earliest stamp = %v, want 7", first.Stamp)
	}
}

func TestTrimBefore_KeepsEdgeSample(t *testing.T) {
	tree := NewTree()
	for _, s := range []int64{0, 10, 20, 30} {
		tree.AddTransform("c", "p", sec(s), offset(float64(s), 0, 0))
	}

	removed := tree.TrimBefore(sec(25))
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	first, _ := tree.Frame("c").Earliest()
	if first.Stamp.Sec != 20 {
		t.Errorf("earliest = %v, want 20", first.Stamp)
	}

	// A lookup at the window edge still interpolates.
	pose, err := tree.LookupTransform(sec(25), "p", "c")
	if err != nil {
		t.Fatalf("LookupTransform: %v", err)
	}
	if math.Abs(pose.Translation.X-25) > eps {
		t.Errorf("X = %f, want 25", pose.Translation.X)
	}

	if n := tree.TrimFrameBefore("c", sec(20)); n != 0 {
		t.Errorf("second trim removed %d, want 0", n)
	}
	if n := tree.TrimFrameBefore("missing", sec(20)); n != 0 {
		t.Errorf("trim of missing frame removed %d", n)
	}
}

func TestTrimBefore_ExactStampKeepsIt(t *testing.T) {
	tree := NewTree()
	for _, s := range []int64{0, 10, 20} {
		tree.AddTransform("c", "p", sec(s), IdentityPose())
	}
	if n := tree.TrimBefore(sec(10)); n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
}

func TestReset(t *testing.T) {
	tree := NewTree()
	tree.AddTransform("robot", "world", sec(0), offset(1, 0, 0))
	session := tree.SessionID()
	before := tree.Snapshot()

	tree.Reset()

	if tree.State() != StateEmpty {
		t.Errorf("State = %v, want empty", tree.State())
	}
	if tree.SessionID() == session {
		t.Error("Reset should start a new session")
	}
	_, err := tree.LookupTransform(sec(0), "world", "robot")
	if !errors.Is(err, ErrFrameNotFound) && !errors.Is(err, ErrNoDataForFrame) {
		t.Errorf("lookup after reset: err = %v", err)
	}

	after := tree.Snapshot()
	if after == before {
		t.Error("Reset should produce a new snapshot")
	}
	if after.Len() != 0 {
		t.Errorf("snapshot after reset has %d frames", after.Len())
	}
	// The pre-reset snapshot is untouched.
	if _, err := before.LookupTransform(sec(0), "world", "robot"); err != nil {
		t.Errorf("old snapshot lookup failed: %v", err)
	}

	// New data makes the frames resolvable again.
	tree.AddTransform("robot", "world", sec(0), offset(2, 0, 0))
	pose, err := tree.Snapshot().LookupTransform(sec(0), "world", "robot")
	if err != nil || pose.Translation.X != 2 {
		t.Errorf("lookup after new data = %v, %v", pose.Translation, err)
	}
}

func TestReset_RegisteredFrameHasNoData(t *testing.T) {
	tree := NewTree()
	tree.AddTransform("robot", "world", sec(0), offset(1, 0, 0))
	tree.Reset()
	tree.GetOrCreateFrame("robot")
	tree.GetOrCreateFrame("world")

	_, err := tree.LookupTransform(sec(0), "world", "robot")
	if !errors.Is(err, ErrNoDataForFrame) {
		t.Errorf("err = %v, want ErrNoDataForFrame", err)
	}
}

func TestAddLinks_ResolveAtAnyTime(t *testing.T) {
	tree := NewTree()
	tree.AddLinks([]Link{
		{Parent: "base_link", Child: "lidar", Pose: offset(0, 0, 1.5)},
		{Parent: "base_link", Child: "camera", Pose: offset(0.2, 0, 1.2)},
	})
	tree.AddTransform("base_link", "odom", sec(100), offset(3, 0, 0))

	pose, err := tree.Snapshot().LookupTransform(sec(250), "odom", "lidar")
	if err != nil {
		t.Fatal(err)
	}
	if pose.Translation != (r3.Vec{X: 3, Z: 1.5}) {
		t.Errorf("translation = %v", pose.Translation)
	}
}
