// Package tf owns the coordinate-frame transform graph.
//
// Responsibilities: accumulating time-stamped rigid transforms between named
// frames, resolving the pose of one frame relative to another at a point in
// time, and publishing immutable snapshots of the graph to readers.
// Key types: Tree, Snapshot, Frame, Sample, Pose, Time.
//
// A Tree has a single mutator. Readers never touch the Tree; they hold a
// *Snapshot, which is never written after it is returned. Frames are
// copied on first write after a snapshot, so a snapshot costs one map copy
// plus one copy per frame that actually changed.
package tf
