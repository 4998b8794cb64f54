package tf

// Sample is one recorded transform: the pose of a frame relative to Parent
// at Stamp. Parent is held by name and resolved when a lookup runs, so a
// sample may name a parent frame that has not been seen yet.
type Sample struct {
	Stamp  Time
	Parent string
	Pose   Pose
}

func (s Sample) equal(o Sample) bool {
	return s.Stamp.Equal(o.Stamp) && s.Parent == o.Parent && s.Pose.Equal(o.Pose)
}
