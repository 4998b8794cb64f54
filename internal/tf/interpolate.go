package tf

// poseAt resolves the frame's pose at stamp t.
//
// With samples on both sides of t the pose is interpolated between them.
// With samples on only one side the nearest sample is returned unchanged,
// so sparse low-rate publishers keep rendering between broadcasts. When the
// bracketing samples name different parents the frame was re-attached
// between them; blending across the two attachments would be meaningless,
// so the earlier sample wins until the later one takes effect.
func (f *Frame) poseAt(t Time) (parent string, pose Pose, ok bool) {
	n := len(f.samples)
	if n == 0 {
		return "", Pose{}, false
	}
	i := f.search(t)
	switch {
	case i < n && f.samples[i].Stamp.Equal(t):
		s := f.samples[i]
		return s.Parent, s.Pose, true
	case i == 0:
		s := f.samples[0]
		return s.Parent, s.Pose, true
	case i == n:
		s := f.samples[n-1]
		return s.Parent, s.Pose, true
	}

	before, after := f.samples[i-1], f.samples[i]
	if before.Parent != after.Parent {
		return before.Parent, before.Pose, true
	}
	span := after.Stamp.Sub(before.Stamp)
	frac := float64(t.Sub(before.Stamp)) / float64(span)
	return before.Parent, Interpolate(before.Pose, after.Pose, frac), true
}
