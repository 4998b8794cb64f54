package tf

// Link is a fixed structural transform between two frames, such as a sensor
// mount. Links are applied as zero-stamp samples, so they act as the
// nearest-available pose at every query time.
type Link struct {
	Parent string
	Child  string
	Pose   Pose
}

// AddLinks records each link as a zero-stamp sample.
func (t *Tree) AddLinks(links []Link) {
	for _, l := range links {
		t.AddTransform(l.Child, l.Parent, Zero, l.Pose)
	}
}
