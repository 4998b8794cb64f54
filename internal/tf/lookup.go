package tf

import "sort"

// frameSet is the read-only view shared by the live tree and snapshots.
type frameSet map[string]*Frame

// chain is a parent walk from one frame toward its root. poses[i] maps
// names[i] into names[i+1]; names has one more entry than poses.
type chain struct {
	names []string
	poses []Pose
}

// walk follows the parent chain of start at stamp t. A frame with no
// samples, or a parent name with no frame entry, ends the chain. When stop
// is non-nil the walk ends at the first frame stop accepts. The walk is
// bounded by the number of frames; going past it means the graph loops.
func (fs frameSet) walk(t Time, start string, stop func(string) bool) (chain, error) {
	c := chain{names: []string{start}}
	cur := fs[start]
	for hops := 0; cur != nil; hops++ {
		if stop != nil && stop(cur.id) {
			break
		}
		if hops > len(fs) {
			opsf("cycle detected walking from %q at %s (frames=%d)", start, t, len(fs))
			return c, ErrCycleDetected
		}
		parent, pose, ok := cur.poseAt(t)
		if !ok {
			break
		}
		c.names = append(c.names, parent)
		c.poses = append(c.poses, pose)
		cur = fs[parent]
	}
	return c, nil
}

// compose returns the pose mapping names[0] into names[k].
func (c chain) compose(k int) Pose {
	p := IdentityPose()
	for i := 0; i < k; i++ {
		p = Compose(c.poses[i], p)
	}
	return p
}

func (fs frameSet) lookup(t Time, target, source string) (Pose, error) {
	target = CanonicalFrameID(target)
	source = CanonicalFrameID(source)
	fail := func(kind error, frame string) (Pose, error) {
		return Pose{}, &LookupError{Kind: kind, Frame: frame, Target: target, Source: source, Stamp: t}
	}

	if fs[source] == nil {
		return fail(ErrFrameNotFound, source)
	}
	if fs[target] == nil {
		return fail(ErrFrameNotFound, target)
	}
	if source == target {
		return IdentityPose(), nil
	}

	tc, err := fs.walk(t, target, nil)
	if err != nil {
		return fail(err, target)
	}
	index := make(map[string]int, len(tc.names))
	for i, name := range tc.names {
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	inTarget := func(name string) bool {
		_, ok := index[name]
		return ok
	}

	sc, err := fs.walk(t, source, inTarget)
	if err != nil {
		return fail(err, source)
	}
	ancestor := sc.names[len(sc.names)-1]
	ti, ok := index[ancestor]
	if !ok {
		switch {
		case fs.bare(source):
			return fail(ErrNoDataForFrame, source)
		case fs.bare(target):
			return fail(ErrNoDataForFrame, target)
		}
		return fail(ErrFramesNotConnected, "")
	}

	sourceToAncestor := sc.compose(len(sc.poses))
	targetToAncestor := tc.compose(ti)
	return Compose(targetToAncestor.Inverse(), sourceToAncestor), nil
}

// bare reports whether name has no samples and no sample in the set names
// it as a parent. Roots are not bare.
func (fs frameSet) bare(name string) bool {
	if fs[name].Len() > 0 {
		return false
	}
	for _, f := range fs {
		for _, s := range f.samples {
			if s.Parent == name {
				return false
			}
		}
	}
	return true
}

// chainNames returns the parent chain of frame at t, frame first.
func (fs frameSet) chainNames(t Time, frame string) ([]string, error) {
	frame = CanonicalFrameID(frame)
	if fs[frame] == nil {
		return nil, &LookupError{Kind: ErrFrameNotFound, Frame: frame, Source: frame, Stamp: t}
	}
	c, err := fs.walk(t, frame, nil)
	if err != nil {
		return c.names, &LookupError{Kind: err, Frame: frame, Source: frame, Stamp: t}
	}
	return c.names, nil
}

func (fs frameSet) ids() []string {
	ids := make([]string, 0, len(fs))
	for id := range fs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// roots returns the frames that have no parent at t, sorted by name.
func (fs frameSet) roots(t Time) []string {
	var out []string
	for _, id := range fs.ids() {
		if _, _, ok := fs[id].poseAt(t); !ok {
			out = append(out, id)
		}
	}
	return out
}
