package tfservice

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/tfgraph/internal/tf"
)

// LookupResult is the decoded LookupTransform response.
type LookupResult struct {
	Target     string
	Source     string
	Stamp      tf.Time
	Pose       tf.Pose
	Generation uint64
	SessionID  string
}

func lookupRequest(target, source string, at tf.Time) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"target": target,
		"source": source,
		"sec":    at.Sec,
		"nsec":   at.Nsec,
	})
}

type parsedLookup struct {
	target, source string
	stamp          tf.Time
}

func parseLookupRequest(in *structpb.Struct) (parsedLookup, error) {
	fields := in.GetFields()
	req := parsedLookup{
		target: fields["target"].GetStringValue(),
		source: fields["source"].GetStringValue(),
	}
	if req.target == "" || req.source == "" {
		return req, fmt.Errorf("target and source are required")
	}
	sec, err := integerField(fields, "sec")
	if err != nil {
		return req, err
	}
	nsec, err := integerField(fields, "nsec")
	if err != nil {
		return req, err
	}
	req.stamp = tf.NewTime(sec, nsec)
	return req, nil
}

func integerField(fields map[string]*structpb.Value, name string) (int64, error) {
	v, ok := fields[name]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	if n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, fmt.Errorf("%s must be an integer, got %v", name, n.NumberValue)
	}
	return int64(n.NumberValue), nil
}

func encodeLookup(snap *tf.Snapshot, req parsedLookup, pose tf.Pose) (*structpb.Struct, error) {
	m := pose.RowMajor()
	return structpb.NewStruct(map[string]any{
		"target":      req.target,
		"source":      req.source,
		"sec":         req.stamp.Sec,
		"nsec":        req.stamp.Nsec,
		"translation": floats(pose.Translation.X, pose.Translation.Y, pose.Translation.Z),
		"rotation":    floats(pose.Rotation.Imag, pose.Rotation.Jmag, pose.Rotation.Kmag, pose.Rotation.Real),
		"matrix":      floats(m[:]...),
		"generation":  snap.Generation(),
		"session_id":  snap.SessionID(),
	})
}

func decodeLookup(out *structpb.Struct) (LookupResult, error) {
	fields := out.GetFields()
	tr, err := numberList(fields, "translation", 3)
	if err != nil {
		return LookupResult{}, err
	}
	rot, err := numberList(fields, "rotation", 4)
	if err != nil {
		return LookupResult{}, err
	}
	sec, err := integerField(fields, "sec")
	if err != nil {
		return LookupResult{}, err
	}
	nsec, err := integerField(fields, "nsec")
	if err != nil {
		return LookupResult{}, err
	}
	gen, err := integerField(fields, "generation")
	if err != nil {
		return LookupResult{}, err
	}
	return LookupResult{
		Target:     fields["target"].GetStringValue(),
		Source:     fields["source"].GetStringValue(),
		Stamp:      tf.NewTime(sec, nsec),
		Pose:       tf.NewPose(tr[0], tr[1], tr[2], rot[0], rot[1], rot[2], rot[3]),
		Generation: uint64(gen),
		SessionID:  fields["session_id"].GetStringValue(),
	}, nil
}

func encodeFrames(snap *tf.Snapshot) (*structpb.Struct, error) {
	infos := snap.Describe()
	frames := make([]any, 0, len(infos))
	for _, info := range infos {
		frames = append(frames, map[string]any{
			"id":            info.ID,
			"parent":        info.Parent,
			"samples":       info.Samples,
			"earliest_sec":  info.Earliest.Sec,
			"earliest_nsec": info.Earliest.Nsec,
			"latest_sec":    info.Latest.Sec,
			"latest_nsec":   info.Latest.Nsec,
		})
	}
	return structpb.NewStruct(map[string]any{
		"frames":     frames,
		"generation": snap.Generation(),
		"session_id": snap.SessionID(),
	})
}

func decodeFrames(out *structpb.Struct) ([]tf.FrameInfo, error) {
	list := out.GetFields()["frames"].GetListValue().GetValues()
	infos := make([]tf.FrameInfo, 0, len(list))
	for _, v := range list {
		fields := v.GetStructValue().GetFields()
		var nums [5]int64
		for i, name := range []string{"samples", "earliest_sec", "earliest_nsec", "latest_sec", "latest_nsec"} {
			n, err := integerField(fields, name)
			if err != nil {
				return nil, err
			}
			nums[i] = n
		}
		infos = append(infos, tf.FrameInfo{
			ID:       fields["id"].GetStringValue(),
			Parent:   fields["parent"].GetStringValue(),
			Samples:  int(nums[0]),
			Earliest: tf.Time{Sec: nums[1], Nsec: nums[2]},
			Latest:   tf.Time{Sec: nums[3], Nsec: nums[4]},
		})
	}
	return infos, nil
}

func floats(v ...float64) []any {
	out := make([]any, len(v))
	for i, f := range v {
		out[i] = f
	}
	return out
}

func numberList(fields map[string]*structpb.Value, name string, n int) ([]float64, error) {
	values := fields[name].GetListValue().GetValues()
	if len(values) != n {
		return nil, fmt.Errorf("%s: expected %d values, got %d", name, n, len(values))
	}
	out := make([]float64, n)
	for i, v := range values {
		out[i] = v.GetNumberValue()
	}
	return out, nil
}
