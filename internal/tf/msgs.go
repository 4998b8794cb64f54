package tf

import "strings"

// Header is the stamped-message header carried by geometry messages.
type Header struct {
	Seq     uint32 `json:"seq,omitempty"`
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// Vector3 is a translation in metres.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is a rotation in x,y,z,w order.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Transform is the translation+rotation payload of a TransformStamped.
type Transform struct {
	Translation Vector3    `json:"translation"`
	Rotation    Quaternion `json:"rotation"`
}

// Pose converts the message payload into a Pose.
func (t Transform) Pose() Pose {
	return NewPose(
		t.Translation.X, t.Translation.Y, t.Translation.Z,
		t.Rotation.X, t.Rotation.Y, t.Rotation.Z, t.Rotation.W,
	)
}

// TransformStamped records the pose of ChildFrameID in Header.FrameID at
// Header.Stamp.
type TransformStamped struct {
	Header       Header    `json:"header"`
	ChildFrameID string    `json:"child_frame_id"`
	Transform    Transform `json:"transform"`
}

// CanonicalFrameID strips the leading slash permitted by older tf
// publishers so "/base_link" and "base_link" name the same frame.
func CanonicalFrameID(id string) string {
	return strings.TrimPrefix(id, "/")
}

// StampedHeader returns the message header.
func (m TransformStamped) StampedHeader() Header { return m.Header }
