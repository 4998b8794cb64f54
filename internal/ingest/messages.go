package ingest

import "github.com/banshee-data/tfgraph/internal/tf"

// Datatypes carrying a list of transforms (the /tf and /tf_static topics).
var TFDatatypes = []string{
	"tf/tfMessage",
	"tf2_msgs/TFMessage",
	"tf2_msgs/msg/TFMessage",
	"ros.tf.tfMessage",
	"ros.tf2_msgs.TFMessage",
}

// Datatypes carrying a single stamped transform.
var TransformStampedDatatypes = []string{
	"geometry_msgs/TransformStamped",
	"geometry_msgs/msg/TransformStamped",
	"ros.geometry_msgs.TransformStamped",
}

// Topic is a playback topic and its message datatype.
type Topic struct {
	Name     string
	Datatype string
}

// MessageEvent is one decoded message delivered on a topic.
type MessageEvent struct {
	Topic       string
	ReceiveTime tf.Time
	Message     any
}

// FrameBatch maps topic names to the messages delivered on them during one
// playback tick.
type FrameBatch map[string][]MessageEvent

// Stamped is implemented by any message with a header naming its frame.
type Stamped interface {
	StampedHeader() tf.Header
}

// TFMessage is a list of transforms published together.
type TFMessage struct {
	Transforms []tf.TransformStamped `json:"transforms"`
}

// StampedMessage is any header-carrying message whose body this package
// does not need, such as a point cloud or image.
type StampedMessage struct {
	Header tf.Header `json:"header"`
}

// StampedHeader returns the message header.
func (m StampedMessage) StampedHeader() tf.Header { return m.Header }

// Marker is a single scene marker. Only the header matters here.
type Marker struct {
	Header    tf.Header `json:"header"`
	Namespace string    `json:"ns,omitempty"`
	ID        int32     `json:"id"`
}

// StampedHeader returns the marker header.
func (m Marker) StampedHeader() tf.Header { return m.Header }

// MarkerArray has no header of its own; each marker carries one.
type MarkerArray struct {
	Markers []Marker `json:"markers"`
}

type topicKind int

const (
	kindOther topicKind = iota
	kindTF
	kindTransformStamped
)

func classify(datatype string) topicKind {
	for _, d := range TFDatatypes {
		if d == datatype {
			return kindTF
		}
	}
	for _, d := range TransformStampedDatatypes {
		if d == datatype {
			return kindTransformStamped
		}
	}
	return kindOther
}

// frameIDs returns the frame ids a message references through headers.
func frameIDs(msg any) []string {
	switch m := msg.(type) {
	case Stamped:
		return nonEmpty(m.StampedHeader().FrameID)
	case MarkerArray:
		return markerFrameIDs(m.Markers)
	case *MarkerArray:
		return markerFrameIDs(m.Markers)
	}
	return nil
}

func markerFrameIDs(markers []Marker) []string {
	var out []string
	for _, mk := range markers {
		if mk.Header.FrameID != "" {
			out = append(out, mk.Header.FrameID)
		}
	}
	return out
}

func nonEmpty(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}

// transforms extracts the transforms carried by a TF-topic or
// transform-stamped-topic message.
func transforms(kind topicKind, msg any) []tf.TransformStamped {
	switch kind {
	case kindTF:
		switch m := msg.(type) {
		case TFMessage:
			return m.Transforms
		case *TFMessage:
			if m != nil {
				return m.Transforms
			}
		}
	case kindTransformStamped:
		switch m := msg.(type) {
		case tf.TransformStamped:
			return []tf.TransformStamped{m}
		case *tf.TransformStamped:
			if m != nil {
				return []tf.TransformStamped{*m}
			}
		}
	}
	return nil
}
