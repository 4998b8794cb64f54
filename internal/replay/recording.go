// Package replay plays JSON-lines recordings of message batches into an
// ingest.Accumulator.
//
// Each line of a recording is one playback tick:
//
//	{"reset": false, "messages": [{"topic": "/tf", "datatype": "tf2_msgs/TFMessage",
//	  "receive_time": {"sec": 1, "nsec": 0}, "message": {...}}]}
package replay

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/tfgraph/internal/ingest"
	"github.com/banshee-data/tfgraph/internal/tf"
)

// RecordedMessage is one message line entry before decoding.
type RecordedMessage struct {
	Topic       string          `json:"topic"`
	Datatype    string          `json:"datatype"`
	ReceiveTime tf.Time         `json:"receive_time"`
	Message     json.RawMessage `json:"message"`
}

// Batch is one recorded playback tick.
type Batch struct {
	Reset    bool              `json:"reset"`
	Messages []RecordedMessage `json:"messages"`
}

var markerArrayDatatypes = map[string]bool{
	"visualization_msgs/MarkerArray":     true,
	"visualization_msgs/msg/MarkerArray": true,
}

var markerDatatypes = map[string]bool{
	"visualization_msgs/Marker":     true,
	"visualization_msgs/msg/Marker": true,
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// decodeMessage turns a raw message into the ingest type for its datatype.
// Unknown datatypes decode as a bare header-carrying message.
func decodeMessage(datatype string, raw json.RawMessage) (any, error) {
	var (
		msg any
		err error
	)
	switch {
	case contains(ingest.TFDatatypes, datatype):
		var m ingest.TFMessage
		err = json.Unmarshal(raw, &m)
		msg = m
	case contains(ingest.TransformStampedDatatypes, datatype):
		var m tf.TransformStamped
		err = json.Unmarshal(raw, &m)
		msg = m
	case markerArrayDatatypes[datatype]:
		var m ingest.MarkerArray
		err = json.Unmarshal(raw, &m)
		msg = m
	case markerDatatypes[datatype]:
		var m ingest.Marker
		err = json.Unmarshal(raw, &m)
		msg = m
	default:
		var m ingest.StampedMessage
		err = json.Unmarshal(raw, &m)
		msg = m
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", datatype, err)
	}
	return msg, nil
}

// decodeBatch converts a recorded batch into a FrameBatch and returns the
// newest receive time it holds.
func decodeBatch(b Batch) (ingest.FrameBatch, tf.Time, error) {
	out := make(ingest.FrameBatch, len(b.Messages))
	var newest tf.Time
	for i, rm := range b.Messages {
		if rm.Topic == "" {
			return nil, newest, fmt.Errorf("message %d: missing topic", i)
		}
		msg, err := decodeMessage(rm.Datatype, rm.Message)
		if err != nil {
			return nil, newest, fmt.Errorf("message %d on %s: %w", i, rm.Topic, err)
		}
		stamp := rm.ReceiveTime.Normalize()
		out[rm.Topic] = append(out[rm.Topic], ingest.MessageEvent{
			Topic:       rm.Topic,
			ReceiveTime: stamp,
			Message:     msg,
		})
		if stamp.After(newest) {
			newest = stamp
		}
	}
	return out, newest, nil
}
