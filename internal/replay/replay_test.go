package replay

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tfgraph/internal/ingest"
	"github.com/banshee-data/tfgraph/internal/tf"
	"github.com/banshee-data/tfgraph/internal/timeutil"
)

const recording = `
{"messages":[{"topic":"/tf","datatype":"tf2_msgs/TFMessage","receive_time":{"sec":0},"message":{"transforms":[{"header":{"stamp":{"sec":0},"frame_id":"map"},"child_frame_id":"base_link","transform":{"translation":{"x":0,"y":0,"z":0},"rotation":{"x":0,"y":0,"z":0,"w":1}}}]}}]}
{"messages":[{"topic":"/lidar","datatype":"sensor_msgs/PointCloud2","receive_time":{"sec":1},"message":{"header":{"stamp":{"sec":1},"frame_id":"lidar"}}},{"topic":"/markers","datatype":"visualization_msgs/MarkerArray","receive_time":{"sec":1},"message":{"markers":[{"header":{"frame_id":"marker_frame"},"id":3}]}}]}

{"messages":[{"topic":"/tf","datatype":"tf2_msgs/TFMessage","receive_time":{"sec":3},"message":{"transforms":[{"header":{"stamp":{"sec":10},"frame_id":"/map"},"child_frame_id":"base_link","transform":{"translation":{"x":10,"y":0,"z":0},"rotation":{"x":0,"y":0,"z":0,"w":1}}}]}},{"topic":"/mount","datatype":"geometry_msgs/TransformStamped","receive_time":{"sec":3},"message":{"header":{"stamp":{"sec":0},"frame_id":"base_link"},"child_frame_id":"lidar","transform":{"translation":{"x":0,"y":0,"z":1},"rotation":{"x":0,"y":0,"z":0,"w":1}}}}]}
`

func TestNewReader(t *testing.T) {
	r, err := NewReader(strings.NewReader(recording))
	require.NoError(t, err)
	assert.Equal(t, 3, r.TotalBatches())
	assert.Equal(t, 0, r.CurrentBatch())
	assert.Equal(t, []ingest.Topic{
		{Name: "/lidar", Datatype: "sensor_msgs/PointCloud2"},
		{Name: "/markers", Datatype: "visualization_msgs/MarkerArray"},
		{Name: "/mount", Datatype: "geometry_msgs/TransformStamped"},
		{Name: "/tf", Datatype: "tf2_msgs/TFMessage"},
	}, r.Topics())
	assert.Equal(t, tf.Time{Sec: 3}, r.BatchTime(2))

	b, reset, err := r.ReadBatch()
	require.NoError(t, err)
	assert.False(t, reset)
	require.Len(t, b["/tf"], 1)
	msg, ok := b["/tf"][0].Message.(ingest.TFMessage)
	require.True(t, ok, "got %T", b["/tf"][0].Message)
	assert.Equal(t, "base_link", msg.Transforms[0].ChildFrameID)

	b, _, err = r.ReadBatch()
	require.NoError(t, err)
	_, ok = b["/lidar"][0].Message.(ingest.StampedMessage)
	assert.True(t, ok)
	arr, ok := b["/markers"][0].Message.(ingest.MarkerArray)
	require.True(t, ok)
	assert.Equal(t, "marker_frame", arr.Markers[0].Header.FrameID)

	b, _, err = r.ReadBatch()
	require.NoError(t, err)
	_, ok = b["/mount"][0].Message.(tf.TransformStamped)
	assert.True(t, ok)

	_, _, err = r.ReadBatch()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_SeekBackwardMarksReset(t *testing.T) {
	r, err := NewReader(strings.NewReader(recording))
	require.NoError(t, err)

	require.NoError(t, r.Seek(2))
	_, reset, err := r.ReadBatch()
	require.NoError(t, err)
	assert.False(t, reset, "forward seek does not reset")

	require.NoError(t, r.Seek(0))
	_, reset, err = r.ReadBatch()
	require.NoError(t, err)
	assert.True(t, reset)
	_, reset, err = r.ReadBatch()
	require.NoError(t, err)
	assert.False(t, reset, "reset applies to one batch only")

	assert.Error(t, r.Seek(-1))
	assert.Error(t, r.Seek(4))

	require.NoError(t, r.SeekToTime(tf.Time{Sec: 2}))
	assert.Equal(t, 2, r.CurrentBatch())
}

func TestNewReader_Errors(t *testing.T) {
	tests := map[string]string{
		"bad json":       "{not json}\n",
		"missing topic":  `{"messages":[{"datatype":"x","message":{}}]}`,
		"bad message":    `{"messages":[{"topic":"/tf","datatype":"tf2_msgs/TFMessage","message":{"transforms":5}}]}`,
		"datatype drift": `{"messages":[{"topic":"/a","datatype":"x","message":{}}]}` + "\n" + `{"messages":[{"topic":"/a","datatype":"y","message":{}}]}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(recording), 0644))

	r, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 3, r.TotalBatches())

	_, err = Open(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestPlayer_Run(t *testing.T) {
	r, err := NewReader(strings.NewReader(recording))
	require.NoError(t, err)

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	latest := &ingest.Latest{}
	acc := ingest.NewAccumulator()
	var seen []int
	p := NewPlayer(r, acc,
		WithRate(2),
		WithPlayerClock(clock),
		WithPublish(latest),
		WithBatchHook(func(idx int, _ *tf.Snapshot) { seen = append(seen, idx) }),
	)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, clock.Sleeps())

	snap := latest.Snapshot()
	require.NotNil(t, snap)
	assert.ElementsMatch(t, []string{"base_link", "lidar", "map", "marker_frame"}, snap.FrameIDs())

	pose, err := snap.LookupTransform(tf.Time{Sec: 5}, "map", "lidar")
	require.NoError(t, err)
	assert.True(t, pose.ApproxEqual(tf.NewPose(5, 0, 1, 0, 0, 0, 1), 1e-9), "got %+v", pose)
}

func TestPlayer_UnpacedAndCancelled(t *testing.T) {
	r, err := NewReader(strings.NewReader(recording))
	require.NoError(t, err)
	clock := timeutil.NewMockClock(time.Unix(0, 0))

	p := NewPlayer(r, ingest.NewAccumulator(), WithRate(0), WithPlayerClock(clock))
	require.NoError(t, p.Run(context.Background()))
	assert.Empty(t, clock.Sleeps())

	require.NoError(t, r.Seek(0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Run(ctx), context.Canceled)
	assert.Equal(t, 0, r.CurrentBatch())
}

func TestPlayer_LinkUpdatesResetSession(t *testing.T) {
	r, err := NewReader(strings.NewReader(recording))
	require.NoError(t, err)

	links := make(chan []tf.Link, 1)
	links <- []tf.Link{{Parent: "base_link", Child: "camera", Pose: tf.NewPose(0, 0, 2, 0, 0, 0, 1)}}
	close(links)

	acc := ingest.NewAccumulator()
	p := NewPlayer(r, acc, WithRate(0), WithLinkUpdates(links))
	require.NoError(t, p.Run(context.Background()))

	pose, err := acc.Snapshot().LookupTransform(tf.Time{Sec: 10}, "map", "camera")
	require.NoError(t, err)
	assert.True(t, pose.ApproxEqual(tf.NewPose(10, 0, 2, 0, 0, 0, 1), 1e-9), "got %+v", pose)
}
