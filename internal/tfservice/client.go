package tfservice

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/tfgraph/internal/tf"
)

// Client calls the transform service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// LookupTransform asks the server for the pose of source in target at stamp.
func (c *Client) LookupTransform(ctx context.Context, target, source string, at tf.Time, opts ...grpc.CallOption) (LookupResult, error) {
	in, err := lookupRequest(target, source, at)
	if err != nil {
		return LookupResult{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, lookupTransformMethod, in, out, opts...); err != nil {
		return LookupResult{}, err
	}
	return decodeLookup(out)
}

// ListFrames returns the server's current frame listing.
func (c *Client) ListFrames(ctx context.Context, opts ...grpc.CallOption) ([]tf.FrameInfo, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listFramesMethod, &structpb.Struct{}, out, opts...); err != nil {
		return nil, err
	}
	return decodeFrames(out)
}
