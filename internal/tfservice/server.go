package tfservice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/tfgraph/internal/tf"
)

// SnapshotSource yields the most recently published snapshot, or nil before
// the first one.
type SnapshotSource interface {
	Snapshot() *tf.Snapshot
}

// Ensure Server implements the gRPC interface.
var _ TransformServiceServer = (*Server)(nil)

// Server answers lookups against whatever snapshot the source currently
// holds. It never mutates state.
type Server struct {
	source SnapshotSource
}

// NewServer creates a server reading from source.
func NewServer(source SnapshotSource) *Server {
	return &Server{source: source}
}

func (s *Server) snapshot() (*tf.Snapshot, error) {
	snap := s.source.Snapshot()
	if snap == nil {
		return nil, status.Error(codes.Unavailable, "no snapshot published yet")
	}
	return snap, nil
}

// LookupTransform implements the unary lookup RPC.
func (s *Server) LookupTransform(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := parseLookupRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	pose, err := snap.LookupTransform(req.stamp, req.target, req.source)
	if err != nil {
		return nil, lookupStatus(err)
	}
	out, err := encodeLookup(snap, req, pose)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// ListFrames implements the unary frame listing RPC.
func (s *Server) ListFrames(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	out, err := encodeFrames(snap)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// lookupStatus maps tree lookup failures onto gRPC status codes.
func lookupStatus(err error) error {
	switch {
	case errors.Is(err, tf.ErrFrameNotFound), errors.Is(err, tf.ErrNoDataForFrame):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, tf.ErrFramesNotConnected), errors.Is(err, tf.ErrCycleDetected):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// Serve listens on addr and serves until ctx is cancelled, then stops
// gracefully.
func Serve(ctx context.Context, addr string, source SnapshotSource) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return ServeListener(ctx, lis, source)
}

// ServeListener serves on an existing listener until ctx is cancelled.
func ServeListener(ctx context.Context, lis net.Listener, source SnapshotSource) error {
	server := grpc.NewServer()
	RegisterTransformServiceServer(server, NewServer(source))

	go func() {
		<-ctx.Done()
		server.GracefulStop()
	}()

	log.Printf("[tfservice] gRPC server listening on %s", lis.Addr())
	if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("gRPC server error: %w", err)
	}
	log.Printf("[tfservice] gRPC server stopped")
	return nil
}
