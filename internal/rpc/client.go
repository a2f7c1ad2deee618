package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/danielpatrickdp/twin-engine/internal/engine"
)

// #region client-struct
// Client wraps a gRPC connection to a simulation server.
type Client struct {
	conn   *grpc.ClientConn
	client simulationClient
}

// #endregion client-struct

// #region constructor
// Dial connects to the simulation server at addr.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing connection. Close closes conn.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn, client: &stub{cc: conn}}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region calls

// SetInput updates one factor on the server.
func (c *Client) SetInput(ctx context.Context, factor string, value float64) error {
	if _, err := c.client.SetInput(ctx, encodeSetInput(factor, value)); err != nil {
		return fmt.Errorf("set input rpc: %w", err)
	}
	return nil
}

// Run asks the server for a run and waits for its result.
func (c *Client) Run(ctx context.Context) (engine.Result, error) {
	out, err := c.client.Run(ctx, &emptypb.Empty{})
	if err != nil {
		return engine.Result{}, fmt.Errorf("run rpc: %w", err)
	}
	return decodeResult(out)
}

// State fetches the server's controller snapshot.
func (c *Client) State(ctx context.Context) (engine.Snapshot, error) {
	out, err := c.client.State(ctx, &emptypb.Empty{})
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("state rpc: %w", err)
	}
	return decodeSnapshot(out)
}

// Subscribe streams results to fn until ctx ends or the stream fails.
// It returns nil when ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context, fn func(engine.Result)) error {
	stream, err := c.client.Subscribe(ctx, &emptypb.Empty{})
	if err != nil {
		return fmt.Errorf("subscribe rpc: %w", err)
	}
	for {
		msg, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("subscribe recv: %w", err)
		}
		res, err := decodeResult(msg)
		if err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
		fn(res)
	}
}

// #endregion calls
