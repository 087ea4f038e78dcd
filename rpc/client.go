package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client calls a remote PrintService.
type Client struct {
	cc *grpc.ClientConn
}

// Dial creates a client for addr. The connection is established lazily on
// the first call. Plaintext transport and the JSON codec are preset; opts
// are applied after them.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}), grpc.CallContentSubtype(codecName)),
	}
	cc, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{cc: cc}, nil
}

// Print submits one print job.
func (c *Client) Print(ctx context.Context, in *PrintRequest, opts ...grpc.CallOption) (*PrintReply, error) {
	out := new(PrintReply)
	if err := c.cc.Invoke(ctx, printMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPorts lists the serial devices of the remote host.
func (c *Client) ListPorts(ctx context.Context, opts ...grpc.CallOption) (*ListPortsReply, error) {
	out := new(ListPortsReply)
	if err := c.cc.Invoke(ctx, listPortsMethod, &ListPortsRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.cc.Close()
}
