package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/danielpatrickdp/aisp-verify/internal/validator"
)

// #region client-struct
// Client calls a remote Verifier. It satisfies batch.Validator, so batch
// and watch runs can validate remotely.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to a Verifier at addr.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn creates a Client over an existing connection.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close shuts down a connection opened by NewClient.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion constructor

// #region calls
// Validate sends the document to the server and decodes the result.
func (c *Client) Validate(ctx context.Context, name string, src []byte) (*validator.Result, error) {
	req, err := newRequest(name, src)
	if err != nil {
		return nil, fmt.Errorf("validate rpc: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, validateMethod, req, out); err != nil {
		return nil, fmt.Errorf("validate rpc: %w", err)
	}
	return decodeResult(out)
}

// Tier returns only the document's tier name.
func (c *Client) Tier(ctx context.Context, name string, src []byte) (string, error) {
	req, err := newRequest(name, src)
	if err != nil {
		return "", fmt.Errorf("tier rpc: %w", err)
	}
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, tierMethod, req, out); err != nil {
		return "", fmt.Errorf("tier rpc: %w", err)
	}
	return out.GetValue(), nil
}

// Healthy reports whether the Verifier service is serving.
func (c *Client) Healthy(ctx context.Context) error {
	resp, err := healthpb.NewHealthClient(c.cc).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return fmt.Errorf("health rpc: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("verifier is %s", resp.GetStatus())
	}
	return nil
}

// #endregion calls
