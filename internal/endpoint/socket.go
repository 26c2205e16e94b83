package endpoint

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Socket service method names.
const (
	socketServiceName   = "smart_home_socket.Socket"
	socketMethodOn      = "/" + socketServiceName + "/On"
	socketMethodOff     = "/" + socketServiceName + "/Off"
	socketMethodCurrent = "/" + socketServiceName + "/CurrentPower"
)

// Socket messages are protobuf. On and Off carry empty messages both ways;
// CurrentPower replies with a single double in field 1, which is the wire
// shape of wrapperspb.DoubleValue.

// SocketClient controls a gRPC smart socket.
type SocketClient struct {
	server string
	cfg    Config
	conn   *grpc.ClientConn
}

// NewSocketClient creates a client for the socket at server. The gRPC
// connection is established lazily on the first call.
func NewSocketClient(server string, cfg Config) (*SocketClient, error) {
	conn, err := grpc.NewClient(server,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating grpc client for %s: %w", server, err)
	}
	return &SocketClient{server: server, cfg: cfg, conn: conn}, nil
}

// TurnOn switches the socket on. A nil error means the socket accepted
// the command.
func (c *SocketClient) TurnOn(ctx context.Context) error {
	return c.invoke(ctx, socketMethodOn, &emptypb.Empty{}, &emptypb.Empty{})
}

// TurnOff switches the socket off.
func (c *SocketClient) TurnOff(ctx context.Context) error {
	return c.invoke(ctx, socketMethodOff, &emptypb.Empty{}, &emptypb.Empty{})
}

// Power returns the current power draw in watts.
func (c *SocketClient) Power(ctx context.Context) (float64, error) {
	resp := &wrapperspb.DoubleValue{}
	if err := c.invoke(ctx, socketMethodCurrent, &emptypb.Empty{}, resp); err != nil {
		return 0, err
	}
	return resp.GetValue(), nil
}

// Close releases the underlying gRPC connection.
func (c *SocketClient) Close() error {
	return c.conn.Close()
}

func (c *SocketClient) invoke(ctx context.Context, method string, req, resp proto.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.readTimeout())
		defer cancel()
	}
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		return fmt.Errorf("calling %s on %s: %w", method, c.server, err)
	}
	return nil
}
