package endpoint

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Simulated power range in watts for a socket that is on.
const (
	minSimulatedPower = 1.0
	maxSimulatedPower = 200.0
)

// socketService is the server side of smart_home_socket.Socket.
type socketService interface {
	on(ctx context.Context) error
	off(ctx context.Context) error
	currentPower(ctx context.Context) (float64, error)
}

var socketServiceDesc = grpc.ServiceDesc{
	ServiceName: socketServiceName,
	HandlerType: (*socketService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "On",
			Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				if err := dec(&emptypb.Empty{}); err != nil {
					return nil, err
				}
				return &emptypb.Empty{}, srv.(socketService).on(ctx)
			},
		},
		{
			MethodName: "Off",
			Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				if err := dec(&emptypb.Empty{}); err != nil {
					return nil, err
				}
				return &emptypb.Empty{}, srv.(socketService).off(ctx)
			},
		},
		{
			MethodName: "CurrentPower",
			Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				if err := dec(&emptypb.Empty{}); err != nil {
					return nil, err
				}
				power, err := srv.(socketService).currentPower(ctx)
				if err != nil {
					return nil, err
				}
				return wrapperspb.Double(power), nil
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "smart_home_socket.proto",
}

// SocketServer simulates a gRPC smart socket. Switching it on picks a
// random draw between 1 and 200 W; switching it off drops the draw to 0.
type SocketServer struct {
	mu     sync.Mutex
	state  bool
	power  float64
	server *grpc.Server
	logger Logger
}

// NewSocketServer creates a simulator that starts switched off.
func NewSocketServer() *SocketServer {
	s := &SocketServer{logger: noopLogger{}}
	s.server = grpc.NewServer()
	s.server.RegisterService(&socketServiceDesc, s)
	return s
}

// SetLogger sets the logger for the simulator.
func (s *SocketServer) SetLogger(logger Logger) {
	s.logger = logger
}

// Serve accepts connections on lis until Stop is called.
func (s *SocketServer) Serve(lis net.Listener) error {
	s.logger.Info("socket simulator listening", "address", lis.Addr().String())
	if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and serves until Stop is called.
func (s *SocketServer) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Stop gracefully stops the server.
func (s *SocketServer) Stop() {
	s.server.GracefulStop()
}

// State reports whether the simulated socket is on and its current draw.
func (s *SocketServer) State() (on bool, power float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.power
}

func (s *SocketServer) on(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = true
	s.power = minSimulatedPower + rand.Float64()*(maxSimulatedPower-minSimulatedPower)
	s.logger.Info("socket switched on", "power", s.power)
	return nil
}

func (s *SocketServer) off(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = false
	s.power = 0
	s.logger.Info("socket switched off")
	return nil
}

func (s *SocketServer) currentPower(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug("socket power requested", "power", s.power)
	return s.power, nil
}
