package endpoint

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"sync"
	"time"
)

// Simulated temperature behaviour.
const (
	maxSimulatedTemperature = 30.0
	temperatureDrift        = 0.01
	driftInterval           = 3 * time.Second
)

// ThermometerServer simulates a UDP thermometer. The temperature starts at
// a random value between 0 and 30 °C and drifts slowly while serving.
type ThermometerServer struct {
	conn   net.PacketConn
	logger Logger

	mu          sync.Mutex
	temperature float64
	fixed       bool

	closeOnce sync.Once
	done      chan struct{}
}

// ListenThermometer binds a thermometer simulator to addr. Use port 0 to
// pick a free port and read it back with Addr.
func ListenThermometer(addr string) (*ThermometerServer, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}
	return &ThermometerServer{
		conn:        conn,
		logger:      noopLogger{},
		temperature: rand.Float64() * maxSimulatedTemperature,
		done:        make(chan struct{}),
	}, nil
}

// SetLogger sets the logger for the simulator.
func (s *ThermometerServer) SetLogger(logger Logger) {
	s.logger = logger
}

// Addr returns the address the simulator is bound to.
func (s *ThermometerServer) Addr() string {
	return s.conn.LocalAddr().String()
}

// SetTemperature pins the reading to v and stops the drift.
func (s *ThermometerServer) SetTemperature(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperature = v
	s.fixed = true
}

// Temperature returns the value the simulator currently reports.
func (s *ThermometerServer) Temperature() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.temperature
}

// Serve answers reading requests until ctx is cancelled or Close is called.
// It returns nil on a clean shutdown.
func (s *ThermometerServer) Serve(ctx context.Context) error {
	s.logger.Info("thermometer simulator listening", "address", s.Addr())

	go s.drift(ctx)
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	buf := make([]byte, 16)
	for {
		n, peer, err := s.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			s.logger.Warn("thermometer read failed", "error", err)
			continue
		}
		if n != 1 || buf[0] != thermometerRequest {
			s.logger.Debug("ignoring unknown request", "peer", peer.String(), "bytes", n)
			continue
		}
		if _, err := s.conn.WriteTo(encodeReading(s.Temperature()), peer); err != nil {
			s.logger.Warn("thermometer reply failed", "peer", peer.String(), "error", err)
		}
	}
}

// Close stops the simulator.
func (s *ThermometerServer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *ThermometerServer) drift(ctx context.Context) {
	ticker := time.NewTicker(driftInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.fixed {
				s.temperature += (rand.Float64()*2 - 1) * temperatureDrift
			}
			s.mu.Unlock()
		}
	}
}
