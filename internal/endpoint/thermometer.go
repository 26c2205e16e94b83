package endpoint

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"time"
)

// Thermometer wire protocol.
const (
	// thermometerRequest is the single byte a client sends to ask for a reading.
	thermometerRequest byte = 0x01

	// thermometerReadingSize is the length of an encoded reading.
	thermometerReadingSize = 8
)

// ThermometerClient reads a UDP thermometer.
type ThermometerClient struct {
	server string
	cfg    Config
}

// NewThermometerClient creates a client for the thermometer at server.
// No packets are sent until Temperature is called.
func NewThermometerClient(server string, cfg Config) *ThermometerClient {
	return &ThermometerClient{server: server, cfg: cfg}
}

// Temperature requests the current reading in degrees Celsius.
//
// Returns:
//   - float64: the reading
//   - error: network failure, timeout, or ErrInvalidPayload for a reply
//     that is not exactly 8 bytes
func (c *ThermometerClient) Temperature(ctx context.Context) (float64, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", c.server)
	if err != nil {
		return 0, fmt.Errorf("dialing %s: %w", c.server, err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.cfg.readTimeout())
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return 0, fmt.Errorf("setting deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.Write([]byte{thermometerRequest}); err != nil {
		return 0, fmt.Errorf("sending request to %s: %w", c.server, err)
	}

	// One spare byte so an oversized reply is detected rather than truncated.
	buf := make([]byte, thermometerReadingSize+1)
	n, err := conn.Read(buf)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, fmt.Errorf("reading from %s: %w", c.server, ctxErr)
		}
		if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
			return 0, fmt.Errorf("reading from %s: %w", c.server, context.DeadlineExceeded)
		}
		return 0, fmt.Errorf("reading from %s: %w", c.server, err)
	}

	return decodeReading(buf[:n])
}

// encodeReading renders a reading in the thermometer wire format.
func encodeReading(v float64) []byte {
	buf := make([]byte, thermometerReadingSize)
	binary.BigEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}

// decodeReading parses the thermometer wire format.
func decodeReading(b []byte) (float64, error) {
	if len(b) != thermometerReadingSize {
		return 0, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPayload, len(b), thermometerReadingSize)
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}
