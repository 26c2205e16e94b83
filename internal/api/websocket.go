package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/smarthome-hub/internal/infrastructure/config"
	"github.com/nerrad567/smarthome-hub/internal/infrastructure/logging"
	"github.com/nerrad567/smarthome-hub/internal/registry"
	"github.com/nerrad567/smarthome-hub/internal/telemetry"
)

// Stream message types. Clients send subscribe, unsubscribe and ping; the
// hub answers with subscribed, unsubscribed, pong or error and pushes
// reading messages to subscribers.
const (
	StreamSubscribe    = "subscribe"
	StreamUnsubscribe  = "unsubscribe"
	StreamPing         = "ping"
	StreamSubscribed   = "subscribed"
	StreamUnsubscribed = "unsubscribed"
	StreamPong         = "pong"
	StreamReading      = "reading"
	StreamError        = "error"
)

// streamQueue is how many messages a slow client may fall behind before
// further readings to it are dropped.
const streamQueue = 256

// ReadingFilter selects readings by location and device kind. Empty
// fields match everything, so the zero filter selects every reading.
type ReadingFilter struct {
	Home string `json:"home,omitempty"`
	Room string `json:"room,omitempty"`
	Kind string `json:"kind,omitempty"`
}

// canonical validates f and returns it with names in stored form.
func (f ReadingFilter) canonical() (ReadingFilter, error) {
	var err error
	if f.Home != "" {
		if f.Home, err = registry.ValidateName(f.Home); err != nil {
			return f, fmt.Errorf("home: %w", err)
		}
	}
	if f.Room != "" {
		if f.Room, err = registry.ValidateName(f.Room); err != nil {
			return f, fmt.Errorf("room: %w", err)
		}
	}
	switch f.Kind {
	case "", registry.KindThermometer.String(), registry.KindSocket.String():
	default:
		return f, fmt.Errorf("kind %q is not %s or %s",
			f.Kind, registry.KindThermometer, registry.KindSocket)
	}
	return f, nil
}

// Match reports whether r passes the filter.
func (f ReadingFilter) Match(r telemetry.Reading) bool {
	return (f.Home == "" || f.Home == r.Home) &&
		(f.Room == "" || f.Room == r.Room) &&
		(f.Kind == "" || f.Kind == r.Kind.String())
}

// StreamRequest is a message from a WebSocket client.
type StreamRequest struct {
	Type   string        `json:"type"`
	ID     string        `json:"id,omitempty"`
	Filter ReadingFilter `json:"filter"`
}

// StreamMessage is a message to a WebSocket client. Reading is set for
// reading messages, Filter for subscribed and Error for error.
type StreamMessage struct {
	Type    string             `json:"type"`
	ID      string             `json:"id,omitempty"`
	Filter  *ReadingFilter     `json:"filter,omitempty"`
	Reading *telemetry.Reading `json:"reading,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Stream fans sampled readings out to WebSocket subscribers. It is a
// telemetry.Sink: each Send replaces the latest sweep, which new
// subscribers receive straight away.
type Stream struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	latest  []telemetry.Reading
}

// streamClient is one WebSocket connection. filter is nil until the
// client subscribes.
type streamClient struct {
	conn *websocket.Conn
	out  chan []byte

	mu     sync.Mutex
	filter *ReadingFilter
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // CORS middleware decides
}

// NewStream creates an empty stream.
func NewStream(cfg config.WebSocketConfig, logger *logging.Logger) *Stream {
	return &Stream{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*streamClient]struct{}),
	}
}

// Run blocks until ctx is done, then disconnects every client.
func (s *Stream) Run(ctx context.Context) {
	<-ctx.Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.out)
	}
}

// Send records readings as the latest sweep and pushes each one to every
// client whose filter matches.
func (s *Stream) Send(_ context.Context, readings []telemetry.Reading) error {
	encoded := make([][]byte, len(readings))
	for i := range readings {
		data, err := json.Marshal(StreamMessage{Type: StreamReading, Reading: &readings[i]})
		if err != nil {
			return fmt.Errorf("encoding reading for %s: %w", readings[i].Device, err)
		}
		encoded[i] = data
	}

	s.mu.Lock()
	s.latest = append(s.latest[:0:0], readings...)
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		f := c.currentFilter()
		if f == nil {
			continue
		}
		for i, r := range readings {
			if f.Match(r) {
				s.queue(c, encoded[i])
			}
		}
	}
	return nil
}

// ClientCount returns how many clients are connected.
func (s *Stream) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// SubscriberCount returns how many connected clients hold a subscription.
func (s *Stream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for c := range s.clients {
		if c.currentFilter() != nil {
			n++
		}
	}
	return n
}

// queue hands data to c without blocking. Callers hold s.mu, which keeps
// c.out open for the duration.
func (s *Stream) queue(c *streamClient, data []byte) {
	select {
	case c.out <- data:
	default:
		s.logger.Debug("websocket client lagging, message dropped")
	}
}

// reply encodes msg and queues it for c if c is still connected.
func (s *Stream) reply(c *streamClient, msg StreamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("encoding websocket reply failed", "type", msg.Type, "error", err)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.clients[c]; ok {
		s.queue(c, data)
	}
}

func (s *Stream) add(c *streamClient) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()
	s.logger.Debug("websocket client connected", "clients", n)
}

// remove drops c. Only the call that finds c closes its queue.
func (s *Stream) remove(c *streamClient) {
	s.mu.Lock()
	_, ok := s.clients[c]
	if ok {
		delete(s.clients, c)
		close(c.out)
	}
	n := len(s.clients)
	s.mu.Unlock()
	if ok {
		s.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// subscribe installs filter on c and queues the matching latest readings
// after the confirmation.
func (s *Stream) subscribe(c *streamClient, id string, filter ReadingFilter) {
	c.mu.Lock()
	c.filter = &filter
	c.mu.Unlock()

	s.reply(c, StreamMessage{Type: StreamSubscribed, ID: id, Filter: &filter})

	s.mu.RLock()
	var snapshot []telemetry.Reading
	for _, r := range s.latest {
		if filter.Match(r) {
			snapshot = append(snapshot, r)
		}
	}
	s.mu.RUnlock()

	for i := range snapshot {
		s.reply(c, StreamMessage{Type: StreamReading, Reading: &snapshot[i]})
	}
}

func (c *streamClient) currentFilter() *ReadingFilter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// handleWebSocket upgrades the request and serves the reading stream.
// Clients receive nothing until they subscribe.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "request_id", requestID(r.Context()))
		return
	}

	c := &streamClient{conn: conn, out: make(chan []byte, streamQueue)}
	s.stream.add(c)
	go s.stream.write(c)
	go s.stream.read(c)
}

func (s *Stream) timeouts() (ping, pong time.Duration) {
	return s.cfg.PingInterval, s.cfg.PongTimeout
}

// read handles client requests until the connection fails or goes quiet
// for longer than one ping interval plus the pong timeout.
func (s *Stream) read(c *streamClient) {
	defer func() {
		s.remove(c)
		c.conn.Close()
	}()

	ping, pong := s.timeouts()
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(ping + pong)) }
	c.conn.SetReadLimit(int64(s.cfg.MaxMessageSize))
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		if err := extend(); err != nil {
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		var req StreamRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.reply(c, StreamMessage{Type: StreamError, Error: "invalid JSON message"})
			continue
		}
		s.handle(c, req)
	}
}

func (s *Stream) handle(c *streamClient, req StreamRequest) {
	switch req.Type {
	case StreamSubscribe:
		filter, err := req.Filter.canonical()
		if err != nil {
			s.reply(c, StreamMessage{Type: StreamError, ID: req.ID, Error: err.Error()})
			return
		}
		s.subscribe(c, req.ID, filter)
	case StreamUnsubscribe:
		c.mu.Lock()
		c.filter = nil
		c.mu.Unlock()
		s.reply(c, StreamMessage{Type: StreamUnsubscribed, ID: req.ID})
	case StreamPing:
		s.reply(c, StreamMessage{Type: StreamPong, ID: req.ID})
	default:
		s.reply(c, StreamMessage{Type: StreamError, ID: req.ID, Error: fmt.Sprintf("unknown message type %q", req.Type)})
	}
}

// write drains c.out onto the connection and keeps it alive with pings.
func (s *Stream) write(c *streamClient) {
	ping, pong := s.timeouts()
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case msg, ok := <-c.out:
			if !ok {
				//nolint:errcheck // Connection is going away regardless
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub shutting down"),
					time.Now().Add(pong))
				return
			}
			kind, data = websocket.TextMessage, msg
		case <-ticker.C:
			kind = websocket.PingMessage
		}
		if err := c.conn.SetWriteDeadline(time.Now().Add(pong)); err != nil {
			return
		}
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}
