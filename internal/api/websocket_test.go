package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/smarthome-hub/internal/infrastructure/database"
	"github.com/nerrad567/smarthome-hub/internal/registry"
	"github.com/nerrad567/smarthome-hub/internal/telemetry"
)

// streamReply mirrors StreamMessage with the reading in its wire form.
type streamReply struct {
	Type    string         `json:"type"`
	ID      string         `json:"id"`
	Filter  *ReadingFilter `json:"filter"`
	Reading *struct {
		Home   string   `json:"home"`
		Room   string   `json:"room"`
		Device string   `json:"device"`
		Kind   string   `json:"kind"`
		Value  *float64 `json:"value"`
		Unit   string   `json:"unit"`
		Error  string   `json:"error"`
	} `json:"reading"`
	Error string `json:"error"`
}

func kitchenReadings() []telemetry.Reading {
	return []telemetry.Reading{
		{Home: "Home", Room: "Kitchen", Device: "Thermo", Kind: registry.KindThermometer, Value: 21.5, Unit: telemetry.UnitCelsius},
		{Home: "Home", Room: "Kitchen", Device: "Kettle", Kind: registry.KindSocket, Value: 1200, Unit: telemetry.UnitWatts},
		{Home: "Home", Room: "Bedroom", Device: "Lamp", Kind: registry.KindSocket, Err: errors.New("connection refused"), Unit: telemetry.UnitWatts},
	}
}

// dialStream connects a WebSocket client to srv's stream route.
func dialStream(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() }) //nolint:errcheck // Test cleanup

	//nolint:errcheck // Test deadline
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func send(t *testing.T, conn *websocket.Conn, req StreamRequest) {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write %s: %v", req.Type, err)
	}
}

func next(t *testing.T, conn *websocket.Conn, wantType string) streamReply {
	t.Helper()
	var msg streamReply
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read (want %s): %v", wantType, err)
	}
	if msg.Type != wantType {
		t.Fatalf("message = %+v, want type %s", msg, wantType)
	}
	return msg
}

// subscribe sends a subscription and waits for its confirmation.
func subscribe(t *testing.T, conn *websocket.Conn, filter ReadingFilter) {
	t.Helper()
	send(t, conn, StreamRequest{Type: StreamSubscribe, ID: "sub", Filter: filter})
	next(t, conn, StreamSubscribed)
}

// wantQuiet checks that nothing is queued ahead of a ping's pong.
func wantQuiet(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, StreamRequest{Type: StreamPing, ID: "quiet"})
	if msg := next(t, conn, StreamPong); msg.ID != "quiet" {
		t.Errorf("pong id = %q, want quiet", msg.ID)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// ─── Filters ───────────────────────────────────────────────────────

func TestReadingFilter_Match(t *testing.T) {
	r := kitchenReadings()[1]

	tests := []struct {
		name   string
		filter ReadingFilter
		want   bool
	}{
		{"zero filter", ReadingFilter{}, true},
		{"home", ReadingFilter{Home: "Home"}, true},
		{"other home", ReadingFilter{Home: "Cottage"}, false},
		{"room and kind", ReadingFilter{Room: "Kitchen", Kind: "socket"}, true},
		{"other kind", ReadingFilter{Kind: "thermometer"}, false},
		{"other room", ReadingFilter{Home: "Home", Room: "Bedroom"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(r); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadingFilter_Canonical(t *testing.T) {
	got, err := ReadingFilter{Home: "Cafe\u0301", Kind: "thermometer"}.canonical()
	if err != nil {
		t.Fatalf("canonical() error = %v", err)
	}
	if got.Home != "Caf\u00e9" {
		t.Errorf("home = %q, want NFC form", got.Home)
	}

	if _, err := (ReadingFilter{Kind: "kettle"}).canonical(); err == nil {
		t.Error("unknown kind: want error")
	}
	if _, err := (ReadingFilter{Room: " "}).canonical(); !errors.Is(err, registry.ErrInvalidName) {
		t.Errorf("blank room error = %v, want ErrInvalidName", err)
	}
}

// ─── Stream ────────────────────────────────────────────────────────

func TestStream_SendFiltersByRoomAndKind(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialStream(t, srv)
	subscribe(t, conn, ReadingFilter{Room: "Kitchen", Kind: "socket"})

	if err := srv.Stream().Send(context.Background(), kitchenReadings()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	msg := next(t, conn, StreamReading)
	if msg.Reading == nil || msg.Reading.Device != "Kettle" {
		t.Fatalf("reading = %+v, want Kettle", msg.Reading)
	}
	if msg.Reading.Value == nil || *msg.Reading.Value != 1200 || msg.Reading.Unit != "watts" {
		t.Errorf("reading = %+v, want 1200 watts", msg.Reading)
	}
	wantQuiet(t, conn)
}

func TestStream_FailedReadingCarriesError(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialStream(t, srv)
	subscribe(t, conn, ReadingFilter{Room: "Bedroom"})

	if err := srv.Stream().Send(context.Background(), kitchenReadings()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	msg := next(t, conn, StreamReading)
	if msg.Reading.Error != "connection refused" || msg.Reading.Value != nil {
		t.Errorf("reading = %+v, want error and no value", msg.Reading)
	}
}

func TestStream_SubscribeReplaysLatestSweep(t *testing.T) {
	srv, _ := testServer(t)
	if err := srv.Stream().Send(context.Background(), kitchenReadings()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	conn := dialStream(t, srv)
	send(t, conn, StreamRequest{Type: StreamSubscribe, ID: "1", Filter: ReadingFilter{Kind: "thermometer"}})

	ack := next(t, conn, StreamSubscribed)
	if ack.ID != "1" || ack.Filter == nil || ack.Filter.Kind != "thermometer" {
		t.Errorf("subscribed = %+v", ack)
	}
	if msg := next(t, conn, StreamReading); msg.Reading.Device != "Thermo" {
		t.Errorf("replayed reading = %+v, want Thermo", msg.Reading)
	}
	wantQuiet(t, conn)
}

func TestStream_NothingBeforeSubscribe(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialStream(t, srv)
	waitFor(t, "client registration", func() bool { return srv.Stream().ClientCount() == 1 })

	if err := srv.Stream().Send(context.Background(), kitchenReadings()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	wantQuiet(t, conn)
}

func TestStream_Unsubscribe(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialStream(t, srv)
	subscribe(t, conn, ReadingFilter{})

	send(t, conn, StreamRequest{Type: StreamUnsubscribe, ID: "u"})
	if msg := next(t, conn, StreamUnsubscribed); msg.ID != "u" {
		t.Errorf("unsubscribed id = %q, want u", msg.ID)
	}

	if err := srv.Stream().Send(context.Background(), kitchenReadings()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	wantQuiet(t, conn)
}

func TestStream_BadRequests(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialStream(t, srv)

	send(t, conn, StreamRequest{Type: StreamSubscribe, ID: "k", Filter: ReadingFilter{Kind: "kettle"}})
	if msg := next(t, conn, StreamError); msg.ID != "k" || !strings.Contains(msg.Error, "kettle") {
		t.Errorf("error = %+v", msg)
	}

	send(t, conn, StreamRequest{Type: "shout", ID: "s"})
	if msg := next(t, conn, StreamError); msg.ID != "s" {
		t.Errorf("error = %+v", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	next(t, conn, StreamError)

	// A rejected filter leaves the client unsubscribed.
	if n := srv.Stream().SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", n)
	}
}

func TestStream_Counts(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialStream(t, srv)
	dialStream(t, srv)

	waitFor(t, "two clients", func() bool { return srv.Stream().ClientCount() == 2 })
	subscribe(t, conn, ReadingFilter{Home: "Home"})
	if n := srv.Stream().SubscriberCount(); n != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", n)
	}

	conn.Close()
	waitFor(t, "disconnect", func() bool { return srv.Stream().ClientCount() == 1 })
}

func TestStream_RunDisconnectsOnCancel(t *testing.T) {
	srv, _ := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Stream().Run(ctx)
	}()

	conn := dialStream(t, srv)
	waitFor(t, "client registration", func() bool { return srv.Stream().ClientCount() == 1 })
	cancel()
	<-done

	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("read after cancel = %v, want going-away close", err)
	}
	if n := srv.Stream().ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d, want 0", n)
	}
}

// ─── Schema reporting ──────────────────────────────────────────────

func TestHealth_ReportsSchemaVersion(t *testing.T) {
	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: time.Second})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if _, err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	srv, _ := testServer(t)
	srv.db = db
	h := srv.buildRouter()

	w := do(t, h, http.MethodGet, "/api/v1/health", "")
	wantStatus(t, w, http.StatusOK)
	var health map[string]any
	decode(t, w, &health)
	if health["status"] != "ok" || health["schema_version"] != "20260301_120000" {
		t.Errorf("health = %v, want ok at schema 20260301_120000", health)
	}

	w = do(t, h, http.MethodGet, "/api/v1/metrics", "")
	var m HubMetrics
	decode(t, w, &m)
	if !m.Database.Enabled || m.Database.SchemaVersion != "20260301_120000" {
		t.Errorf("database metrics = %+v", m.Database)
	}

	db.Close() //nolint:errcheck // Forcing a failing store
	w = do(t, h, http.MethodGet, "/api/v1/health", "")
	decode(t, w, &health)
	if health["status"] != "degraded" {
		t.Errorf("status with closed store = %v, want degraded", health["status"])
	}
}
