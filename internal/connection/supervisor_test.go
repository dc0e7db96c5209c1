package connection

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/vessel-tracker/internal/backoff"
	"github.com/rickgao/vessel-tracker/internal/feed"
)

// fakeClient is an in-memory Client.
type fakeClient struct {
	connectErr error
	pingErr    error

	messages chan TimestampedMessage
	errors   chan error

	mu        sync.Mutex
	sent      [][]byte
	pings     int
	connected bool
	closed    bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		messages: make(chan TimestampedMessage, 16),
		errors:   make(chan error, 1),
	}
}

func (f *fakeClient) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.closed = true
	return nil
}

func (f *fakeClient) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeClient) Ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeClient) Messages() <-chan TimestampedMessage { return f.messages }
func (f *fakeClient) Errors() <-chan error                { return f.errors }
func (f *fakeClient) LastPong() time.Time                 { return time.Time{} }

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

// fakeDialer hands out pre-built clients in order and counts attempts.
type fakeDialer struct {
	mu       sync.Mutex
	clients  []*fakeClient
	attempts int
	dialed   chan *fakeClient
}

func (d *fakeDialer) factory(cfg ClientConfig, logger *slog.Logger) Client {
	d.mu.Lock()
	defer d.mu.Unlock()

	var c *fakeClient
	if d.attempts < len(d.clients) {
		c = d.clients[d.attempts]
	} else {
		c = newFakeClient()
		c.connectErr = errors.New("dial refused")
	}
	d.attempts++
	if d.dialed != nil {
		select {
		case d.dialed <- c:
		default:
		}
	}
	return c
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) OnError(msg string) {
	n.mu.Lock()
	n.messages = append(n.messages, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func testBackoff() backoff.Config {
	return backoff.Config{
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    40 * time.Millisecond,
		JitterMax:   5 * time.Millisecond,
		CapExponent: 4,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func stopSupervisor(t *testing.T, s *Supervisor) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestSupervisor_ReconnectsAfterFailures(t *testing.T) {
	const failures = 5

	dialer := &fakeDialer{}
	for i := 0; i < failures; i++ {
		c := newFakeClient()
		c.connectErr = errors.New("network unreachable")
		dialer.clients = append(dialer.clients, c)
	}
	good := newFakeClient()
	dialer.clients = append(dialer.clients, good)

	var mu sync.Mutex
	var delays []time.Duration
	after := func(d time.Duration) <-chan time.Time {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	cfg := SupervisorConfig{Backoff: testBackoff()}
	notifier := &recordingNotifier{}
	s := NewSupervisor(cfg, []string{"319113100"}, nil, notifier, nil,
		WithClientFactory(dialer.factory),
		WithAfter(after),
	)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, "reading state", func() bool { return s.State() == StateReading })

	if got := dialer.count(); got != failures+1 {
		t.Errorf("attempts = %d, want %d", got, failures+1)
	}

	stats := s.Stats()
	if stats.Attempts != failures+1 {
		t.Errorf("Stats.Attempts = %d, want %d", stats.Attempts, failures+1)
	}
	if stats.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0 after successful connect", stats.RetryCount)
	}
	if stats.LastSuccessAt.IsZero() {
		t.Error("LastSuccessAt should be set")
	}
	if !stats.Connected {
		t.Error("Connected should be true")
	}

	mu.Lock()
	got := append([]time.Duration(nil), delays...)
	mu.Unlock()

	if len(got) != failures {
		t.Fatalf("backoff sleeps = %d, want %d", len(got), failures)
	}
	policy := backoff.New(cfg.Backoff)
	limit := cfg.Backoff.MaxDelay + cfg.Backoff.JitterMax
	for i, d := range got {
		if d > limit {
			t.Errorf("delay[%d] = %v exceeds %v", i, d, limit)
		}
		if floor := policy.Deterministic(uint(i + 1)); d < floor {
			t.Errorf("delay[%d] = %v below deterministic %v", i, d, floor)
		}
	}

	if notifier.count() != failures {
		t.Errorf("notifications = %d, want %d", notifier.count(), failures)
	}

	stopSupervisor(t, s)

	if s.State() != StateStopped {
		t.Errorf("State = %v, want stopped", s.State())
	}
	if !good.closed {
		t.Error("client should be closed after Stop")
	}
}

func TestSupervisor_StopDuringBackoff(t *testing.T) {
	dialer := &fakeDialer{}

	sleeping := make(chan struct{})
	var once sync.Once
	after := func(d time.Duration) <-chan time.Time {
		once.Do(func() { close(sleeping) })
		return make(chan time.Time) // never fires
	}

	s := NewSupervisor(SupervisorConfig{Backoff: testBackoff()}, nil, nil, nil, nil,
		WithClientFactory(dialer.factory),
		WithAfter(after),
	)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-sleeping:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor never entered backoff")
	}

	if s.State() != StateFaulted {
		t.Errorf("State during backoff = %v, want faulted", s.State())
	}

	stopSupervisor(t, s)

	select {
	case <-s.Done():
	default:
		t.Fatal("Done should be closed after Stop")
	}

	if got := dialer.count(); got != 1 {
		t.Errorf("attempts = %d, want 1 (no reconnect after stop)", got)
	}
	if s.State() != StateStopped {
		t.Errorf("State = %v, want stopped", s.State())
	}
}

func TestSupervisor_ReadFaultDrainsAndReconnects(t *testing.T) {
	first := newFakeClient()
	second := newFakeClient()
	dialer := &fakeDialer{clients: []*fakeClient{first, second}}

	var mu sync.Mutex
	var handled []string
	handler := HandlerFunc(func(data []byte, receivedAt time.Time) {
		mu.Lock()
		handled = append(handled, string(data))
		mu.Unlock()
	})

	s := NewSupervisor(SupervisorConfig{Backoff: testBackoff()}, []string{"1"}, handler, nil, nil,
		WithClientFactory(dialer.factory),
		WithAfter(func(time.Duration) <-chan time.Time {
			ch := make(chan time.Time, 1)
			ch <- time.Now()
			return ch
		}),
	)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer stopSupervisor(t, s)

	waitFor(t, "first epoch", func() bool { return s.State() == StateReading })

	// Messages queued with the fault are still handled, in order.
	first.messages <- TimestampedMessage{Data: []byte("a"), ReceivedAt: time.Now()}
	first.messages <- TimestampedMessage{Data: []byte("b"), ReceivedAt: time.Now()}
	first.errors <- ErrConnectionClosed

	waitFor(t, "reconnect", func() bool { return dialer.count() == 2 && s.State() == StateReading })

	second.messages <- TimestampedMessage{Data: []byte("c"), ReceivedAt: time.Now()}
	waitFor(t, "message on second connection", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(handled) == 3
	})

	mu.Lock()
	if handled[0] != "a" || handled[1] != "b" || handled[2] != "c" {
		t.Errorf("handled = %v, want [a b c]", handled)
	}
	mu.Unlock()

	if !first.closed {
		t.Error("faulted client should be closed")
	}
	if len(second.sent) != 1 {
		t.Errorf("second connection subscriptions = %d, want 1", len(second.sent))
	}

	stats := s.Stats()
	if stats.Reconnects != 1 {
		t.Errorf("Reconnects = %d, want 1", stats.Reconnects)
	}
	if stats.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0", stats.RetryCount)
	}
}

func TestSupervisor_Heartbeat(t *testing.T) {
	c := newFakeClient()
	dialer := &fakeDialer{clients: []*fakeClient{c}}

	cfg := SupervisorConfig{Backoff: testBackoff(), HeartbeatInterval: 5 * time.Millisecond}
	s := NewSupervisor(cfg, nil, nil, nil, nil, WithClientFactory(dialer.factory))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer stopSupervisor(t, s)

	waitFor(t, "heartbeats", func() bool { return c.pingCount() >= 3 })

	if s.Stats().LastHeartbeat.IsZero() {
		t.Error("LastHeartbeat should be set")
	}
}

func TestSupervisor_HeartbeatFailureKeepsReading(t *testing.T) {
	c := newFakeClient()
	c.pingErr = errors.New("write: broken pipe")
	dialer := &fakeDialer{clients: []*fakeClient{c}}

	handled := make(chan string, 1)
	handler := HandlerFunc(func(data []byte, _ time.Time) { handled <- string(data) })

	cfg := SupervisorConfig{Backoff: testBackoff(), HeartbeatInterval: 5 * time.Millisecond}
	s := NewSupervisor(cfg, nil, handler, nil, nil, WithClientFactory(dialer.factory))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer stopSupervisor(t, s)

	waitFor(t, "first ping", func() bool { return c.pingCount() >= 1 })
	time.Sleep(30 * time.Millisecond)

	if got := c.pingCount(); got != 1 {
		t.Errorf("pings = %d, want 1 (heartbeat should stop after failure)", got)
	}
	if s.State() != StateReading {
		t.Errorf("State = %v, want reading", s.State())
	}
	if !s.Stats().LastHeartbeat.IsZero() {
		t.Error("LastHeartbeat should not be set by a failed ping")
	}

	c.messages <- TimestampedMessage{Data: []byte("still reading"), ReceivedAt: time.Now()}
	select {
	case got := <-handled:
		if got != "still reading" {
			t.Errorf("handled %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("read loop stopped after heartbeat failure")
	}

	if dialer.count() != 1 {
		t.Errorf("attempts = %d, want 1", dialer.count())
	}
}

func TestSupervisor_SubscriptionOverWebSocket(t *testing.T) {
	subscription := make(chan []byte, 1)

	server := mockWSServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		subscription <- data

		msg := `{"MessageType":"PositionReport","MetaData":{"MMSI":319113100},"Message":{"PositionReport":{"Latitude":1,"Longitude":2}}}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return
		}
		readUntilClosed(conn)
	})
	defer server.Close()

	received := make(chan []byte, 1)
	handler := HandlerFunc(func(data []byte, _ time.Time) {
		select {
		case received <- data:
		default:
		}
	})

	cfg := SupervisorConfig{
		Client:  testClientConfig(server),
		APIKey:  "secret",
		Backoff: testBackoff(),
	}
	s := NewSupervisor(cfg, []string{"319113100", "538071095"}, handler, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	var data []byte
	select {
	case data = <-subscription:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for subscription")
	}

	var req feed.SubscriptionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("subscription is not JSON: %v", err)
	}
	if req.APIKey != "secret" {
		t.Errorf("APIKey = %q", req.APIKey)
	}
	if len(req.BoundingBoxes) != 1 || req.BoundingBoxes[0] != (feed.BoundingBox{{-90, -180}, {90, 180}}) {
		t.Errorf("BoundingBoxes = %v", req.BoundingBoxes)
	}
	if len(req.FiltersShipMMSI) != 2 || req.FiltersShipMMSI[0] != "319113100" || req.FiltersShipMMSI[1] != "538071095" {
		t.Errorf("FiltersShipMMSI = %v", req.FiltersShipMMSI)
	}
	if len(req.FilterMessageTypes) != 2 {
		t.Errorf("FilterMessageTypes = %v", req.FilterMessageTypes)
	}

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for position message")
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if s.State() != StateStopped {
		t.Errorf("State = %v, want stopped", s.State())
	}
}

func TestSupervisor_StartTwice(t *testing.T) {
	dialer := &fakeDialer{clients: []*fakeClient{newFakeClient()}}
	s := NewSupervisor(SupervisorConfig{Backoff: testBackoff()}, nil, nil, nil, nil, WithClientFactory(dialer.factory))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
	stopSupervisor(t, s)
}

func TestSupervisor_StopBeforeStart(t *testing.T) {
	s := NewSupervisor(SupervisorConfig{}, nil, nil, nil, nil)
	stopSupervisor(t, s)

	select {
	case <-s.Done():
	default:
		t.Error("Done should be closed")
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Start after Stop = %v, want ErrAlreadyStarted", err)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateIdle:       "idle",
		StateConnecting: "connecting",
		StateSubscribed: "subscribed",
		StateReading:    "reading",
		StateFaulted:    "faulted",
		StateStopped:    "stopped",
		State(99):       "state(99)",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int32(state), got, want)
		}
	}
}
