package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/vessel-tracker/internal/backoff"
	"github.com/rickgao/vessel-tracker/internal/feed"
)

// Supervisor owns the feed connection lifecycle: connect, subscribe, read,
// heartbeat, and reconnect with backoff until stopped. Reconnection is
// unbounded.
type Supervisor struct {
	cfg      SupervisorConfig
	ids      []string
	handler  Handler
	notifier Notifier
	logger   *slog.Logger
	policy   *backoff.Policy

	newClient func(ClientConfig, *slog.Logger) Client
	after     func(time.Duration) <-chan time.Time
	now       func() time.Time

	cancel  context.CancelFunc
	done    chan struct{}
	started bool

	mu            sync.RWMutex
	state         State
	client        Client
	attempts      uint64
	retryCount    uint
	reconnects    uint64
	lastSuccessAt time.Time
	lastHeartbeat time.Time
	lastDelay     time.Duration
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithClientFactory replaces NewClient.
func WithClientFactory(fn func(ClientConfig, *slog.Logger) Client) SupervisorOption {
	return func(s *Supervisor) {
		s.newClient = fn
	}
}

// WithAfter replaces time.After for backoff sleeps.
func WithAfter(fn func(time.Duration) <-chan time.Time) SupervisorOption {
	return func(s *Supervisor) {
		s.after = fn
	}
}

// WithBackoffPolicy replaces the policy built from SupervisorConfig.Backoff.
func WithBackoffPolicy(p *backoff.Policy) SupervisorOption {
	return func(s *Supervisor) {
		s.policy = p
	}
}

// NewSupervisor creates a Supervisor subscribing to the given vessel ids.
// An empty id list yields an unfiltered subscription. handler and notifier
// may be nil.
func NewSupervisor(cfg SupervisorConfig, ids []string, handler Handler, notifier Notifier, logger *slog.Logger, opts ...SupervisorOption) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	if handler == nil {
		handler = HandlerFunc(func([]byte, time.Time) {})
	}
	if len(cfg.MessageTypes) == 0 {
		cfg.MessageTypes = feed.DefaultMessageTypes()
	}

	s := &Supervisor{
		cfg:       cfg,
		ids:       append([]string(nil), ids...),
		handler:   handler,
		notifier:  notifier,
		logger:    logger,
		newClient: NewClient,
		after:     time.After,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy == nil {
		s.policy = backoff.New(cfg.Backoff)
	}
	return s
}

// Start runs the supervisor in a background goroutine.
func (s *Supervisor) Start(ctx context.Context) error {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}

	go s.run(ctx, cancel)

	return nil
}

// Run runs the supervisor until ctx is cancelled or Stop is called.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}

	s.run(ctx, cancel)
	return nil
}

// Stop cancels the supervisor and waits for teardown or ctx expiry.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.logger.Info("stopping supervisor")

	s.mu.Lock()
	if !s.started {
		// Never started: there is nothing to tear down
		s.started = true
		s.state = StateStopped
		close(s.done)
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		s.logger.Warn("shutdown timeout, supervisor still tearing down")
		return ctx.Err()
	}

	s.logger.Info("supervisor stopped")
	return nil
}

// Done is closed once the supervisor has stopped.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Stats returns current statistics.
func (s *Supervisor) Stats() SupervisorStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	connected := false
	if s.client != nil {
		connected = s.client.IsConnected()
	}

	return SupervisorStats{
		State:         s.state,
		Attempts:      s.attempts,
		RetryCount:    s.retryCount,
		Reconnects:    s.reconnects,
		LastSuccessAt: s.lastSuccessAt,
		LastHeartbeat: s.lastHeartbeat,
		LastDelay:     s.lastDelay,
		Connected:     connected,
	}
}

func (s *Supervisor) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.state == StateStopped {
		return nil, nil, ErrAlreadyStarted
	}
	s.started = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return ctx, cancel, nil
}

// run is the top-level reconnect loop. No fault unwinds past it.
func (s *Supervisor) run(ctx context.Context, cancel context.CancelFunc) {
	defer close(s.done)
	defer cancel()

	s.logger.Info("supervisor started",
		"url", s.cfg.Client.URL,
		"vessels", len(s.ids),
		"message_types", s.cfg.MessageTypes,
	)

	for {
		err := s.epoch(ctx)
		if ctx.Err() != nil {
			break
		}

		s.setState(StateFaulted)

		s.mu.Lock()
		s.retryCount++
		retry := s.retryCount
		delay := s.policy.NextDelay(retry)
		s.lastDelay = delay
		s.mu.Unlock()

		s.logger.Warn("connection fault, reconnecting",
			"error", err,
			"retry", retry,
			"delay", delay,
		)
		s.notify(fmt.Sprintf("connection error: %v; reconnecting in %s (attempt %d)", err, delay.Round(time.Millisecond), retry))

		select {
		case <-ctx.Done():
		case <-s.after(delay):
		}
		if ctx.Err() != nil {
			break
		}
	}

	s.setState(StateStopped)
	s.logger.Info("supervisor exited")
}

// epoch runs one connection from connect to fault. It returns the fault, or
// nil when ctx was cancelled.
func (s *Supervisor) epoch(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateConnecting
	s.attempts++
	attempt := s.attempts
	s.mu.Unlock()

	s.logger.Debug("connecting", "attempt", attempt, "url", s.cfg.Client.URL)

	client := s.newClient(s.cfg.Client, s.logger.With("attempt", attempt))
	if err := client.Connect(ctx); err != nil {
		client.Close()
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	s.mu.Lock()
	if attempt > 1 && !s.lastSuccessAt.IsZero() {
		s.reconnects++
	}
	s.retryCount = 0
	s.lastSuccessAt = s.now()
	s.client = client
	s.mu.Unlock()

	if err := s.subscribe(client); err != nil {
		return err
	}
	s.setState(StateSubscribed)

	s.logger.Info("subscribed to feed",
		"vessels", len(s.ids),
		"message_types", s.cfg.MessageTypes,
	)

	hbCtx, hbCancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go s.heartbeat(hbCtx, client, &wg)
	defer func() {
		hbCancel()
		wg.Wait()
	}()

	s.setState(StateReading)
	return s.read(ctx, client)
}

func (s *Supervisor) subscribe(client Client) error {
	req := feed.NewSubscription(s.cfg.APIKey, s.ids, s.cfg.MessageTypes)
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal subscription: %w", err)
	}
	if err := client.Send(data); err != nil {
		return fmt.Errorf("send subscription: %w", err)
	}
	return nil
}

// read hands messages to the handler in arrival order until a fault.
func (s *Supervisor) read(ctx context.Context, client Client) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-client.Errors():
			// Messages read before the fault are still delivered
			s.drain(client)
			if err == nil {
				err = ErrConnectionClosed
			}
			return err

		case msg := <-client.Messages():
			s.handler.Handle(msg.Data, msg.ReceivedAt)
		}
	}
}

func (s *Supervisor) drain(client Client) {
	for {
		select {
		case msg := <-client.Messages():
			s.handler.Handle(msg.Data, msg.ReceivedAt)
		default:
			return
		}
	}
}

// heartbeat pings on a fixed interval while the transport is open. A ping
// failure ends the heartbeat only; the read loop detects the dead connection.
func (s *Supervisor) heartbeat(ctx context.Context, client Client, wg *sync.WaitGroup) {
	defer wg.Done()

	if s.cfg.HeartbeatInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !client.IsConnected() {
				continue
			}
			if err := client.Ping(); err != nil {
				s.logger.Warn("heartbeat failed", "error", err)
				return
			}

			s.mu.Lock()
			s.lastHeartbeat = s.now()
			s.mu.Unlock()
			s.logger.Debug("heartbeat sent")
		}
	}
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Supervisor) notify(msg string) {
	if s.notifier != nil {
		s.notifier.OnError(msg)
	}
}
