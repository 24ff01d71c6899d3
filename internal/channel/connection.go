// Package channel implements the persistent realtime connections: one
// Connection per logical namespace with reconnection backoff, and a
// Registry fanning connect/disconnect decisions out from the auth signal.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lqviet/boardhub/internal/model"
)

var (
	// ErrMalformedToken is returned by Connect when the token is not
	// structurally well-formed. Malformed tokens never reach the dialer.
	ErrMalformedToken = errors.New("malformed auth token")

	// ErrNotConnected is returned by Emit when the namespace has no live
	// connection.
	ErrNotConnected = errors.New("channel not connected")

	// ErrRetriesExhausted marks the terminal error state after the
	// maximum number of automatic reconnect attempts. A manual Connect
	// clears it.
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
)

// Config tunes the connection state machine.
type Config struct {
	BackoffBase    time.Duration
	BackoffGrowth  float64
	BackoffCap     time.Duration
	MaxAttempts    int
	ConnectTimeout time.Duration
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		BackoffBase:    2 * time.Second,
		BackoffGrowth:  1.5,
		BackoffCap:     30 * time.Second,
		MaxAttempts:    5,
		ConnectTimeout: 20 * time.Second,
	}
}

// ConfigFrom maps the application realtime settings onto a Config,
// filling zero values with defaults.
func ConfigFrom(rc model.RealtimeConfig) Config {
	cfg := DefaultConfig()
	if rc.BackoffBaseMS > 0 {
		cfg.BackoffBase = time.Duration(rc.BackoffBaseMS) * time.Millisecond
	}
	if rc.BackoffGrowth > 1 {
		cfg.BackoffGrowth = rc.BackoffGrowth
	}
	if rc.BackoffCapMS > 0 {
		cfg.BackoffCap = time.Duration(rc.BackoffCapMS) * time.Millisecond
	}
	if rc.MaxAttempts > 0 {
		cfg.MaxAttempts = rc.MaxAttempts
	}
	if rc.ConnectTimeoutSec > 0 {
		cfg.ConnectTimeout = rc.ConnectTimeout()
	}
	return cfg
}

// RetryDelay returns the backoff delay before the given attempt (1-based):
// min(base * growth^(attempt-1), cap).
func (c Config) RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(c.BackoffBase) * math.Pow(c.BackoffGrowth, float64(attempt-1))
	if d > float64(c.BackoffCap) {
		return c.BackoffCap
	}
	return time.Duration(d)
}

// Handler consumes one inbound event payload.
type Handler func(payload json.RawMessage)

// Subscription is the handle returned by On and OnStateChange. Disposing
// it is the only teardown needed; there is no event-name bookkeeping to
// mirror.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Connection owns the single live transport for one namespace and its
// connection state machine. At most one underlying connection exists per
// namespace at any time.
type Connection struct {
	namespace string
	dialer    Dialer
	cfg       Config
	log       *slog.Logger

	// writeMu serializes writes to the transport.
	writeMu sync.Mutex

	mu             sync.Mutex
	state          State
	attempts       int
	lastErr        error
	lastConnected  time.Time
	lastDisconnect time.Time
	token          string
	deliberate     bool
	epoch          string
	transport      Transport
	retryTimer     *time.Timer
	handlers       map[string]map[int]Handler
	stateHandlers  map[int]func(Status)
	nextSubID      int
}

// NewConnection builds a disconnected Connection for one namespace.
func NewConnection(namespace string, dialer Dialer, cfg Config, log *slog.Logger) *Connection {
	if log == nil {
		log = slog.Default()
	}
	return &Connection{
		namespace:     namespace,
		dialer:        dialer,
		cfg:           cfg,
		log:           log.With("namespace", namespace),
		state:         StateDisconnected,
		handlers:      make(map[string]map[int]Handler),
		stateHandlers: make(map[int]func(Status)),
	}
}

// Namespace returns the namespace this connection serves.
func (c *Connection) Namespace() string {
	return c.namespace
}

// Status returns a snapshot of the state machine.
func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Connected reports whether the connection is live and usable for Emit.
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

// Connect starts a connection attempt. It is a no-op while already
// connecting or connected, validates the token before any network work,
// and resets the attempt counter (a manual Connect after a terminal error
// starts a fresh cycle). A Connect on a live connection still stores the
// token, so a refreshed credential reaches the next redial.
func (c *Connection) Connect(token string) error {
	if !model.TokenWellFormed(token) {
		return ErrMalformedToken
	}

	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.token = token
		c.mu.Unlock()
		return nil
	}
	c.stopRetryLocked()
	c.token = token
	c.deliberate = false
	c.attempts = 0
	c.lastErr = nil
	c.state = StateConnecting
	epoch := uuid.New().String()
	c.epoch = epoch
	status, watchers := c.stateSnapshotLocked()
	c.mu.Unlock()

	notify(status, watchers)
	go c.dial(epoch, token)
	return nil
}

// Disconnect is the explicit, user-intended teardown. It removes all event
// listeners first, marks the teardown deliberate so no reconnect is
// scheduled, and invalidates any in-flight attempt.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	c.deliberate = true
	c.handlers = make(map[string]map[int]Handler)
	c.stopRetryLocked()
	// A fresh epoch makes any in-flight dial or read callback stale.
	c.epoch = uuid.New().String()
	t := c.transport
	c.transport = nil
	if c.state != StateDisconnected {
		c.state = StateDisconnected
		c.lastDisconnect = time.Now()
	}
	status, watchers := c.stateSnapshotLocked()
	c.mu.Unlock()

	if t != nil {
		_ = t.Close()
	}
	notify(status, watchers)
}

// Emit sends one event to the server. Fire-and-forget: a send on a dead
// connection returns ErrNotConnected and the caller falls back to REST.
func (c *Connection) Emit(event string, payload any) error {
	c.mu.Lock()
	t := c.transport
	live := c.state == StateConnected
	c.mu.Unlock()

	if !live || t == nil {
		return ErrNotConnected
	}

	data, err := encodeEvent(event, payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := t.WriteMessage(data); err != nil {
		return fmt.Errorf("writing %s event: %w", event, err)
	}
	return nil
}

// On registers a handler for an inbound event and returns its
// subscription handle.
func (c *Connection) On(event string, h Handler) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]Handler)
	}
	c.handlers[event][id] = h

	return &Subscription{cancel: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if m := c.handlers[event]; m != nil {
			delete(m, id)
			if len(m) == 0 {
				delete(c.handlers, event)
			}
		}
	}}
}

// Off removes every handler registered for an event.
func (c *Connection) Off(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, event)
}

// OnStateChange registers a watcher invoked on every state transition.
func (c *Connection) OnStateChange(fn func(Status)) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.stateHandlers[id] = fn

	return &Subscription{cancel: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.stateHandlers, id)
	}}
}

// dial performs one connection attempt for the given epoch. A result for a
// superseded epoch is dropped without touching state.
func (c *Connection) dial(epoch, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
	defer cancel()

	t, err := c.dialer(ctx, c.namespace, token)

	c.mu.Lock()
	if epoch != c.epoch || c.deliberate {
		c.mu.Unlock()
		if t != nil {
			_ = t.Close()
		}
		return
	}

	if err != nil {
		c.failLocked(epoch, err)
		status, watchers := c.stateSnapshotLocked()
		c.mu.Unlock()
		notify(status, watchers)
		return
	}

	c.transport = t
	c.state = StateConnected
	c.attempts = 0
	c.lastErr = nil
	c.lastConnected = time.Now()
	status, watchers := c.stateSnapshotLocked()
	c.mu.Unlock()

	c.log.Info("channel connected")
	notify(status, watchers)
	go c.readLoop(epoch, t)
}

// readLoop pumps inbound messages until the transport drops. Events are
// delivered in transport order.
func (c *Connection) readLoop(epoch string, t Transport) {
	for {
		data, err := t.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if epoch != c.epoch || c.deliberate {
				// Disconnect already handled this teardown.
				c.mu.Unlock()
				return
			}
			c.transport = nil
			c.lastDisconnect = time.Now()
			c.failLocked(epoch, err)
			status, watchers := c.stateSnapshotLocked()
			c.mu.Unlock()
			notify(status, watchers)
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.log.Warn("dropping undecodable event", "error", err)
			continue
		}
		if ev.Event == EventError {
			c.log.Warn("server error event", "payload", string(ev.Payload))
		}

		c.mu.Lock()
		hs := make([]Handler, 0, len(c.handlers[ev.Event]))
		for _, h := range c.handlers[ev.Event] {
			hs = append(hs, h)
		}
		c.mu.Unlock()

		for _, h := range hs {
			h(ev.Payload)
		}
	}
}

// failLocked records a connection failure and either schedules a retry or
// surfaces the terminal error state. Caller holds c.mu.
func (c *Connection) failLocked(epoch string, err error) {
	c.lastErr = err
	if c.attempts >= c.cfg.MaxAttempts {
		c.state = StateError
		c.lastErr = fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
		c.log.Error("channel giving up after max reconnect attempts",
			"attempts", c.attempts, "error", err)
		return
	}

	c.attempts++
	c.state = StateReconnecting
	delay := c.cfg.RetryDelay(c.attempts)
	c.log.Warn("channel retry scheduled",
		"attempt", c.attempts, "delay", delay, "error", err)
	c.retryTimer = time.AfterFunc(delay, func() {
		c.redial(epoch)
	})
}

// redial runs when a scheduled retry fires.
func (c *Connection) redial(prevEpoch string) {
	c.mu.Lock()
	if c.deliberate || c.state != StateReconnecting || prevEpoch != c.epoch {
		c.mu.Unlock()
		return
	}
	epoch := uuid.New().String()
	c.epoch = epoch
	token := c.token
	c.mu.Unlock()

	c.dial(epoch, token)
}

// stopRetryLocked cancels a pending retry timer. Caller holds c.mu.
func (c *Connection) stopRetryLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

func (c *Connection) statusLocked() Status {
	return Status{
		Namespace:      c.namespace,
		State:          c.state,
		Attempts:       c.attempts,
		LastError:      c.lastErr,
		LastConnected:  c.lastConnected,
		LastDisconnect: c.lastDisconnect,
	}
}

// stateSnapshotLocked captures the status and the current watcher set so
// callers can notify after releasing the lock.
func (c *Connection) stateSnapshotLocked() (Status, []func(Status)) {
	watchers := make([]func(Status), 0, len(c.stateHandlers))
	for _, fn := range c.stateHandlers {
		watchers = append(watchers, fn)
	}
	return c.statusLocked(), watchers
}

func notify(status Status, watchers []func(Status)) {
	for _, fn := range watchers {
		fn(status)
	}
}
