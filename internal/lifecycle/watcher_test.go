package lifecycle

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/lqviet/boardhub/internal/channel"
	"github.com/lqviet/boardhub/internal/logging"
	"github.com/lqviet/boardhub/internal/model"
)

const testToken = "header.payload.signature"

// fakeRegistry records the calls the watcher makes.
type fakeRegistry struct {
	mu        sync.Mutex
	applies   []model.AuthSignal
	shutdowns int
}

func (r *fakeRegistry) Apply(signal model.AuthSignal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applies = append(r.applies, signal)
}

func (r *fakeRegistry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdowns++
}

func (r *fakeRegistry) applyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.applies)
}

func (r *fakeRegistry) shutdownCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shutdowns
}

// fakeFeed records synthesized notifications.
type fakeFeed struct {
	mu    sync.Mutex
	items []model.Notification
}

func (f *fakeFeed) ApplyInbound(n model.Notification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, n)
	return true
}

func (f *fakeFeed) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func (f *fakeFeed) last() model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[len(f.items)-1]
}

func startWatcher(t *testing.T) (*fakeRegistry, *fakeFeed, chan<- Event) {
	t.Helper()
	registry := &fakeRegistry{}
	feed := &fakeFeed{}
	events := make(chan Event, 16)

	w := NewWatcher(registry, feed, events, logging.Discard())
	w.Start()
	t.Cleanup(w.Stop)

	return registry, feed, events
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestAuthChangeAppliesOnce(t *testing.T) {
	registry, _, events := startWatcher(t)

	signal := model.AuthSignal{Token: testToken}
	events <- AuthChanged{Signal: signal}
	events <- AuthChanged{Signal: signal}
	events <- AuthChanged{Signal: model.AuthSignal{
		Token:       testToken,
		Preferences: map[string]bool{"boards": true},
	}}

	waitFor(t, func() bool { return registry.applyCount() >= 1 }, "registry apply")
	time.Sleep(20 * time.Millisecond)

	// Repeats and equivalent signals collapse into the first apply.
	if got := registry.applyCount(); got != 1 {
		t.Errorf("apply count = %d, want 1", got)
	}
}

func TestDistinctSignalsEachApply(t *testing.T) {
	registry, _, events := startWatcher(t)

	events <- AuthChanged{Signal: model.AuthSignal{Token: testToken}}
	events <- AuthChanged{Signal: model.AuthSignal{Token: testToken, Elevated: true}}
	events <- AuthChanged{Signal: model.AuthSignal{
		Token:       testToken,
		Preferences: map[string]bool{"notifications": false, "boards": false},
	}}

	waitFor(t, func() bool { return registry.applyCount() == 3 }, "three applies")
}

func TestLogoutForcesShutdown(t *testing.T) {
	registry, _, events := startWatcher(t)

	events <- AuthChanged{Signal: model.AuthSignal{Token: testToken}}
	events <- LoggedOut{}

	waitFor(t, func() bool { return registry.shutdownCount() == 1 }, "shutdown")

	// A fresh login after logout applies again even with the same token.
	events <- AuthChanged{Signal: model.AuthSignal{Token: testToken}}
	waitFor(t, func() bool { return registry.applyCount() == 2 }, "re-apply after logout")
}

// wsTransport is a minimal in-memory channel transport for exercising a
// real workspace connection.
type wsTransport struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once
}

func newWSTransport() *wsTransport {
	return &wsTransport{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	select {
	case data := <-t.in:
		return data, nil
	case <-t.closed:
		return nil, io.EOF
	}
}

func (t *wsTransport) WriteMessage([]byte) error { return nil }

func (t *wsTransport) Close() error {
	t.once.Do(func() { close(t.closed) })
	return nil
}

func (t *wsTransport) deliver(tb testing.TB, event string, payload any) {
	tb.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		tb.Fatalf("marshaling payload: %v", err)
	}
	data, err := json.Marshal(channel.Event{Event: event, Payload: raw})
	if err != nil {
		tb.Fatalf("marshaling event: %v", err)
	}
	t.in <- data
}

type wsDialer struct {
	mu      sync.Mutex
	current *wsTransport
}

func (d *wsDialer) dial(_ context.Context, _, _ string) (channel.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = newWSTransport()
	return d.current, nil
}

func (d *wsDialer) transport() *wsTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func wsConnection(t *testing.T, d *wsDialer) *channel.Connection {
	t.Helper()
	cfg := channel.Config{
		BackoffBase:    time.Millisecond,
		BackoffGrowth:  1.5,
		BackoffCap:     10 * time.Millisecond,
		MaxAttempts:    5,
		ConnectTimeout: time.Second,
	}
	return channel.NewConnection(channel.NamespaceWorkspace, d.dial, cfg, logging.Discard())
}

func TestWorkspaceBridgeSurvivesReconnect(t *testing.T) {
	feed := &fakeFeed{}
	w := NewWatcher(&fakeRegistry{}, feed, make(chan Event), logging.Discard())
	t.Cleanup(w.Stop)

	d := &wsDialer{}
	conn := wsConnection(t, d)
	w.BindWorkspaceChannel(conn)
	conn.OnStateChange(func(status channel.Status) {
		if status.State == channel.StateConnected {
			w.BindWorkspaceChannel(conn)
		}
	})

	if err := conn.Connect(testToken); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitFor(t, conn.Connected, "workspace connect")

	d.transport().deliver(t, "workspace:archived",
		map[string]string{"workspaceId": "ws-1", "name": "Ops"})
	waitFor(t, func() bool { return feed.count() == 1 }, "bridged event")

	// The deliberate disconnect drops the connection's event handlers;
	// the state-change rebind restores the bridge.
	conn.Disconnect()
	waitFor(t, func() bool { return !conn.Connected() }, "disconnect")

	if err := conn.Connect(testToken); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	waitFor(t, conn.Connected, "workspace reconnect")

	d.transport().deliver(t, "workspace:archived",
		map[string]string{"workspaceId": "ws-1", "name": "Ops"})
	waitFor(t, func() bool { return feed.count() == 2 }, "bridged event after reconnect")

	if n := feed.last(); n.Related == nil || n.Related.ID != "ws-1" {
		t.Errorf("related = %+v, want workspace ws-1", n.Related)
	}
}

func TestBindWorkspaceChannelReplacesBindings(t *testing.T) {
	feed := &fakeFeed{}
	w := NewWatcher(&fakeRegistry{}, feed, make(chan Event), logging.Discard())
	t.Cleanup(w.Stop)

	d := &wsDialer{}
	conn := wsConnection(t, d)
	w.BindWorkspaceChannel(conn)
	w.BindWorkspaceChannel(conn)

	if err := conn.Connect(testToken); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitFor(t, conn.Connected, "workspace connect")

	d.transport().deliver(t, "member:added",
		map[string]string{"workspaceId": "ws-2", "name": "Ops", "member": "dana"})
	waitFor(t, func() bool { return feed.count() == 1 }, "bridged event")

	// A second bind must not stack a duplicate handler set.
	time.Sleep(20 * time.Millisecond)
	if got := feed.count(); got != 1 {
		t.Errorf("feed count = %d, want 1", got)
	}
}

func TestWorkspaceCreatedSynthesizesNotification(t *testing.T) {
	_, feed, events := startWatcher(t)

	events <- WorkspaceCreated{
		WorkspaceID:   "ws-9",
		Name:          "Design",
		CorrelationID: "corr-123",
	}

	waitFor(t, func() bool { return feed.count() == 1 }, "synthesized notification")

	n := feed.last()
	if !n.ClientOnly {
		t.Error("synthesized notification not marked client-only")
	}
	if n.CorrelationID != "corr-123" {
		t.Errorf("correlation id = %q, want the caller's", n.CorrelationID)
	}
	if n.Type != model.TypeSuccess {
		t.Errorf("type = %s, want success", n.Type)
	}
	if n.Related == nil || n.Related.ID != "ws-9" {
		t.Errorf("related = %+v, want workspace ws-9", n.Related)
	}
}
