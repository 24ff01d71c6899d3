// Package lifecycle drives the channel registry from authentication and
// preference changes, and synthesizes instant local notifications for
// state mutations the user just performed.
//
// It is a narrow watcher over an explicit event stream, not an
// interceptor of every application action.
package lifecycle

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lqviet/boardhub/internal/channel"
	"github.com/lqviet/boardhub/internal/model"
)

// Event is one entry on the watcher's input stream.
type Event interface{ isLifecycleEvent() }

// AuthChanged reports a new authentication signal (login, token refresh,
// preference change).
type AuthChanged struct {
	Signal model.AuthSignal
}

// LoggedOut is the explicit logout action. It forces a disconnect across
// every namespace regardless of the signal comparison, so logout wins any
// race with a concurrent auth change.
type LoggedOut struct{}

// WorkspaceCreated reports a workspace the user just created locally.
// CorrelationID is the id sent with the create request; the server echoes
// it on the confirming event so the duplicate is suppressed exactly.
type WorkspaceCreated struct {
	WorkspaceID   string
	Name          string
	CorrelationID string
}

func (AuthChanged) isLifecycleEvent()      {}
func (LoggedOut) isLifecycleEvent()        {}
func (WorkspaceCreated) isLifecycleEvent() {}

// Registry is the slice of the channel registry the watcher drives.
type Registry interface {
	Apply(model.AuthSignal)
	Shutdown()
}

// Feed is where synthesized notifications land. The synchronizer
// satisfies it.
type Feed interface {
	ApplyInbound(n model.Notification) bool
}

// Inbound workspace events bridged into the feed.
const (
	eventWorkspaceArchived = "workspace:archived"
	eventMemberAdded       = "member:added"
)

// Watcher consumes lifecycle events and drives the registry exactly once
// per auth change.
type Watcher struct {
	registry Registry
	feed     Feed
	events   <-chan Event
	log      *slog.Logger

	mu          sync.Mutex
	prev        model.AuthSignal
	seenSignal  bool
	onWorkspace func(kind string, workspaceID, name string)
	subs        []*channel.Subscription

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewWatcher builds a watcher over the given event stream.
func NewWatcher(registry Registry, feed Feed, events <-chan Event, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		registry: registry,
		feed:     feed,
		events:   events,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

// OnWorkspaceChange registers the callback invoked when an inbound
// workspace event updates workspace state.
func (w *Watcher) OnWorkspaceChange(fn func(kind string, workspaceID, name string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onWorkspace = fn
}

// Start runs the event loop until Stop.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case <-w.stopCh:
				return
			case ev, ok := <-w.events:
				if !ok {
					return
				}
				w.handle(ev)
			}
		}
	}()
}

// Stop halts the event loop and drops the workspace channel handlers.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })

	w.mu.Lock()
	subs := w.subs
	w.subs = nil
	w.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// handle applies one lifecycle event.
func (w *Watcher) handle(ev Event) {
	switch e := ev.(type) {
	case AuthChanged:
		w.handleAuthChanged(e.Signal)
	case LoggedOut:
		w.mu.Lock()
		w.prev = model.AuthSignal{}
		w.seenSignal = true
		w.mu.Unlock()
		w.log.Info("logout, disconnecting all namespaces")
		w.registry.Shutdown()
	case WorkspaceCreated:
		w.synthesizeWorkspaceCreated(e)
	}
}

// handleAuthChanged drives the registry exactly once per signal change.
func (w *Watcher) handleAuthChanged(signal model.AuthSignal) {
	w.mu.Lock()
	if w.seenSignal && w.prev.Equal(signal) {
		w.mu.Unlock()
		return
	}
	w.prev = signal
	w.seenSignal = true
	w.mu.Unlock()

	w.registry.Apply(signal)
}

// synthesizeWorkspaceCreated inserts an instant client-only notification
// so the UI reflects the mutation before the server round-trip completes.
func (w *Watcher) synthesizeWorkspaceCreated(e WorkspaceCreated) {
	n := model.NewLocal(
		model.TypeSuccess,
		"Workspace created",
		fmt.Sprintf("Workspace %q is ready", e.Name),
		&model.RelatedEntity{Type: "workspace", ID: e.WorkspaceID, Name: e.Name},
	)
	if e.CorrelationID != "" {
		n.CorrelationID = e.CorrelationID
	}
	w.feed.ApplyInbound(n)
}

// BindWorkspaceChannel bridges inbound workspace events into both the
// workspace state callback and the notification feed, so every visible
// side effect has a feed entry even before the backend models it as one.
// Calling it again replaces the previous bindings, so it is safe to run
// on every reconnect of the workspace namespace.
func (w *Watcher) BindWorkspaceChannel(conn *channel.Connection) {
	w.mu.Lock()
	old := w.subs
	w.subs = nil
	w.mu.Unlock()
	for _, sub := range old {
		sub.Unsubscribe()
	}

	subs := []*channel.Subscription{
		conn.On(eventWorkspaceArchived, func(payload json.RawMessage) {
			var body struct {
				WorkspaceID string `json:"workspaceId"`
				Name        string `json:"name"`
			}
			if err := json.Unmarshal(payload, &body); err != nil {
				w.log.Warn("dropping undecodable workspace:archived", "error", err)
				return
			}
			w.notifyWorkspace("archived", body.WorkspaceID, body.Name)
			w.feed.ApplyInbound(model.NewLocal(
				model.TypeWarning,
				"Workspace archived",
				fmt.Sprintf("Workspace %q was archived", body.Name),
				&model.RelatedEntity{Type: "workspace", ID: body.WorkspaceID, Name: body.Name},
			))
		}),
		conn.On(eventMemberAdded, func(payload json.RawMessage) {
			var body struct {
				WorkspaceID string `json:"workspaceId"`
				Name        string `json:"name"`
				Member      string `json:"member"`
			}
			if err := json.Unmarshal(payload, &body); err != nil {
				w.log.Warn("dropping undecodable member:added", "error", err)
				return
			}
			w.notifyWorkspace("member_added", body.WorkspaceID, body.Name)
			w.feed.ApplyInbound(model.NewLocal(
				model.TypeInfo,
				"Member added",
				fmt.Sprintf("%s joined %q", body.Member, body.Name),
				&model.RelatedEntity{Type: "workspace", ID: body.WorkspaceID, Name: body.Name},
			))
		}),
	}

	w.mu.Lock()
	w.subs = append(w.subs, subs...)
	w.mu.Unlock()
}

func (w *Watcher) notifyWorkspace(kind, workspaceID, name string) {
	w.mu.Lock()
	fn := w.onWorkspace
	w.mu.Unlock()
	if fn != nil {
		fn(kind, workspaceID, name)
	}
}
