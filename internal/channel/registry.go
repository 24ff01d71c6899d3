package channel

import (
	"log/slog"
	"sync"

	"github.com/lqviet/boardhub/internal/model"
)

// Registry owns one Connection per logical namespace and fans connect and
// disconnect decisions out from the auth signal. Default namespaces
// connect whenever the signal is valid; the system namespace additionally
// requires an elevated user.
type Registry struct {
	log *slog.Logger

	mu      sync.Mutex
	conns   map[string]*Connection
	current model.AuthSignal
	applied bool
}

// NewRegistry builds connections for every namespace using the given
// dialer and tuning. Nothing connects until Apply sees a valid signal.
func NewRegistry(dialer Dialer, cfg Config, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}

	conns := make(map[string]*Connection)
	for _, ns := range DefaultNamespaces {
		conns[ns] = NewConnection(ns, dialer, cfg, log)
	}
	conns[NamespaceSystem] = NewConnection(NamespaceSystem, dialer, cfg, log)

	return &Registry{log: log, conns: conns}
}

// Apply drives connections from the auth signal. It is idempotent: a
// signal equal to the last applied one changes nothing, so callers can
// invoke it on every state change without causing redundant connects.
func (r *Registry) Apply(signal model.AuthSignal) {
	r.mu.Lock()
	if r.applied && r.current.Equal(signal) {
		r.mu.Unlock()
		return
	}
	r.current = signal
	r.applied = true
	conns := r.snapshotLocked()
	r.mu.Unlock()

	valid := signal.Valid()
	for ns, conn := range conns {
		want := valid
		if ns == NamespaceSystem {
			want = valid && signal.Elevated
		}
		if want {
			if err := conn.Connect(signal.Token); err != nil {
				r.log.Warn("namespace connect refused", "namespace", ns, "error", err)
			}
		} else {
			conn.Disconnect()
		}
	}
}

// Reconnect redials every namespace the current signal entitles, with
// the most recently applied token. Live connections treat it as a no-op;
// namespaces stuck in a terminal error state start a fresh retry cycle.
func (r *Registry) Reconnect() {
	r.mu.Lock()
	signal := r.current
	conns := r.snapshotLocked()
	r.mu.Unlock()

	if !signal.Valid() {
		return
	}
	for ns, conn := range conns {
		if ns == NamespaceSystem && !signal.Elevated {
			continue
		}
		if err := conn.Connect(signal.Token); err != nil {
			r.log.Warn("manual reconnect refused", "namespace", ns, "error", err)
		}
	}
}

// Shutdown disconnects every namespace unconditionally. Used on logout,
// which must win any race with a concurrent signal change.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.current = model.AuthSignal{}
	r.applied = true
	conns := r.snapshotLocked()
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Disconnect()
	}
}

// Namespace returns the capability object for a namespace, or nil when the
// registry does not currently hold a live connection for it.
func (r *Registry) Namespace(name string) *Connection {
	r.mu.Lock()
	conn := r.conns[name]
	r.mu.Unlock()

	if conn == nil || !conn.Status().State.Live() {
		return nil
	}
	return conn
}

// Connection returns the namespace's connection regardless of state, for
// wiring handlers and state watchers before any connect happens.
func (r *Registry) Connection(name string) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[name]
}

// Statuses returns a snapshot of every namespace's connection status.
func (r *Registry) Statuses() []Status {
	r.mu.Lock()
	conns := r.snapshotLocked()
	r.mu.Unlock()

	statuses := make([]Status, 0, len(conns))
	for _, conn := range conns {
		statuses = append(statuses, conn.Status())
	}
	return statuses
}

// Join subscribes this client to a server-side room on a namespace. Rooms
// are ordinary emitted events, not a separate protocol; the server owns
// the membership.
func (r *Registry) Join(namespace, room string) error {
	conn := r.Namespace(namespace)
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Emit(EventJoinRoom, map[string]string{"room": room})
}

// Leave unsubscribes this client from a server-side room.
func (r *Registry) Leave(namespace, room string) error {
	conn := r.Namespace(namespace)
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Emit(EventLeaveRoom, map[string]string{"room": room})
}

// snapshotLocked copies the connection map. Caller holds r.mu.
func (r *Registry) snapshotLocked() map[string]*Connection {
	conns := make(map[string]*Connection, len(r.conns))
	for ns, c := range r.conns {
		conns[ns] = c
	}
	return conns
}
