// Package notify owns the notification collection: it merges channel
// events and REST snapshots into one ordered, deduplicated feed with
// running aggregate stats, and routes mutation intents to whichever
// executor can currently satisfy them.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/lqviet/boardhub/internal/channel"
	"github.com/lqviet/boardhub/internal/model"
)

// processedSweepInterval is the fixed cadence on which the processed-id
// cache is cleared, independent of connection events.
const processedSweepInterval = 60 * time.Second

// persistTimeout bounds each best-effort write-through to the local store.
const persistTimeout = 5 * time.Second

// ChannelAPI is the slice of a namespace connection the synchronizer
// uses. *channel.Connection satisfies it.
type ChannelAPI interface {
	Connected() bool
	Emit(event string, payload any) error
	On(event string, h channel.Handler) *channel.Subscription
}

// RestAPI is the REST fallback surface. *rest.Client satisfies it.
type RestAPI interface {
	Notifications(ctx context.Context) ([]model.Notification, model.Stats, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
	ClearRead(ctx context.Context) error
}

// Persister is the slice of the local store the synchronizer writes the
// collection through. May be nil to run memory-only.
type Persister interface {
	ReplaceNotifications(ctx context.Context, notifications []model.Notification) error
	GetNotifications(ctx context.Context) ([]model.Notification, error)
}

// Synchronizer owns the notification collection and its aggregate stats
// exclusively; other components read through its accessors and mutate
// only through its operations.
type Synchronizer struct {
	rest    RestAPI
	persist Persister
	log     *slog.Logger

	mu    sync.Mutex
	ch    ChannelAPI
	subs  []*channel.Subscription
	items []model.Notification
	stats model.Stats
	seen  map[string]struct{}
	onNew []func(model.Notification)

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Synchronizer and starts the periodic processed-id cache
// sweep. Close stops it.
func New(rest RestAPI, persist Persister, log *slog.Logger) *Synchronizer {
	if log == nil {
		log = slog.Default()
	}
	s := &Synchronizer{
		rest:    rest,
		persist: persist,
		log:     log,
		seen:    make(map[string]struct{}),
		stats:   model.Stats{ByType: make(map[model.NotificationType]int)},
		done:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Close stops the cache sweep and detaches from the channel.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.Detach()
}

// Attach binds the synchronizer to the notifications namespace
// connection and registers its inbound handlers.
func (s *Synchronizer) Attach(ch ChannelAPI) {
	s.Detach()

	s.mu.Lock()
	s.ch = ch
	s.subs = []*channel.Subscription{
		ch.On(channel.EventNotificationNew, s.handleNew),
		ch.On(channel.EventNotifications, s.handleList),
		ch.On(channel.EventUnreadCount, s.handleUnreadCount),
	}
	s.mu.Unlock()
}

// Detach unsubscribes every channel handler.
func (s *Synchronizer) Detach() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.ch = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// OnNew registers a hook invoked once per notification newly inserted
// from a channel event. Snapshot replays never fire it.
func (s *Synchronizer) OnNew(fn func(model.Notification)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onNew = append(s.onNew, fn)
}

// Notifications returns a copy of the collection, newest-first.
func (s *Synchronizer) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Stats returns a copy of the aggregate stats.
func (s *Synchronizer) Stats() model.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyStats(s.stats)
}

// LoadPersisted seeds the collection from the local store, before any
// snapshot or channel traffic. No-op without a persister.
func (s *Synchronizer) LoadPersisted(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	items, err := s.persist.GetNotifications(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.items = items
	s.stats = model.ComputeStats(items)
	s.mu.Unlock()
	return nil
}

// Refresh fetches a fresh REST snapshot and replaces the collection.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	items, stats, err := s.rest.Notifications(ctx)
	if err != nil {
		return err
	}
	s.ApplySnapshot(items, stats)
	return nil
}

// RequestRecent asks the channel for its recent-notification replay and
// current unread count. No-op while disconnected; the replay is made
// idempotent by the processed-id cache and the id-based merge.
func (s *Synchronizer) RequestRecent(limit int) {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()

	if ch == nil || !ch.Connected() {
		return
	}
	if err := ch.Emit(channel.EventGetRecent, map[string]int{"limit": limit}); err != nil {
		s.log.Debug("getRecent emit failed", "error", err)
	}
	if err := ch.Emit(channel.EventGetUnreadCount, struct{}{}); err != nil {
		s.log.Debug("getUnreadCount emit failed", "error", err)
	}
}

// ApplySnapshot is the REST-sourced full replace of the collection and
// stats, used on initial load and explicit refresh. Stats are recomputed
// from the collection so they can never drift from it; a server mismatch
// is only logged.
func (s *Synchronizer) ApplySnapshot(notifications []model.Notification, stats model.Stats) {
	s.mu.Lock()
	s.items = make([]model.Notification, len(notifications))
	copy(s.items, notifications)
	s.stats = model.ComputeStats(s.items)
	for _, n := range s.items {
		s.seen[n.ID] = struct{}{}
	}
	if stats.Total != 0 && stats.Total != s.stats.Total {
		s.log.Debug("snapshot stats disagree with collection",
			"server_total", stats.Total, "derived_total", s.stats.Total)
	}
	s.mu.Unlock()

	s.persistSnapshot()
}

// ApplyInbound merges one channel-sourced notification. Replayed
// identifiers are dropped, a correlation-id match replaces the local
// client-only copy in place, and anything genuinely new is inserted at
// the head with stats updated in the same operation. Returns true only
// for a genuinely new insert.
func (s *Synchronizer) ApplyInbound(n model.Notification) bool {
	s.mu.Lock()
	if _, dup := s.seen[n.ID]; dup {
		s.mu.Unlock()
		return false
	}
	s.seen[n.ID] = struct{}{}

	// Server copy of a locally-synthesized notification: swap in place,
	// exact correlation-id match, no text heuristics.
	if n.CorrelationID != "" {
		for i := range s.items {
			if s.items[i].ClientOnly && s.items[i].CorrelationID == n.CorrelationID {
				s.stats.Remove(s.items[i])
				s.stats.Add(n)
				s.items[i] = n
				s.mu.Unlock()
				s.persistSnapshot()
				return false
			}
		}
	}

	// Identifier-based merge: an id already in the collection (e.g. from
	// a REST snapshot racing the channel) updates it rather than
	// appending a duplicate.
	for i := range s.items {
		if s.items[i].ID == n.ID {
			s.stats.Remove(s.items[i])
			s.stats.Add(n)
			s.items[i] = n
			s.mu.Unlock()
			s.persistSnapshot()
			return false
		}
	}

	s.items = append([]model.Notification{n}, s.items...)
	s.stats.Add(n)
	handlers := make([]func(model.Notification), len(s.onNew))
	copy(handlers, s.onNew)
	s.mu.Unlock()

	s.persistSnapshot()
	for _, h := range handlers {
		h(n)
	}
	return true
}

// handleNew consumes an inbound notification:new event.
func (s *Synchronizer) handleNew(payload json.RawMessage) {
	var body struct {
		Notification model.Notification `json:"notification"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		s.log.Warn("dropping undecodable notification:new", "error", err)
		return
	}
	if body.Notification.ID == "" {
		return
	}
	s.ApplyInbound(body.Notification)
}

// handleList consumes the channel's recent-notification replay. Known ids
// are reconciled in place (this is how read/mark-all confirmations land);
// unknown ids go through the normal inbound merge.
func (s *Synchronizer) handleList(payload json.RawMessage) {
	var body struct {
		Notifications []model.Notification `json:"notifications"`
		UnreadCount   int                  `json:"unreadCount"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		s.log.Warn("dropping undecodable notifications:list", "error", err)
		return
	}

	for _, n := range body.Notifications {
		if n.ID == "" {
			continue
		}
		s.reconcile(n)
	}
}

// reconcile updates an existing notification in place or defers to
// ApplyInbound for unknown ids.
func (s *Synchronizer) reconcile(n model.Notification) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID != n.ID {
			continue
		}
		if s.items[i].Read == n.Read {
			s.mu.Unlock()
			return
		}
		s.stats.Remove(s.items[i])
		s.stats.Add(n)
		s.items[i] = n
		s.mu.Unlock()
		s.persistSnapshot()
		return
	}
	s.mu.Unlock()

	s.ApplyInbound(n)
}

// handleUnreadCount logs a server/client divergence; the authoritative
// unread count is always derived from the collection.
func (s *Synchronizer) handleUnreadCount(payload json.RawMessage) {
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return
	}

	s.mu.Lock()
	local := s.stats.Unread
	s.mu.Unlock()
	if body.Count != local {
		s.log.Debug("unread count divergence",
			"server", body.Count, "local", local)
	}
}

// sweepLoop clears the processed-id cache on a fixed cadence to bound
// memory. Independent of connection events.
func (s *Synchronizer) sweepLoop() {
	ticker := time.NewTicker(processedSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.clearProcessed()
		}
	}
}

// clearProcessed resets the processed-id cache.
func (s *Synchronizer) clearProcessed() {
	s.mu.Lock()
	s.seen = make(map[string]struct{})
	s.mu.Unlock()
}

// persistSnapshot writes the collection through the local store,
// best-effort.
func (s *Synchronizer) persistSnapshot() {
	if s.persist == nil {
		return
	}

	s.mu.Lock()
	items := make([]model.Notification, len(s.items))
	copy(items, s.items)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.persist.ReplaceNotifications(ctx, items); err != nil {
		s.log.Warn("persisting notifications failed", "error", err)
	}
}

func copyStats(in model.Stats) model.Stats {
	out := model.Stats{
		Total:  in.Total,
		Unread: in.Unread,
		ByType: make(map[model.NotificationType]int, len(in.ByType)),
	}
	for k, v := range in.ByType {
		out.ByType[k] = v
	}
	return out
}
