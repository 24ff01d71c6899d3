package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/lqviet/boardhub/internal/channel"
	"github.com/lqviet/boardhub/internal/model"
	"github.com/lqviet/boardhub/internal/rest"
)

// mutation is a single user intent with its two executors: the channel
// event preferred while connected, and the REST fallback otherwise. The
// executor is selected once per call.
type mutation struct {
	channelEvent   string
	channelPayload any
	restCall       func(context.Context) error
	applyLocal     func()
}

// localOnly reports whether a notification must never reach the server:
// client-only ones, and any whose identifier is not syntactically valid.
func localOnly(n model.Notification) bool {
	return n.ClientOnly || uuid.Validate(n.ID) != nil
}

// MarkRead marks one notification as read. Channel-preferred: the local
// read flag flips when the server confirmation arrives, except for
// client-only notifications which flip immediately.
func (s *Synchronizer) MarkRead(ctx context.Context, id string) error {
	target, ok := s.find(id)
	if !ok {
		return nil
	}
	return s.execute(ctx, &target, mutation{
		channelEvent:   channel.EventMarkRead,
		channelPayload: map[string]string{"notificationId": id},
		restCall:       func(ctx context.Context) error { return s.rest.MarkRead(ctx, id) },
		applyLocal:     func() { s.markReadLocal(id) },
	})
}

// MarkAllRead marks every notification as read. Client-only entries are
// flipped immediately; server-backed ones go through the channel or the
// REST bulk path.
func (s *Synchronizer) MarkAllRead(ctx context.Context) error {
	s.markClientOnlyReadLocal()
	return s.execute(ctx, nil, mutation{
		channelEvent:   channel.EventMarkAllRead,
		channelPayload: struct{}{},
		restCall:       s.rest.MarkAllRead,
		applyLocal:     s.markAllReadLocal,
	})
}

// Delete removes one notification. There is no channel equivalent for
// deletion, so server-backed entries always take the REST path; a 404/403
// still removes the local copy.
func (s *Synchronizer) Delete(ctx context.Context, id string) error {
	target, ok := s.find(id)
	if !ok {
		return nil
	}
	return s.execute(ctx, &target, mutation{
		restCall:   func(ctx context.Context) error { return s.rest.Delete(ctx, id) },
		applyLocal: func() { s.deleteLocal(id) },
	})
}

// ClearRead removes every read notification.
func (s *Synchronizer) ClearRead(ctx context.Context) error {
	s.clearClientOnlyLocal(true)
	return s.execute(ctx, nil, mutation{
		restCall:   s.rest.ClearRead,
		applyLocal: s.clearReadLocal,
	})
}

// ClearAll removes every notification.
func (s *Synchronizer) ClearAll(ctx context.Context) error {
	s.clearClientOnlyLocal(false)
	return s.execute(ctx, nil, mutation{
		restCall:   s.rest.ClearAll,
		applyLocal: s.clearAllLocal,
	})
}

// execute routes a mutation to its executor. Client-only targets mutate
// local state alone; while the channel is connected the event is emitted
// and the local change waits for the server's confirmation; otherwise the
// REST call runs, with 404/403 treated as already satisfied.
func (s *Synchronizer) execute(ctx context.Context, target *model.Notification, m mutation) error {
	if target != nil && localOnly(*target) {
		m.applyLocal()
		s.persistSnapshot()
		return nil
	}

	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()

	if m.channelEvent != "" && ch != nil && ch.Connected() {
		if err := ch.Emit(m.channelEvent, m.channelPayload); err == nil {
			return nil
		}
		// Emit raced a disconnect; fall through to REST.
	}

	if err := m.restCall(ctx); err != nil && !errors.Is(err, rest.ErrGone) {
		return err
	}
	m.applyLocal()
	s.persistSnapshot()
	return nil
}

// find returns a copy of the notification with the given id.
func (s *Synchronizer) find(id string) (model.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.ID == id {
			return n, true
		}
	}
	return model.Notification{}, false
}

func (s *Synchronizer) markReadLocal(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && !s.items[i].Read {
			s.items[i].Read = true
			s.stats.MarkRead()
		}
	}
}

func (s *Synchronizer) markAllReadLocal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		s.items[i].Read = true
	}
	s.stats.Unread = 0
}

// markClientOnlyReadLocal flips read on client-only entries immediately;
// they have no server copy to wait for.
func (s *Synchronizer) markClientOnlyReadLocal() {
	s.mu.Lock()
	changed := false
	for i := range s.items {
		if s.items[i].ClientOnly && !s.items[i].Read {
			s.items[i].Read = true
			s.stats.MarkRead()
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.persistSnapshot()
	}
}

// clearClientOnlyLocal removes client-only entries, optionally only the
// read ones.
func (s *Synchronizer) clearClientOnlyLocal(readOnly bool) {
	s.mu.Lock()
	kept := s.items[:0]
	changed := false
	for _, n := range s.items {
		if n.ClientOnly && (!readOnly || n.Read) {
			s.stats.Remove(n)
			changed = true
			continue
		}
		kept = append(kept, n)
	}
	s.items = kept
	s.mu.Unlock()

	if changed {
		s.persistSnapshot()
	}
}

func (s *Synchronizer) deleteLocal(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, n := range s.items {
		if n.ID == id {
			s.stats.Remove(n)
			continue
		}
		kept = append(kept, n)
	}
	s.items = kept
}

func (s *Synchronizer) clearReadLocal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, n := range s.items {
		if n.Read {
			s.stats.Remove(n)
			continue
		}
		kept = append(kept, n)
	}
	s.items = kept
}

func (s *Synchronizer) clearAllLocal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.stats = model.Stats{ByType: make(map[model.NotificationType]int)}
}
