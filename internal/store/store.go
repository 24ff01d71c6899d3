package store

import (
	"context"

	"github.com/lqviet/boardhub/internal/model"
)

// Store defines the durable persistence interface for the notification
// collection and the realtime preference map. The synchronizer writes
// through it so the feed survives process restarts; migrations are applied
// automatically on open.
type Store interface {
	// === Notifications ===

	// ReplaceNotifications atomically swaps the persisted collection for
	// the given one, preserving its order.
	ReplaceNotifications(ctx context.Context, notifications []model.Notification) error

	// GetNotifications returns the persisted collection newest-first.
	GetNotifications(ctx context.Context) ([]model.Notification, error)

	UpsertNotification(ctx context.Context, n model.Notification) error
	DeleteNotification(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	DeleteRead(ctx context.Context) error
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error

	// === Preferences ===

	SetPreference(ctx context.Context, key string, enabled bool) error
	GetPreferences(ctx context.Context) (map[string]bool, error)

	Close() error
}
