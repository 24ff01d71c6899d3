package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType is the closed set of notification kinds the product
// surfaces in the feed.
type NotificationType string

const (
	TypeInfo       NotificationType = "info"
	TypeSuccess    NotificationType = "success"
	TypeWarning    NotificationType = "warning"
	TypeError      NotificationType = "error"
	TypeInvitation NotificationType = "invitation"
)

// Priority orders notifications by urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// RelatedEntity points a notification at the workspace object it is about
// (a board, a workspace, a chat thread, ...).
type RelatedEntity struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Notification is a single entry in the user's feed. Server-issued
// notifications carry a server ID; locally-synthesized ones carry a
// generated ID and ClientOnly set, and must never trigger a server call.
type Notification struct {
	// ID is the stable identifier: server-issued for persisted
	// notifications, locally generated for client-only ones.
	ID string `json:"id"`

	Title   string           `json:"title"`
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`

	Priority Priority `json:"priority"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"isRead"`

	CreatedAt time.Time `json:"createdAt"`

	// Sender is the user who caused the notification, if any.
	Sender string `json:"sender,omitempty"`

	// Related is the entity this notification is about, if any.
	Related *RelatedEntity `json:"relatedEntity,omitempty"`

	// ClientOnly marks notifications that exist only in local state.
	ClientOnly bool `json:"clientOnly,omitempty"`

	// CorrelationID ties a locally-synthesized notification to the
	// server event that later confirms it. The server echoes the ID back,
	// so suppression of the duplicate is an exact match.
	CorrelationID string `json:"correlationId,omitempty"`
}

// NewLocal builds a client-only notification with a generated ID and a
// fresh correlation ID.
func NewLocal(typ NotificationType, title, message string, related *RelatedEntity) Notification {
	return Notification{
		ID:            uuid.New().String(),
		Title:         title,
		Message:       message,
		Type:          typ,
		Priority:      PriorityMedium,
		CreatedAt:     time.Now(),
		Related:       related,
		ClientOnly:    true,
		CorrelationID: uuid.New().String(),
	}
}

// Stats is the running aggregate over the notification collection. It is
// updated in the same operation as every collection change, never derived
// in a separate pass.
type Stats struct {
	Total  int                      `json:"total"`
	Unread int                      `json:"unread"`
	ByType map[NotificationType]int `json:"byType"`
}

// ComputeStats derives aggregate stats from a collection. Used to seed the
// running stats on snapshot replace.
func ComputeStats(notifications []Notification) Stats {
	s := Stats{ByType: make(map[NotificationType]int)}
	for _, n := range notifications {
		s.Total++
		if !n.Read {
			s.Unread++
		}
		s.ByType[n.Type]++
	}
	return s
}

// Add updates stats for a newly inserted notification.
func (s *Stats) Add(n Notification) {
	if s.ByType == nil {
		s.ByType = make(map[NotificationType]int)
	}
	s.Total++
	if !n.Read {
		s.Unread++
	}
	s.ByType[n.Type]++
}

// Remove updates stats for a removed notification.
func (s *Stats) Remove(n Notification) {
	s.Total--
	if !n.Read {
		s.Unread--
	}
	if s.ByType != nil {
		s.ByType[n.Type]--
		if s.ByType[n.Type] <= 0 {
			delete(s.ByType, n.Type)
		}
	}
}

// MarkRead adjusts the unread count when a notification's read flag flips
// from unread to read.
func (s *Stats) MarkRead() {
	if s.Unread > 0 {
		s.Unread--
	}
}
