package store

import (
	"context"
	"testing"
	"time"

	"github.com/lqviet/boardhub/internal/model"
)

// newTestStore creates an in-memory SQLiteStore with all migrations
// applied and closes it when the test completes.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

func testNotification(id, title string) model.Notification {
	return model.Notification{
		ID:        id,
		Title:     title,
		Message:   title + " body",
		Type:      model.TypeInfo,
		Priority:  model.PriorityMedium,
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := newTestStore(t)

	// A second run on an already-migrated schema applies nothing.
	if err := s.runMigrations(); err != nil {
		t.Fatalf("re-running migrations: %v", err)
	}
}

func TestReplaceAndGetPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	items := []model.Notification{
		testNotification("n-3", "newest"),
		testNotification("n-2", "middle"),
		testNotification("n-1", "oldest"),
	}
	if err := s.ReplaceNotifications(ctx, items); err != nil {
		t.Fatalf("ReplaceNotifications: %v", err)
	}

	got, err := s.GetNotifications(ctx)
	if err != nil {
		t.Fatalf("GetNotifications: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d notifications, want 3", len(got))
	}
	for i := range items {
		if got[i].ID != items[i].ID {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, items[i].ID)
		}
	}
}

func TestReplaceSwapsAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceNotifications(ctx, []model.Notification{
		testNotification("old-1", "old"),
		testNotification("old-2", "old"),
	}); err != nil {
		t.Fatalf("first replace: %v", err)
	}

	if err := s.ReplaceNotifications(ctx, []model.Notification{
		testNotification("new-1", "new"),
	}); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	got, err := s.GetNotifications(ctx)
	if err != nil {
		t.Fatalf("GetNotifications: %v", err)
	}
	if len(got) != 1 || got[0].ID != "new-1" {
		t.Errorf("got %+v, want only new-1", got)
	}
}

func TestRoundTripPreservesFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := testNotification("n-full", "full")
	n.Type = model.TypeInvitation
	n.Priority = model.PriorityHigh
	n.Read = true
	n.Sender = "alice"
	n.Related = &model.RelatedEntity{Type: "board", ID: "b-1", Name: "Sprint"}
	n.ClientOnly = true
	n.CorrelationID = "corr-1"

	if err := s.ReplaceNotifications(ctx, []model.Notification{n}); err != nil {
		t.Fatalf("ReplaceNotifications: %v", err)
	}

	got, err := s.GetNotifications(ctx)
	if err != nil {
		t.Fatalf("GetNotifications: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d notifications, want 1", len(got))
	}

	out := got[0]
	if out.Type != n.Type || out.Priority != n.Priority || !out.Read {
		t.Errorf("flags lost: %+v", out)
	}
	if out.Sender != "alice" || out.CorrelationID != "corr-1" || !out.ClientOnly {
		t.Errorf("metadata lost: %+v", out)
	}
	if out.Related == nil || out.Related.ID != "b-1" || out.Related.Name != "Sprint" {
		t.Errorf("related entity lost: %+v", out.Related)
	}
	if !out.CreatedAt.Equal(n.CreatedAt) {
		t.Errorf("created_at = %s, want %s", out.CreatedAt, n.CreatedAt)
	}
}

func TestUpsertInsertsAtHead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceNotifications(ctx, []model.Notification{
		testNotification("n-1", "existing"),
	}); err != nil {
		t.Fatalf("ReplaceNotifications: %v", err)
	}

	if err := s.UpsertNotification(ctx, testNotification("n-2", "fresh")); err != nil {
		t.Fatalf("UpsertNotification: %v", err)
	}

	got, err := s.GetNotifications(ctx)
	if err != nil {
		t.Fatalf("GetNotifications: %v", err)
	}
	if len(got) != 2 || got[0].ID != "n-2" || got[1].ID != "n-1" {
		t.Errorf("order = %v, want fresh first", []string{got[0].ID, got[1].ID})
	}
}

func TestMarkReadAndDeleteVariants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	read := testNotification("n-read", "read")
	read.Read = true
	unread := testNotification("n-unread", "unread")

	if err := s.ReplaceNotifications(ctx, []model.Notification{read, unread}); err != nil {
		t.Fatalf("ReplaceNotifications: %v", err)
	}

	if err := s.DeleteRead(ctx); err != nil {
		t.Fatalf("DeleteRead: %v", err)
	}
	got, _ := s.GetNotifications(ctx)
	if len(got) != 1 || got[0].ID != "n-unread" {
		t.Fatalf("after DeleteRead: %+v", got)
	}

	if err := s.MarkRead(ctx, "n-unread"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	got, _ = s.GetNotifications(ctx)
	if !got[0].Read {
		t.Error("MarkRead did not flip the flag")
	}

	if err := s.DeleteNotification(ctx, "n-unread"); err != nil {
		t.Fatalf("DeleteNotification: %v", err)
	}
	got, _ = s.GetNotifications(ctx)
	if len(got) != 0 {
		t.Errorf("after DeleteNotification: %+v", got)
	}
}

func TestMarkAllReadAndDeleteAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceNotifications(ctx, []model.Notification{
		testNotification("n-1", "a"),
		testNotification("n-2", "b"),
	}); err != nil {
		t.Fatalf("ReplaceNotifications: %v", err)
	}

	if err := s.MarkAllRead(ctx); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	got, _ := s.GetNotifications(ctx)
	for _, n := range got {
		if !n.Read {
			t.Errorf("%s still unread", n.ID)
		}
	}

	if err := s.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	got, _ = s.GetNotifications(ctx)
	if len(got) != 0 {
		t.Errorf("after DeleteAll: %+v", got)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetPreference(ctx, "notifications", true); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}
	if err := s.SetPreference(ctx, "boards", false); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}
	// Overwrite takes the latest value.
	if err := s.SetPreference(ctx, "boards", true); err != nil {
		t.Fatalf("SetPreference overwrite: %v", err)
	}

	prefs, err := s.GetPreferences(ctx)
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if len(prefs) != 2 || !prefs["notifications"] || !prefs["boards"] {
		t.Errorf("prefs = %v", prefs)
	}
}
