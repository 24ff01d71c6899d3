package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lqviet/boardhub/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, func() string { return "header.payload.signature" })
}

func TestNotificationsDecodesEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/notifications" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer header.payload.signature" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"notifications": []map[string]any{
					{"id": "9f1b2c3d-0000-0000-0000-000000000001", "title": "hello", "type": "info"},
				},
				"stats": map[string]any{"total": 1, "unread": 1},
			},
		})
	})

	items, stats, err := c.Notifications(context.Background())
	if err != nil {
		t.Fatalf("Notifications: %v", err)
	}
	if len(items) != 1 || items[0].Title != "hello" {
		t.Errorf("items = %+v", items)
	}
	if stats.Total != 1 || stats.Unread != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestMutationPathsAndMethods(t *testing.T) {
	type call struct{ method, path string }
	var got call
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = call{r.Method, r.URL.Path}
		w.Write([]byte(`{"success":true}`))
	})
	ctx := context.Background()

	if err := c.MarkRead(ctx, "n-1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if got != (call{http.MethodPatch, "/notifications/n-1/read"}) {
		t.Errorf("MarkRead sent %+v", got)
	}

	if err := c.MarkAllRead(ctx); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if got != (call{http.MethodPost, "/notifications/mark-all-read"}) {
		t.Errorf("MarkAllRead sent %+v", got)
	}

	if err := c.Delete(ctx, "n-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got != (call{http.MethodDelete, "/notifications/n-1"}) {
		t.Errorf("Delete sent %+v", got)
	}

	if err := c.ClearRead(ctx); err != nil {
		t.Fatalf("ClearRead: %v", err)
	}
	if got != (call{http.MethodDelete, "/notifications/clear-read"}) {
		t.Errorf("ClearRead sent %+v", got)
	}

	if err := c.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if got != (call{http.MethodDelete, "/notifications/clear-all"}) {
		t.Errorf("ClearAll sent %+v", got)
	}
}

func TestNotFoundMapsToErrGone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	err := c.Delete(context.Background(), "missing")
	if !errors.Is(err, ErrGone) {
		t.Fatalf("Delete on 404 = %v, want ErrGone", err)
	}
}

func TestForbiddenMapsToErrGone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	err := c.MarkRead(context.Background(), "someone-elses")
	if !errors.Is(err, ErrGone) {
		t.Fatalf("MarkRead on 403 = %v, want ErrGone", err)
	}
}

func TestServerErrorSurfacesEnvelopeMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "database unavailable",
		})
	})

	err := c.MarkAllRead(context.Background())
	if err == nil {
		t.Fatal("MarkAllRead swallowed the server error")
	}
	if errors.Is(err, ErrGone) {
		t.Error("500 mapped to ErrGone")
	}
}

func TestStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notifications/stats" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"total": 4, "unread": 2, "byType": map[string]int{"info": 4}},
		})
	})

	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 4 || stats.Unread != 2 || stats.ByType[model.TypeInfo] != 4 {
		t.Errorf("stats = %+v", stats)
	}
}
