package model

import "testing"

func TestNewLocalIsClientOnly(t *testing.T) {
	n := NewLocal(TypeSuccess, "Workspace created", "ready", nil)
	if !n.ClientOnly {
		t.Error("NewLocal must mark the notification client-only")
	}
	if n.ID == "" || n.CorrelationID == "" {
		t.Errorf("NewLocal must generate id and correlation id, got %+v", n)
	}
	if n.Read {
		t.Error("NewLocal notifications start unread")
	}
}

func TestStatsAddRemoveMirrorCompute(t *testing.T) {
	items := []Notification{
		{ID: "1", Type: TypeInfo},
		{ID: "2", Type: TypeInfo, Read: true},
		{ID: "3", Type: TypeError},
	}

	var running Stats
	for _, n := range items {
		running.Add(n)
	}

	derived := ComputeStats(items)
	if running.Total != derived.Total || running.Unread != derived.Unread {
		t.Errorf("running %+v != derived %+v", running, derived)
	}
	if running.ByType[TypeInfo] != 2 || running.ByType[TypeError] != 1 {
		t.Errorf("ByType = %v", running.ByType)
	}

	running.Remove(items[0])
	if running.Total != 2 || running.Unread != 1 {
		t.Errorf("after remove: %+v", running)
	}
	if running.ByType[TypeInfo] != 1 {
		t.Errorf("ByType[info] = %d, want 1", running.ByType[TypeInfo])
	}

	running.Remove(items[2])
	if _, ok := running.ByType[TypeError]; ok {
		t.Error("zeroed type should be dropped from ByType")
	}
}

func TestStatsMarkRead(t *testing.T) {
	s := Stats{Total: 2, Unread: 1}
	s.MarkRead()
	if s.Unread != 0 {
		t.Errorf("Unread = %d, want 0", s.Unread)
	}
	s.MarkRead()
	if s.Unread != 0 {
		t.Error("MarkRead must not go negative")
	}
}
