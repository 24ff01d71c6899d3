package push

import (
	"sync"
	"testing"
	"time"

	"github.com/lqviet/boardhub/internal/logging"
	"github.com/lqviet/boardhub/internal/model"
)

// fakeAlerter records scheduled alerts and badge updates.
type fakeAlerter struct {
	supported bool

	mu     sync.Mutex
	alerts []Alert
	badges []int
}

func (a *fakeAlerter) Supported() bool { return a.supported }

func (a *fakeAlerter) Schedule(alert Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return nil
}

func (a *fakeAlerter) SetBadge(count int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.badges = append(a.badges, count)
	return nil
}

func (a *fakeAlerter) alertCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

func sample(typ model.NotificationType) model.Notification {
	return model.Notification{
		ID:      "8a3f0e62-0000-0000-0000-000000000001",
		Title:   "Board updated",
		Message: "Sprint board changed",
		Type:    typ,
	}
}

func TestBridgeSchedulesAlertWithBadge(t *testing.T) {
	a := &fakeAlerter{supported: true}
	b := New(a, time.Minute, nil, logging.Discard())

	b.OnNewNotification(sample(model.TypeInfo), 4)

	if a.alertCount() != 1 {
		t.Fatalf("alert count = %d, want 1", a.alertCount())
	}
	alert := a.alerts[0]
	if alert.Title != "Board updated" || alert.Body != "Sprint board changed" {
		t.Errorf("alert = %+v", alert)
	}
	if len(a.badges) != 1 || a.badges[0] != 4 {
		t.Errorf("badges = %v, want [4]", a.badges)
	}
}

func TestBridgeSilentWhenUnsupported(t *testing.T) {
	a := &fakeAlerter{supported: false}
	b := New(a, time.Minute, nil, logging.Discard())

	b.OnNewNotification(sample(model.TypeInfo), 1)

	if a.alertCount() != 0 {
		t.Errorf("alert count = %d, want 0 in unsupported environment", a.alertCount())
	}
}

func TestBridgeRespectsPreference(t *testing.T) {
	a := &fakeAlerter{supported: true}
	enabled := false
	b := New(a, time.Minute, func() bool { return enabled }, logging.Discard())

	b.OnNewNotification(sample(model.TypeInfo), 1)
	if a.alertCount() != 0 {
		t.Fatalf("alert raised while preference disabled")
	}

	// Preference flips take effect on the next notification.
	enabled = true
	b.OnNewNotification(sample(model.TypeInfo), 1)
	if a.alertCount() != 1 {
		t.Errorf("alert count = %d after enabling, want 1", a.alertCount())
	}
}

func TestBridgeThrottlesBursts(t *testing.T) {
	a := &fakeAlerter{supported: true}
	b := New(a, time.Minute, nil, logging.Discard())

	for i := 0; i < 5; i++ {
		b.OnNewNotification(sample(model.TypeInfo), i)
	}

	if a.alertCount() != 1 {
		t.Errorf("alert count = %d for a burst, want 1", a.alertCount())
	}
}

func TestViewHint(t *testing.T) {
	invite := sample(model.TypeInvitation)
	if got := viewHint(invite); got != "invitations" {
		t.Errorf("viewHint(invitation) = %q", got)
	}

	related := sample(model.TypeInfo)
	related.Related = &model.RelatedEntity{Type: "board", ID: "b1", Name: "Sprint"}
	if got := viewHint(related); got != "board" {
		t.Errorf("viewHint(related board) = %q", got)
	}

	plain := sample(model.TypeInfo)
	if got := viewHint(plain); got != "notifications" {
		t.Errorf("viewHint(plain) = %q", got)
	}
}
