// Package push bridges newly-synchronized notifications to local alerts,
// subject to environment capability and a minimum-interval throttle.
package push

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lqviet/boardhub/internal/model"
)

// Alert is the payload handed to the platform notifier: enough metadata
// to deep-link on tap.
type Alert struct {
	Title string
	Body  string
	Data  map[string]string
}

// Alerter is the platform-local alert service. Delivery is best-effort
// and fire-and-forget; implementations that cannot display alerts report
// Supported() == false and the bridge stays silent.
type Alerter interface {
	Supported() bool
	Schedule(alert Alert) error
	SetBadge(count int) error
}

// Bridge decides, per newly-synchronized notification, whether to raise a
// local alert.
type Bridge struct {
	alerter     Alerter
	minInterval time.Duration
	enabled     func() bool
	log         *slog.Logger

	mu        sync.Mutex
	lastAlert time.Time
}

// New creates a Bridge. The enabled function is consulted per
// notification so preference changes take effect immediately; nil means
// always enabled. A non-positive minInterval falls back to 3 seconds.
func New(alerter Alerter, minInterval time.Duration, enabled func() bool, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	if enabled == nil {
		enabled = func() bool { return true }
	}
	if minInterval <= 0 {
		minInterval = 3 * time.Second
	}
	return &Bridge{
		alerter:     alerter,
		minInterval: minInterval,
		enabled:     enabled,
		log:         log,
	}
}

// OnNewNotification is invoked once per notification the synchronizer
// newly inserts, never for snapshot replays. Unsupported environments and
// throttled calls are silent no-ops.
func (b *Bridge) OnNewNotification(n model.Notification, unread int) {
	if b.alerter == nil || !b.alerter.Supported() {
		return
	}
	if !b.enabled() {
		return
	}

	b.mu.Lock()
	now := time.Now()
	if !b.lastAlert.IsZero() && now.Sub(b.lastAlert) < b.minInterval {
		b.mu.Unlock()
		return
	}
	b.lastAlert = now
	b.mu.Unlock()

	alert := Alert{
		Title: n.Title,
		Body:  n.Message,
		Data: map[string]string{
			"notificationId": n.ID,
			"type":           string(n.Type),
			"view":           viewHint(n),
		},
	}
	if err := b.alerter.Schedule(alert); err != nil {
		b.log.Debug("scheduling local alert failed", "error", err)
	}
	if err := b.alerter.SetBadge(unread); err != nil {
		b.log.Debug("setting badge failed", "error", err)
	}
}

// viewHint names the view a tap on the alert should open.
func viewHint(n model.Notification) string {
	if n.Type == model.TypeInvitation {
		return "invitations"
	}
	if n.Related != nil && n.Related.Type != "" {
		return n.Related.Type
	}
	return "notifications"
}
