package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lqviet/boardhub/internal/channel"
	"github.com/lqviet/boardhub/internal/push"
)

// Alerter adapts the push bridge to the terminal UI: alerts surface as
// status-bar toasts through the update channel, and the badge is derived
// from the collection so SetBadge has nothing to track.
type Alerter struct {
	updates chan<- tea.Msg
}

// NewAlerter creates an Alerter feeding the given update channel.
func NewAlerter(updates chan<- tea.Msg) *Alerter {
	return &Alerter{updates: updates}
}

// Supported reports whether alerts can be displayed.
func (a *Alerter) Supported() bool {
	return a.updates != nil
}

// Schedule raises one alert. A full update channel drops the alert
// rather than blocking the caller.
func (a *Alerter) Schedule(alert push.Alert) error {
	select {
	case a.updates <- alertMsg{title: alert.Title, body: alert.Body}:
	default:
	}
	return nil
}

// SetBadge is a no-op; the header badge reads the unread count directly.
func (a *Alerter) SetBadge(int) error {
	return nil
}

// NotifyConnState pushes a connection status change into the update
// channel, dropping it if the channel is full.
func NotifyConnState(updates chan<- tea.Msg, status channel.Status) {
	select {
	case updates <- connStateMsg(status):
	default:
	}
}
