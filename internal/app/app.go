// Package app is the root Bubble Tea model: it routes views, renders the
// frame, and turns key presses into synchronizer operations.
package app

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lqviet/boardhub/internal/channel"
	"github.com/lqviet/boardhub/internal/keys"
	"github.com/lqviet/boardhub/internal/notify"
	"github.com/lqviet/boardhub/internal/ui"
	"github.com/lqviet/boardhub/internal/ui/detail"
	"github.com/lqviet/boardhub/internal/ui/feed"
	helpview "github.com/lqviet/boardhub/internal/ui/help"
)

// opTimeout bounds one user-triggered synchronizer operation.
const opTimeout = 10 * time.Second

// refreshInterval is the cadence on which the feed re-reads the
// synchronizer's collection.
const refreshInterval = 2 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewFeed ViewState = iota
	ViewDetail
	ViewHelp
)

// tickMsg drives the periodic feed refresh.
type tickMsg time.Time

// connStateMsg carries a namespace connection status change to the UI.
type connStateMsg channel.Status

// alertMsg carries a local alert raised by the push bridge.
type alertMsg struct {
	title string
	body  string
}

// opDoneMsg reports a completed synchronizer operation.
type opDoneMsg struct {
	err error
}

// Model is the root Bubble Tea model.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	sync      *notify.Synchronizer
	reconnect func()

	feedView   feed.Model
	detailView detail.Model
	helpView   helpview.Model

	updates   <-chan tea.Msg
	ready     bool
	connState channel.State
	nsStates  map[string]channel.State
	toast     string
	errText   string
}

// New creates the root application model. The reconnect function is
// invoked when the user requests a manual reconnect; updates feeds
// externally-originated messages (alerts, connection state changes) into
// the program loop.
func New(sync *notify.Synchronizer, reconnect func(), updates <-chan tea.Msg) Model {
	k := keys.DefaultKeyMap()
	return Model{
		currentView: ViewFeed,
		keys:        k,
		sync:        sync,
		reconnect:   reconnect,
		feedView:    feed.New(k, 80, 24),
		detailView:  detail.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		updates:     updates,
		connState:   channel.StateDisconnected,
		nsStates:    make(map[string]channel.State),
	}
}

// Init starts the refresh tick and the external update pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadFeed(),
		m.tick(),
		m.waitForUpdate(),
	)
}

// tick schedules the next periodic refresh.
func (m Model) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForUpdate blocks on the external update channel.
func (m Model) waitForUpdate() tea.Cmd {
	updates := m.updates
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		return <-updates
	}
}

// loadFeed pushes the synchronizer's current collection into the feed view.
func (m Model) loadFeed() tea.Cmd {
	s := m.sync
	return func() tea.Msg {
		return feed.NotificationsMsg{Notifications: s.Notifications()}
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.feedView.SetSize(contentWidth, contentHeight)
		m.detailView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		return m, nil

	case tickMsg:
		m.toast = ""
		return m, tea.Batch(m.loadFeed(), m.tick())

	case connStateMsg:
		m.nsStates[msg.Namespace] = msg.State
		if msg.Namespace == channel.NamespaceNotifications {
			m.connState = msg.State
		}
		return m, m.waitForUpdate()

	case alertMsg:
		m.toast = msg.title + ": " + msg.body
		return m, tea.Batch(m.loadFeed(), m.waitForUpdate())

	case opDoneMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
		} else {
			m.errText = ""
		}
		return m, m.loadFeed()

	case feed.SelectedMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detailView.SetNotification(msg.Notification)
		// Opening a notification marks it read.
		if !msg.Notification.Read {
			return m, m.runOp(func(ctx context.Context) error {
				return m.sync.MarkRead(ctx, msg.Notification.ID)
			})
		}
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewFeed
		return m, m.loadFeed()

	case tea.KeyMsg:
		if model, cmd, handled := m.handleGlobalKeys(msg); handled {
			return model, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKeys processes keys that work regardless of the active view.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if m.currentView == ViewFeed && m.feedView.Searching() && msg.String() != "ctrl+c" {
		return m, nil, false
	}
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit, true

	case "q":
		if m.currentView == ViewFeed {
			return m, tea.Quit, true
		}

	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case "esc":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}

	case "r":
		if m.currentView == ViewFeed {
			return m, m.runOp(m.sync.Refresh), true
		}

	case "R":
		if m.reconnect != nil {
			m.reconnect()
			m.toast = "reconnecting..."
			return m, nil, true
		}

	case "m":
		if m.currentView == ViewFeed {
			if n, ok := m.feedView.Selected(); ok {
				return m, m.runOp(func(ctx context.Context) error {
					return m.sync.MarkRead(ctx, n.ID)
				}), true
			}
		}

	case "a":
		if m.currentView == ViewFeed {
			return m, m.runOp(m.sync.MarkAllRead), true
		}

	case "d":
		if m.currentView == ViewFeed {
			if n, ok := m.feedView.Selected(); ok {
				return m, m.runOp(func(ctx context.Context) error {
					return m.sync.Delete(ctx, n.ID)
				}), true
			}
		}

	case "c":
		if m.currentView == ViewFeed {
			return m, m.runOp(m.sync.ClearRead), true
		}

	case "C":
		if m.currentView == ViewFeed {
			return m, m.runOp(m.sync.ClearAll), true
		}
	}

	return m, nil, false
}

// runOp executes one synchronizer operation off the UI loop.
func (m Model) runOp(op func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opDoneMsg{err: op(ctx)}
	}
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewFeed:
		m.feedView, cmd = m.feedView.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("BoardHub", m.sync.Stats().Unread, string(m.connState))
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewDetail:
		return m.detailView.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return m.feedView.View()
	}
}

// degradedNamespaces summarizes namespaces that are reconnecting or in a
// terminal error state, empty when everything is healthy.
func (m Model) degradedNamespaces() string {
	var parts []string
	for _, ns := range append(append([]string{}, channel.DefaultNamespaces...), channel.NamespaceSystem) {
		switch m.nsStates[ns] {
		case channel.StateReconnecting:
			parts = append(parts, ns+" reconnecting")
		case channel.StateError:
			parts = append(parts, ns+" unreachable (R to retry)")
		}
	}
	return strings.Join(parts, " | ")
}

// keyHints returns the status bar line: errors first, then toasts, then
// the shortcuts for the active view.
func (m Model) keyHints() string {
	if m.errText != "" {
		return m.errText
	}
	if m.toast != "" {
		return m.toast
	}
	if degraded := m.degradedNamespaces(); degraded != "" {
		return degraded
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewDetail:
		return "esc back"
	default:
		if summary := m.feedView.FilterSummary(); summary != "" {
			return summary + " | u,/ clear"
		}
		return "q quit | ? help | m read | a all read | d delete | r refresh | R reconnect"
	}
}
