// Package detail renders a single notification full-screen.
package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lqviet/boardhub/internal/keys"
	"github.com/lqviet/boardhub/internal/model"
	"github.com/lqviet/boardhub/internal/theme"
)

// BackMsg is sent when the user leaves the detail view.
type BackMsg struct{}

// Model is the notification detail view.
type Model struct {
	keys         *keys.KeyMap
	notification model.Notification
	width        int
	height       int
}

// New creates a new detail view model.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, width: width, height: height}
}

// SetNotification sets the notification to display.
func (m *Model) SetNotification(n model.Notification) {
	m.notification = n
}

// Notification returns the currently displayed notification.
func (m Model) Notification() model.Notification {
	return m.notification
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg { return BackMsg{} }
		}
	}
	return m, nil
}

// View renders the notification detail panel.
func (m Model) View() string {
	n := m.notification

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var b strings.Builder
	b.WriteString(titleStyle.Render(n.Title))
	b.WriteString("\n\n")
	b.WriteString(n.Message)
	b.WriteString("\n\n")

	meta := []string{
		fmt.Sprintf("Type:     %s", theme.TypeStyle(n.Type).Render(string(n.Type))),
		fmt.Sprintf("Priority: %s", theme.PriorityStyle(n.Priority).Render(string(n.Priority))),
		fmt.Sprintf("Received: %s", n.CreatedAt.Local().Format("2006-01-02 15:04")),
	}
	if n.Sender != "" {
		meta = append(meta, "From:     "+n.Sender)
	}
	if n.Related != nil {
		meta = append(meta, fmt.Sprintf("About:    %s %q", n.Related.Type, n.Related.Name))
	}
	if !n.Read {
		meta = append(meta, theme.UnreadMarkerStyle.Render("● unread"))
	}
	if n.ClientOnly {
		meta = append(meta, theme.LocalBadgeStyle.Render("local only"))
	}
	b.WriteString(theme.DimmedStyle.Render(strings.Join(meta, "\n")))

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(b.String())
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
