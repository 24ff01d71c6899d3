// Package feed is the notification list view: the collection rendered
// newest-first with search and an unread-only filter.
package feed

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lqviet/boardhub/internal/keys"
	"github.com/lqviet/boardhub/internal/model"
	"github.com/lqviet/boardhub/internal/theme"
)

// NotificationsMsg replaces the displayed collection.
type NotificationsMsg struct {
	Notifications []model.Notification
}

// SelectedMsg is sent when the user opens a notification.
type SelectedMsg struct {
	Notification model.Notification
}

// Model is the notification feed view component.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	all         []model.Notification
	unreadOnly  bool
	query       string
	searchMode  bool
	searchInput textinput.Model
	width       int
	height      int
}

// New creates a new feed model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, Delegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search notifications..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		keys:        k,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the feed view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case NotificationsMsg:
		m.all = msg.Notifications
		return m, m.applyFilter()

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query = m.searchInput.Value()
		return m, m.applyFilter()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query = ""
		return m, m.applyFilter()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(Item)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedMsg{Notification: item.Notification}
		}

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.FilterUnread):
		m.unreadOnly = !m.unreadOnly
		return m, m.applyFilter()
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// Selected returns the notification under the cursor.
func (m Model) Selected() (model.Notification, bool) {
	item, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.Notification{}, false
	}
	return item.Notification, true
}

// FilterSummary describes the active filters for the status bar, empty
// when nothing is filtered.
func (m Model) FilterSummary() string {
	var parts []string
	if m.unreadOnly {
		parts = append(parts, "unread only")
	}
	if m.query != "" {
		parts = append(parts, "search: "+m.query)
	}
	return strings.Join(parts, " | ")
}

// applyFilter rebuilds the visible items from the full collection.
func (m *Model) applyFilter() tea.Cmd {
	query := strings.ToLower(m.query)
	items := make([]list.Item, 0, len(m.all))
	for _, n := range m.all {
		if m.unreadOnly && n.Read {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(n.Title), query) &&
			!strings.Contains(strings.ToLower(n.Message), query) {
			continue
		}
		items = append(items, Item{Notification: n})
	}
	return m.list.SetItems(items)
}

// View renders the feed view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when the feed is empty.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.unreadOnly || m.query != "" {
		return style.Render("No matching notifications.\nPress u or / to adjust filters.")
	}
	return style.Render("No notifications yet.\n\nYou are all caught up.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
