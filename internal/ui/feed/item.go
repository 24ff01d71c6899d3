package feed

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lqviet/boardhub/internal/model"
	"github.com/lqviet/boardhub/internal/theme"
)

// Item wraps a model.Notification so it can be used in a bubbles/list.
type Item struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string {
	return i.Notification.Title + " " + i.Notification.Message
}

// Title returns the notification title for the list.
func (i Item) Title() string { return i.Notification.Title }

// Description returns a short summary line for the list.
func (i Item) Description() string {
	parts := []string{
		string(i.Notification.Type),
		relativeTime(i.Notification.CreatedAt),
	}
	if i.Notification.Sender != "" {
		parts = append(parts, i.Notification.Sender)
	}
	return strings.Join(parts, " | ")
}

// Delegate implements list.ItemDelegate for rendering feed entries.
type Delegate struct{}

// Height returns the number of lines each item takes.
func (d Delegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d Delegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d Delegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single feed line: unread marker, type label, title,
// sender and age.
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}

	n := it.Notification
	isSelected := index == m.Index()

	marker := " "
	if !n.Read {
		marker = theme.UnreadMarkerStyle.Render("●")
	}

	label := theme.TypeStyle(n.Type).Render(fmt.Sprintf("%-10s", n.Type))

	title := n.Title
	if title == "" {
		title = n.Message
	}
	titleStyle := lipgloss.NewStyle()
	if n.Read {
		titleStyle = theme.DimmedStyle
	}
	if isSelected {
		titleStyle = theme.SelectedItemStyle
	}

	var trailer []string
	if n.Sender != "" {
		trailer = append(trailer, n.Sender)
	}
	if n.ClientOnly {
		trailer = append(trailer, theme.LocalBadgeStyle.Render("local"))
	}
	trailer = append(trailer, relativeTime(n.CreatedAt))

	line := fmt.Sprintf("%s %s %s  %s",
		marker,
		label,
		titleStyle.Render(title),
		theme.DimmedStyle.Render(strings.Join(trailer, " · ")),
	)
	fmt.Fprint(w, line)
}

// relativeTime formats a timestamp as a short age like "5m" or "2d".
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
