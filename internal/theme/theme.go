package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lqviet/boardhub/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle wraps the detail view content area.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// DimmedStyle de-emphasizes read notifications and secondary text.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// UnreadMarkerStyle renders the unread bullet in front of a feed entry.
var UnreadMarkerStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

// LocalBadgeStyle marks client-only notifications in the feed.
var LocalBadgeStyle = lipgloss.NewStyle().
	Foreground(ColorMagenta)

// TypeStyle returns the style for a notification type label.
func TypeStyle(t model.NotificationType) lipgloss.Style {
	switch t {
	case model.TypeSuccess:
		return lipgloss.NewStyle().Foreground(ColorGreen)
	case model.TypeWarning:
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case model.TypeError:
		return lipgloss.NewStyle().Foreground(ColorRed)
	case model.TypeInvitation:
		return lipgloss.NewStyle().Foreground(ColorMagenta)
	default:
		return lipgloss.NewStyle().Foreground(ColorBlue)
	}
}

// PriorityStyle returns the style for a notification priority label.
func PriorityStyle(p model.Priority) lipgloss.Style {
	switch p {
	case model.PriorityCritical:
		return lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	case model.PriorityHigh:
		return lipgloss.NewStyle().Foreground(ColorOrange)
	case model.PriorityLow:
		return lipgloss.NewStyle().Foreground(ColorGray)
	default:
		return lipgloss.NewStyle().Foreground(ColorWhite)
	}
}

// ConnStateStyle returns the style for a connection state label in the
// header.
func ConnStateStyle(state string) lipgloss.Style {
	switch state {
	case "connected":
		return HeaderStyle.Foreground(ColorGreen)
	case "reconnecting", "connecting":
		return HeaderStyle.Foreground(ColorYellow)
	case "error":
		return HeaderStyle.Foreground(ColorRed)
	default:
		return HeaderStyle.Foreground(ColorGray)
	}
}
