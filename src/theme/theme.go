// Package theme holds the terminal styles used by the CLI.
package theme

import "github.com/charmbracelet/lipgloss"

// Palette is the set of colors styles are derived from.
type Palette struct {
	Primary   lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	Warning   lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	TextMuted lipgloss.AdaptiveColor
}

// DefaultPalette works on light and dark terminals.
var DefaultPalette = Palette{
	Primary:   lipgloss.AdaptiveColor{Light: "#B4530F", Dark: "#E8875B"},
	Success:   lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"},
	Warning:   lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#D29922"},
	Error:     lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"},
	Text:      lipgloss.AdaptiveColor{Light: "#1F2328", Dark: "#E6EDF3"},
	TextMuted: lipgloss.AdaptiveColor{Light: "#656D76", Dark: "#7D8590"},
}

// Styles are the rendered roles.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}

// NewStyles derives styles from p.
func NewStyles(p Palette) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(p.Primary),
		Label:   lipgloss.NewStyle().Foreground(p.TextMuted).Width(14),
		Value:   lipgloss.NewStyle().Foreground(p.Text),
		Muted:   lipgloss.NewStyle().Foreground(p.TextMuted),
		Success: lipgloss.NewStyle().Bold(true).Foreground(p.Success),
		Warning: lipgloss.NewStyle().Foreground(p.Warning),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(p.Error),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Primary).
			Padding(0, 1),
	}
}

// Current is the active style set.
var Current = NewStyles(DefaultPalette)

// SetPalette replaces the active styles.
func SetPalette(p Palette) {
	Current = NewStyles(p)
}

// Row renders a label/value pair on one line.
func (s Styles) Row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.Label.Render(label), s.Value.Render(value))
}
