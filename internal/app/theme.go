package app

import "github.com/charmbracelet/lipgloss"

// Theme defines all colors used by the tabmux chrome (sidebar, status
// bar, overlays). Pane content keeps the colors the programs inside
// emit. Use DarkTheme() or LightTheme() to get a pre-built theme, or
// construct a custom Theme.
type Theme struct {
	Primary         lipgloss.Color // warm accent: active tab marker, title
	Secondary       lipgloss.Color // cool accent: prefix indicator
	Error           lipgloss.Color // errors, close hints
	Warning         lipgloss.Color // activity markers
	Success         lipgloss.Color // connected status
	Text            lipgloss.Color // primary text
	TextMuted       lipgloss.Color // secondary text: hints, ordinals
	BackgroundPanel lipgloss.Color // sidebar background
	BackgroundElem  lipgloss.Color // highlighted tab background
	Border          lipgloss.Color // separators, borders
}

// DarkTheme returns the default dark theme.
func DarkTheme() Theme {
	return Theme{
		Primary:         lipgloss.Color("#fab283"),
		Secondary:       lipgloss.Color("#5c9cf5"),
		Error:           lipgloss.Color("#e06c75"),
		Warning:         lipgloss.Color("#f5a742"),
		Success:         lipgloss.Color("#7fd88f"),
		Text:            lipgloss.Color("#eeeeee"),
		TextMuted:       lipgloss.Color("#808080"),
		BackgroundPanel: lipgloss.Color("#141414"),
		BackgroundElem:  lipgloss.Color("#1e1e1e"),
		Border:          lipgloss.Color("#484848"),
	}
}

// LightTheme returns a light theme for bright terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary:         lipgloss.Color("#b35c00"),
		Secondary:       lipgloss.Color("#0550ae"),
		Error:           lipgloss.Color("#cf222e"),
		Warning:         lipgloss.Color("#bf8700"),
		Success:         lipgloss.Color("#116329"),
		Text:            lipgloss.Color("#1f2328"),
		TextMuted:       lipgloss.Color("#656d76"),
		BackgroundPanel: lipgloss.Color("#ffffff"),
		BackgroundElem:  lipgloss.Color("#f6f8fa"),
		Border:          lipgloss.Color("#d0d7de"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

// styles holds all lipgloss styles derived from a Theme.
// Constructed once from a Theme and stored in appModel.
type styles struct {
	tab         lipgloss.Style
	tabActive   lipgloss.Style
	tabActivity lipgloss.Style
	ordinal     lipgloss.Style
	newTab      lipgloss.Style
	border      lipgloss.Style
	status      lipgloss.Style
	statusAlert lipgloss.Style
	prefix      lipgloss.Style
	overlay     lipgloss.Style
	overlayHint lipgloss.Style
}

// newStyles builds all styles from a theme.
func newStyles(t Theme) styles {
	return styles{
		tab:         lipgloss.NewStyle().Foreground(t.Text).Background(t.BackgroundPanel),
		tabActive:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Background(t.BackgroundElem),
		tabActivity: lipgloss.NewStyle().Foreground(t.Warning).Background(t.BackgroundPanel),
		ordinal:     lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.BackgroundPanel),
		newTab:      lipgloss.NewStyle().Foreground(t.Success).Background(t.BackgroundPanel),
		border:      lipgloss.NewStyle().Foreground(t.Border),
		status:      lipgloss.NewStyle().Foreground(t.TextMuted),
		statusAlert: lipgloss.NewStyle().Foreground(t.Error),
		prefix:      lipgloss.NewStyle().Bold(true).Foreground(t.Secondary),
		overlay: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		overlayHint: lipgloss.NewStyle().Foreground(t.TextMuted),
	}
}
