package manager

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the lipgloss styles used by the TUI and the CLI table.
// All styles are safe to use when theming is disabled; they render plain.
//
// Selection (first match wins):
//  1. NO_COLOR set            -> no styling
//  2. SSHDECK_THEME=none|off  -> no styling
//  3. SSHDECK_THEME=light     -> light palette
//  4. otherwise               -> dark palette
type Theme struct {
	Enabled bool

	Title     lipgloss.Style
	Selected  lipgloss.Style
	Normal    lipgloss.Style
	Separator lipgloss.Style
	Label     lipgloss.Style
	Dim       lipgloss.Style
	Help      lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warn      lipgloss.Style
	Pane      lipgloss.Style
	Popup     lipgloss.Style
}

// LoadTheme resolves the theme from the environment.
func LoadTheme() Theme {
	if os.Getenv("NO_COLOR") != "" {
		return NoTheme()
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("SSHDECK_THEME"))) {
	case "none", "off", "disabled":
		return NoTheme()
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

// NoTheme disables all styling but keeps layout (borders, padding).
func NoTheme() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		Enabled:   false,
		Title:     plain,
		Selected:  plain,
		Normal:    plain,
		Separator: plain,
		Label:     plain,
		Dim:       plain,
		Help:      plain,
		Error:     plain,
		Success:   plain,
		Warn:      plain,
		Pane:      lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
		Popup:     lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1, 2),
	}
}

// DarkTheme provides a default palette for dark terminals.
func DarkTheme() Theme {
	return palette(lipgloss.Color("213"), lipgloss.Color("229"), lipgloss.Color("245"), lipgloss.Color("81"))
}

// LightTheme provides a default palette for light terminals.
func LightTheme() Theme {
	return palette(lipgloss.Color("127"), lipgloss.Color("16"), lipgloss.Color("242"), lipgloss.Color("25"))
}

func palette(accent, selected, dim, label lipgloss.Color) Theme {
	return Theme{
		Enabled:   true,
		Title:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(selected),
		Normal:    lipgloss.NewStyle(),
		Separator: lipgloss.NewStyle().Foreground(dim).Italic(true),
		Label:     lipgloss.NewStyle().Foreground(label),
		Dim:       lipgloss.NewStyle().Foreground(dim),
		Help:      lipgloss.NewStyle().Foreground(dim),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		Warn:      lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
		Pane:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(dim).Padding(0, 1),
		Popup:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(1, 2),
	}
}
