package tui

import "github.com/charmbracelet/lipgloss"

const (
	ColorBg     = "#0d1117"
	ColorCard   = "#161b22"
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorGreen  = "#3fb950"
	ColorRed    = "#f85149"
	ColorYellow = "#d29922"
	ColorGray   = "#8b949e"
	ColorText   = "#c9d1d9"
	ColorBright = "#f0f6fc"
)

// Styles holds the lipgloss styles of the query screen.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Help   lipgloss.Style
	Button lipgloss.Style

	StatusOK      lipgloss.Style
	StatusError   lipgloss.Style
	StatusPending lipgloss.Style

	Response lipgloss.Style
	Border   lipgloss.Style
	Spinner  lipgloss.Style
}

func DefaultStyles() *Styles {
	badge := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorBg)).
		Padding(0, 1).
		Bold(true)

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)).
			MarginBottom(1),

		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		Button: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBg)).
			Background(lipgloss.Color(ColorBlue)).
			Padding(0, 2).
			Bold(true),

		StatusOK:      badge.Background(lipgloss.Color(ColorGreen)),
		StatusError:   badge.Background(lipgloss.Color(ColorRed)),
		StatusPending: badge.Background(lipgloss.Color(ColorYellow)),

		Response: lipgloss.NewStyle().
			Background(lipgloss.Color(ColorCard)).
			Foreground(lipgloss.Color(ColorText)).
			Padding(1, 2),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(0, 1),

		Spinner: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue)),
	}
}
