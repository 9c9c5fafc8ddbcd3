package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/abdul-hamid-achik/mocha/packages/viewer"
)

// Minimal color palette
var (
	DimColor     = lipgloss.Color("#6c6c6c")
	TextColor    = lipgloss.Color("#e0e0e0")
	AccentColor  = lipgloss.Color("#7aa2f7")
	ErrorColor   = lipgloss.Color("#f7768e")
	SuccessColor = lipgloss.Color("#9ece6a")
	WarnColor    = lipgloss.Color("#e0af68")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	TextStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	HelpStyle = lipgloss.NewStyle().
			Foreground(DimColor)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	FolderStyle = lipgloss.NewStyle().
			Foreground(DimColor).
			Bold(true)

	SidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(DimColor).
			PaddingRight(1)

	FocusedSidebarStyle = SidebarStyle.
				BorderForeground(AccentColor)
)

// Status line styles keyed by response class.
var classStyles = map[viewer.StatusClass]lipgloss.Style{
	viewer.ClassInformational: lipgloss.NewStyle().Foreground(DimColor),
	viewer.ClassSuccess:       lipgloss.NewStyle().Foreground(SuccessColor).Bold(true),
	viewer.ClassRedirection:   lipgloss.NewStyle().Foreground(AccentColor).Bold(true),
	viewer.ClassClientError:   lipgloss.NewStyle().Foreground(WarnColor).Bold(true),
	viewer.ClassServerError:   lipgloss.NewStyle().Foreground(ErrorColor).Bold(true),
	viewer.ClassError:         lipgloss.NewStyle().Foreground(ErrorColor),
}

func classStyle(c viewer.StatusClass) lipgloss.Style {
	if s, ok := classStyles[c]; ok {
		return s
	}
	return TextStyle
}

const (
	sidebarWidth = 30
	// title, request line, blank, status line, blank
	headerLines = 5
	footerLines = 1
)
