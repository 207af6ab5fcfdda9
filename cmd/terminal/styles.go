package main

import "github.com/charmbracelet/lipgloss"

type styles struct {
	app      lipgloss.Style
	title    lipgloss.Style
	status   lipgloss.Style
	inactive lipgloss.Style
	error    lipgloss.Style
	success  lipgloss.Style
	failed   lipgloss.Style
	viewport lipgloss.Style
	help     lipgloss.Style
}

type ThemeName string

const (
	ThemeCyan    ThemeName = "cyan"
	ThemeMatrix  ThemeName = "matrix"
	ThemeAmber   ThemeName = "amber"
	ThemeDracula ThemeName = "dracula"
)

type ThemePalette struct {
	Primary  lipgloss.Color
	Success  lipgloss.Color
	Error    lipgloss.Color
	Inactive lipgloss.Color
}

var palettes = map[ThemeName]ThemePalette{
	ThemeCyan: {
		Primary:  lipgloss.Color("51"),
		Success:  lipgloss.Color("46"),
		Error:    lipgloss.Color("196"),
		Inactive: lipgloss.Color("240"),
	},
	ThemeMatrix: {
		Primary:  lipgloss.Color("82"),
		Success:  lipgloss.Color("46"),
		Error:    lipgloss.Color("196"),
		Inactive: lipgloss.Color("240"),
	},
	ThemeAmber: {
		Primary:  lipgloss.Color("220"),
		Success:  lipgloss.Color("208"),
		Error:    lipgloss.Color("196"),
		Inactive: lipgloss.Color("240"),
	},
	ThemeDracula: {
		Primary:  lipgloss.Color("141"),
		Success:  lipgloss.Color("84"),
		Error:    lipgloss.Color("203"),
		Inactive: lipgloss.Color("240"),
	},
}

func GetTheme(theme ThemeName) styles {
	if palette, ok := palettes[theme]; ok {
		return newStylesFromPalette(palette)
	}
	return newStylesFromPalette(palettes[ThemeCyan])
}

func ListThemes() []ThemeName {
	return []ThemeName{
		ThemeCyan,
		ThemeMatrix,
		ThemeAmber,
		ThemeDracula,
	}
}

func newStylesFromPalette(p ThemePalette) styles {
	return styles{
		app: lipgloss.NewStyle().Margin(0, 1),
		title: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true).
			Padding(0, 1),
		status: lipgloss.NewStyle().
			Foreground(p.Inactive).
			MarginTop(1),
		inactive: lipgloss.NewStyle().Foreground(p.Inactive),
		error:    lipgloss.NewStyle().Foreground(p.Error).Bold(true),
		success:  lipgloss.NewStyle().Foreground(p.Success).Bold(true),
		failed:   lipgloss.NewStyle().Foreground(p.Error),
		viewport: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(p.Primary).
			Padding(0, 1),
		help: lipgloss.NewStyle().Foreground(p.Inactive).MarginTop(1),
	}
}
