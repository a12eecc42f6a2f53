package ui

import (
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ThemeMode is the CLI color scheme mode.
type ThemeMode string

const (
	// ThemeModeAuto lets the terminal background guide color selection.
	ThemeModeAuto ThemeMode = "auto"
	// ThemeModeDark forces dark mode colors.
	ThemeModeDark ThemeMode = "dark"
	// ThemeModeLight forces light mode colors.
	ThemeModeLight ThemeMode = "light"
)

// ThemeEnv overrides the theme mode.
const ThemeEnv = "CI_GUARDIAN_THEME"

// NoEmojiEnv disables emoji decorations.
const NoEmojiEnv = "CI_GUARDIAN_NO_EMOJI"

var (
	themeMode         ThemeMode
	hasDarkBackground bool
)

// InitTheme resolves the theme mode. Call it early in main.
// configTheme may be empty.
func InitTheme(configTheme string) {
	themeMode = resolveThemeMode(configTheme)
	hasDarkBackground = detectDarkBackground(themeMode)
}

// GetThemeMode returns the current theme mode.
// CI_GUARDIAN_THEME wins over the configured value; the default is auto.
func GetThemeMode() ThemeMode {
	return themeMode
}

// HasDarkBackground reports whether output is on a dark background.
func HasDarkBackground() bool {
	return hasDarkBackground
}

func parseThemeMode(s string) (ThemeMode, bool) {
	switch strings.ToLower(s) {
	case "dark":
		return ThemeModeDark, true
	case "light":
		return ThemeModeLight, true
	case "auto":
		return ThemeModeAuto, true
	}
	return "", false
}

func resolveThemeMode(configTheme string) ThemeMode {
	if m, ok := parseThemeMode(os.Getenv(ThemeEnv)); ok {
		return m
	}
	if m, ok := parseThemeMode(configTheme); ok {
		return m
	}
	return ThemeModeAuto
}

func detectDarkBackground(mode ThemeMode) bool {
	switch mode {
	case ThemeModeDark:
		return true
	case ThemeModeLight:
		return false
	default:
		return termenv.HasDarkBackground()
	}
}

// IsTerminal returns true if stdout is connected to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsStdinTerminal returns true if stdin is connected to a terminal, i.e.
// an interactive confirmation can be asked.
func IsStdinTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ShouldUseColor determines if ANSI color codes should be used.
// Respects NO_COLOR (https://no-color.org/), CLICOLOR, and CLICOLOR_FORCE.
func ShouldUseColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if _, exists := os.LookupEnv("CLICOLOR_FORCE"); exists {
		return true
	}
	return IsTerminal()
}

// ShouldUseEmoji determines if emoji decorations should be used.
func ShouldUseEmoji() bool {
	if _, exists := os.LookupEnv(NoEmojiEnv); exists {
		return false
	}
	return IsTerminal()
}
