// Package ui provides terminal styling for ci-guardian output.
// Colors are adaptive (light/dark) and are dropped entirely when stdout is
// not a terminal or NO_COLOR is set, so hook output stays readable in logs.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	if !ShouldUseColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	} else {
		lipgloss.SetColorProfile(termenv.ANSI256)
	}
}

// ApplyThemeMode applies the theme mode settings to lipgloss.
// Call it after InitTheme.
func ApplyThemeMode() {
	if !ShouldUseColor() {
		return
	}
	lipgloss.SetHasDarkBackground(HasDarkBackground())
}

// Semantic colors.
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

// Core styles
var (
	PassStyle     = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle     = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	BoldStyle     = lipgloss.NewStyle().Bold(true)
	CategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

// Status icons
const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconSkip = "-"
	IconInfo = "ℹ"
)

// Emoji used in hook banners when the terminal supports them.
const (
	EmojiAlarm  = "🚨"
	EmojiBulb   = "💡"
	EmojiSearch = "🔍"
	EmojiOK     = "✅"
	EmojiBlock  = "❌"
)

// SeparatorLight is a 42-column rule.
const SeparatorLight = "──────────────────────────────────────────"

// RenderPass renders text in the pass color.
func RenderPass(s string) string {
	return PassStyle.Render(s)
}

// RenderWarn renders text in the warning color.
func RenderWarn(s string) string {
	return WarnStyle.Render(s)
}

// RenderFail renders text in the fail color.
func RenderFail(s string) string {
	return FailStyle.Render(s)
}

// RenderMuted renders text in the muted color.
func RenderMuted(s string) string {
	return MutedStyle.Render(s)
}

// RenderAccent renders text in the accent color.
func RenderAccent(s string) string {
	return AccentStyle.Render(s)
}

// RenderBold renders text in bold.
func RenderBold(s string) string {
	return BoldStyle.Render(s)
}

// RenderCategory renders a section header in upper case.
func RenderCategory(s string) string {
	return CategoryStyle.Render(strings.ToUpper(s))
}

// RenderSeparator renders the light separator in the muted color.
func RenderSeparator() string {
	return MutedStyle.Render(SeparatorLight)
}

func RenderPassIcon() string { return PassStyle.Render(IconPass) }
func RenderWarnIcon() string { return WarnStyle.Render(IconWarn) }
func RenderFailIcon() string { return FailStyle.Render(IconFail) }
func RenderSkipIcon() string { return MutedStyle.Render(IconSkip) }
func RenderInfoIcon() string { return AccentStyle.Render(IconInfo) }

// Emoji returns e when emoji output is enabled and fallback otherwise.
func Emoji(e, fallback string) string {
	if ShouldUseEmoji() {
		return e
	}
	return fallback
}
