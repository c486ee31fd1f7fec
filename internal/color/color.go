package color

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"scenarioctl/internal/api"
)

var (
	ColorSuccess = lipgloss.AdaptiveColor{
		Light: "#059669",
		Dark:  "#10B981",
	}
	ColorWarning = lipgloss.AdaptiveColor{
		Light: "#D97706",
		Dark:  "#F59E0B",
	}
	ColorError = lipgloss.AdaptiveColor{
		Light: "#DC2626",
		Dark:  "#EF4444",
	}
	ColorInfo = lipgloss.AdaptiveColor{
		Light: "#2563EB",
		Dark:  "#3B82F6",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#6B7280",
		Dark:  "#9CA3AF",
	}
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorError)
	InfoStyle    = lipgloss.NewStyle().Foreground(ColorInfo)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	PlainStyle   = lipgloss.NewStyle()
	BoldStyle    = lipgloss.NewStyle().Bold(true)
)

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		Disable()
	}
}

// Initialize selects the light or dark variant of the palette.
func Initialize(isDarkMode bool) {
	lipgloss.SetHasDarkBackground(isDarkMode)
}

// Disable turns off all styling.
func Disable() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// Outcome returns the style used for an outcome.
func Outcome(o api.Outcome) lipgloss.Style {
	switch o {
	case api.OutcomeSuccess:
		return SuccessStyle
	case api.OutcomeFailure:
		return WarningStyle
	case api.OutcomeError:
		return ErrorStyle
	default:
		return MutedStyle
	}
}

// Duration returns the style for an item duration: muted when trivial,
// blue, yellow and red as it grows.
func Duration(ms float64) lipgloss.Style {
	switch {
	case ms < 1:
		return MutedStyle
	case ms < 10:
		return PlainStyle
	case ms < 100:
		return InfoStyle
	case ms < 15000:
		return WarningStyle
	default:
		return ErrorStyle
	}
}
