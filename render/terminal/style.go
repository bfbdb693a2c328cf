package terminal

import "github.com/charmbracelet/lipgloss"

var (
	// Role colors: blue user, emerald assistant, slate system.
	colorUser      = lipgloss.AdaptiveColor{Light: "#2563eb", Dark: "#60a5fa"}
	colorAssistant = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34d399"}
	colorSystem    = lipgloss.AdaptiveColor{Light: "#64748b", Dark: "#94a3b8"}

	// UI colors.
	colorBright = lipgloss.AdaptiveColor{Light: "#0f172a", Dark: "#f1f5f9"}
	colorDim    = lipgloss.AdaptiveColor{Light: "#94a3b8", Dark: "#64748b"}
	colorOK     = lipgloss.AdaptiveColor{Light: "#16a34a", Dark: "#4ade80"}
	colorError  = lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"}
	colorAccent = lipgloss.AdaptiveColor{Light: "#7c3aed", Dark: "#a78bfa"} // purple
)

var (
	styleUserBadge      = lipgloss.NewStyle().Foreground(colorUser).Bold(true)
	styleAssistantBadge = lipgloss.NewStyle().Foreground(colorAssistant).Bold(true)
	styleSystemBadge    = lipgloss.NewStyle().Foreground(colorSystem).Bold(true)

	styleTitle    = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleMeta     = lipgloss.NewStyle().Foreground(colorDim)
	styleDuration = lipgloss.NewStyle().Foreground(colorAssistant)
	styleCursor   = lipgloss.NewStyle().Foreground(colorAssistant).Blink(true)

	styleConnected    = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	styleDisconnected = lipgloss.NewStyle().Foreground(colorError).Bold(true)

	stylePromptNumber  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	stylePromptHeading = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	stylePromptSub     = lipgloss.NewStyle().Foreground(colorDim)

	styleCurrent   = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleSeparator = lipgloss.NewStyle().Foreground(colorDim)
)
