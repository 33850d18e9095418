package components

import (
	"github.com/Digital-Shane/batch-mover/internal/tui/theme"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// NewViewport constructs a borderless viewport padded like a theme panel.
func NewViewport(width, height int, th theme.Theme) *viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = th.PanelStyle().
		BorderStyle(lipgloss.Border{}).
		BorderForeground(lipgloss.Color(""))
	return &vp
}
