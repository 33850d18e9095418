package theme

import (
	"maps"
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
)

// IconSet maps semantic names ("image", "folder", "success") to glyphs.
type IconSet map[string]string

func (s IconSet) clone() IconSet {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}

// Colors is the palette shared by every view.
type Colors struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Accent     lipgloss.Color
	Background lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

// Borders defines reusable border styles.
type Borders struct {
	Panel     lipgloss.Border
	Operation lipgloss.Border
}

// Spacing captures commonly used spacing values.
type Spacing struct {
	PanelPadding   int
	PanelGap       int
	StatusHPadding int
	FileIndent     int
}

// BadgeKind enumerates supported badge style variants.
type BadgeKind int

const (
	BadgeInfo BadgeKind = iota
	BadgeSuccess
	BadgeWarning
	BadgeError
	BadgeMuted
)

// Theme centralizes palette, border, spacing, and icon configuration.
type Theme struct {
	colors   Colors
	borders  Borders
	spacing  Spacing
	icons    IconSet
	fallback IconSet
}

// Option configures a Theme during construction.
type Option func(*Theme)

// WithIconSet overrides the icon set used by the theme.
func WithIconSet(set IconSet) Option {
	return func(t *Theme) {
		t.icons = set.clone()
	}
}

// WithColors overrides the base color palette.
func WithColors(colors Colors) Option {
	return func(t *Theme) {
		t.colors = colors
	}
}

// WithSpacing overrides the default spacing values.
func WithSpacing(spacing Spacing) Option {
	return func(t *Theme) {
		t.spacing = spacing
	}
}

// WithBorders overrides the border configuration.
func WithBorders(borders Borders) Option {
	return func(t *Theme) {
		t.borders = borders
	}
}

// New constructs a Theme with optional overrides applied.
func New(opts ...Option) Theme {
	defaults := []Option{
		WithColors(Colors{
			Primary:    lipgloss.Color("#2f5d8a"),
			Secondary:  lipgloss.Color("#4f7fae"),
			Accent:     lipgloss.Color("#7fb3e0"),
			Background: lipgloss.Color("#f6f8fa"),
			Muted:      lipgloss.Color("#8e99a8"),
			Success:    lipgloss.Color("#4fbf84"),
			Warning:    lipgloss.Color("#e0a84f"),
			Error:      lipgloss.Color("#e5534b"),
		}),
		WithBorders(Borders{Panel: lipgloss.RoundedBorder(), Operation: lipgloss.NormalBorder()}),
		WithSpacing(Spacing{PanelPadding: 1, PanelGap: 2, StatusHPadding: 1, FileIndent: 2}),
		WithIconSet(defaultIconSet()),
	}

	t := Theme{fallback: asciiIcons.clone()}
	for _, opt := range append(defaults, opts...) {
		opt(&t)
	}
	if t.icons == nil {
		t.icons = defaultIconSet()
	}
	return t
}

// Default returns the default Theme configuration.
func Default() Theme {
	return New()
}

func (t Theme) Colors() Colors   { return t.colors }
func (t Theme) Borders() Borders { return t.borders }
func (t Theme) Spacing() Spacing { return t.spacing }

// Icon returns a themed icon, falling back to ASCII, then to "".
func (t Theme) Icon(name string) string {
	if icon, ok := t.icons[name]; ok {
		return icon
	}
	if icon, ok := t.fallback[name]; ok {
		return icon
	}
	return ""
}

// IconSet returns a copy of the themed icon map.
func (t Theme) IconSet() IconSet {
	return t.icons.clone()
}

// HeaderStyle is the application title bar.
func (t Theme) HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Background(t.colors.Primary).
		Foreground(t.colors.Background).
		Align(lipgloss.Center)
}

// StatusBarStyle is the footer bar.
func (t Theme) StatusBarStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.colors.Secondary).
		Foreground(t.colors.Background).
		Padding(0, t.spacing.StatusHPadding)
}

// PanelStyle is the bordered container used for side panels and dialogs.
func (t Theme) PanelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(t.borders.Panel).
		BorderForeground(t.colors.Accent).
		Padding(t.spacing.PanelPadding)
}

// OperationStyle frames one operation card. The focused card gets the
// primary border color.
func (t Theme) OperationStyle(focused bool) lipgloss.Style {
	border := t.colors.Muted
	if focused {
		border = t.colors.Primary
	}
	return lipgloss.NewStyle().
		Border(t.borders.Operation).
		BorderForeground(border).
		Padding(0, 1)
}

// OperationTitleStyle renders the "Operation N" heading.
func (t Theme) OperationTitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.colors.Primary)
}

// FileRowStyle renders a file row; the cursor row is inverted.
func (t Theme) FileRowStyle(cursor bool) lipgloss.Style {
	s := lipgloss.NewStyle().PaddingLeft(t.spacing.FileIndent)
	if cursor {
		return s.Foreground(t.colors.Background).Background(t.colors.Secondary)
	}
	return s.Foreground(t.colors.Primary)
}

// MutedStyle is used for hints and secondary text.
func (t Theme) MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.colors.Muted)
}

// ErrorStyle is used for failure lines.
func (t Theme) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.colors.Error)
}

// BadgeStyle returns the badge style for the requested variant.
func (t Theme) BadgeStyle(kind BadgeKind) lipgloss.Style {
	base := lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(t.colors.Background)

	switch kind {
	case BadgeSuccess:
		return base.Background(t.colors.Success)
	case BadgeWarning:
		return base.Background(t.colors.Warning)
	case BadgeError:
		return base.Background(t.colors.Error)
	case BadgeMuted:
		return base.Background(t.colors.Muted)
	default:
		return base.Background(t.colors.Accent)
	}
}

// ProgressGradient returns the gradient colors for the apply progress bar.
func (t Theme) ProgressGradient() []string {
	return []string{string(t.colors.Primary), string(t.colors.Accent)}
}

func defaultIconSet() IconSet {
	if isLimitedTerminal() {
		return asciiIcons.clone()
	}
	return emojiIcons.clone()
}

// isLimitedTerminal reports SSH sessions and Windows consoles, where emoji
// widths are unreliable.
func isLimitedTerminal() bool {
	if os.Getenv("SSH_CLIENT") != "" || os.Getenv("SSH_TTY") != "" || os.Getenv("SSH_CONNECTION") != "" {
		return true
	}
	return runtime.GOOS == "windows"
}

var emojiIcons = IconSet{
	"operation": "📦",
	"folder":    "📁",
	"file":      "📄",
	"image":     "🖼",
	"video":     "🎥",
	"mesh":      "🧊",
	"preview":   "👁",
	"expanded":  "▾",
	"collapsed": "▸",
	"success":   "✅",
	"error":     "❌",
	"partial":   "⚠",
	"skipped":   "⏭",
	"cancelled": "⏹",
	"session":   "📝",
	"arrow":     "→",
	"unknown":   "❓",
}

var asciiIcons = IconSet{
	"operation": "[#]",
	"folder":    "[D]",
	"file":      "[F]",
	"image":     "[I]",
	"video":     "[V]",
	"mesh":      "[M]",
	"preview":   "[P]",
	"expanded":  "v",
	"collapsed": ">",
	"success":   "[v]",
	"error":     "[!]",
	"partial":   "[~]",
	"skipped":   "[-]",
	"cancelled": "[x]",
	"session":   "[L]",
	"arrow":     "->",
	"unknown":   "[?]",
}
