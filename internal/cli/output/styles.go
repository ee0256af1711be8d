package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leapstack-labs/sqlgrade/pkg/hardness"
)

// Styles holds the lipgloss styles of tier labels and messages.
type Styles struct {
	Tiers   map[hardness.Tier]lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Header  lipgloss.Style
}

// NewStyles builds styles bound to w. Colors are dropped when w is not a
// terminal or the terminal reports no color support.
func NewStyles(w io.Writer, isTTY bool) *Styles {
	r := lipgloss.NewRenderer(w)
	if !isTTY || termenv.NewOutput(w).EnvColorProfile() == termenv.Ascii {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Styles{
		Tiers: map[hardness.Tier]lipgloss.Style{
			hardness.Easy:      r.NewStyle().Foreground(lipgloss.Color("2")),
			hardness.Medium:    r.NewStyle().Foreground(lipgloss.Color("3")),
			hardness.Hard:      r.NewStyle().Foreground(lipgloss.Color("208")),
			hardness.Extra:     r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			hardness.GoldError: r.NewStyle().Foreground(lipgloss.Color("5")),
		},
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("3")),
		Header:  r.NewStyle().Bold(true),
	}
}

// Tier renders a tier label in its color.
func (s *Styles) Tier(t hardness.Tier) string {
	if t == "" {
		return s.Muted.Render("-")
	}
	style, ok := s.Tiers[t]
	if !ok {
		return string(t)
	}
	return style.Render(string(t))
}
