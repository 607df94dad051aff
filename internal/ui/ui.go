package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// UI is where the monitor renders each cycle.
type UI interface {
	// Clear wipes the previous report.
	Clear()
	// Print writes report lines.
	Print(lines ...string)
	// UpdateProgress reports the latest progress fraction.
	UpdateProgress(fraction float64)
	// Log shows a diagnostic without clearing the report.
	Log(msg string)
}

type SilentUI struct{}

func (s SilentUI) Clear()                   {}
func (s SilentUI) Print(lines ...string)    {}
func (s SilentUI) UpdateProgress(f float64) {}
func (s SilentUI) Log(msg string)           {}

const clearScreen = "\033[H\033[2J"

// Console renders to a terminal stream.
type Console struct {
	out        io.Writer
	titleStyle lipgloss.Style
	warnStyle  lipgloss.Style
}

func NewConsole(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:        out,
		titleStyle: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575")),
		warnStyle:  r.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
	}
}

func (c *Console) Clear() {
	fmt.Fprint(c.out, clearScreen)
}

// Print writes lines, highlighting the first one.
func (c *Console) Print(lines ...string) {
	var sb strings.Builder
	for i, line := range lines {
		if i == 0 {
			line = c.titleStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	fmt.Fprint(c.out, sb.String())
}

func (c *Console) UpdateProgress(fraction float64) {}

func (c *Console) Log(msg string) {
	fmt.Fprintln(c.out, c.warnStyle.Render(msg))
}
