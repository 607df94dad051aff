package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxLog bounds the diagnostics kept in the viewport.
const maxLog = 200

// TUI forwards monitor output to a running bubbletea program.
type TUI struct {
	program *tea.Program
}

func NewTUI(p *tea.Program) *TUI {
	return &TUI{program: p}
}

func (t *TUI) Clear() {
	t.program.Send(ClearMsg{})
}

func (t *TUI) Print(lines ...string) {
	t.program.Send(LinesMsg(append([]string(nil), lines...)))
}

func (t *TUI) UpdateProgress(fraction float64) {
	t.program.Send(ProgressMsg(fraction))
}

func (t *TUI) Log(msg string) {
	t.program.Send(LogMsg(msg))
}

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4")).
		Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF0000"))
)

type Model struct {
	Title    string
	URL      string
	Lines    []string
	Log      []string
	Fraction float64
	Progress progress.Model
	Viewport viewport.Model
	Quitting bool
	Ready    bool
	Width    int
	Height   int
}

type ClearMsg struct{}
type LinesMsg []string
type ProgressMsg float64
type LogMsg string

func NewModel(title, url string) Model {
	p := progress.New(progress.WithDefaultGradient())
	return Model{
		Title:    title,
		URL:      url,
		Lines:    []string{"Waiting for first sample..."},
		Progress: p,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			m.Quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4
		if !m.Ready {
			m.Viewport = viewport.New(msg.Width, msg.Height-12)
			m.Ready = true
		} else {
			m.Viewport.Width = msg.Width
			m.Viewport.Height = msg.Height - 12
		}

	case ClearMsg:
		m.Lines = nil

	case LinesMsg:
		m.Lines = append(m.Lines, msg...)

	case ProgressMsg:
		m.Fraction = float64(msg)

	case LogMsg:
		m.Log = append(m.Log, errorStyle.Render(string(msg)))
		if len(m.Log) > maxLog {
			m.Log = m.Log[len(m.Log)-maxLog:]
		}
		m.Viewport.SetContent(strings.Join(m.Log, "\n"))
		m.Viewport.GotoBottom()
	}

	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.Ready {
		return "\n  Initializing..."
	}

	header := titleStyle.Render(" " + m.Title + " ")
	source := infoStyle.Render(fmt.Sprintf(" %s ", m.URL))
	prog := m.Progress.ViewAs(clamp(m.Fraction))

	view := fmt.Sprintf("%s%s\n\n%s\n\n%s\n\n%s",
		header, source,
		prog,
		strings.Join(m.Lines, "\n"),
		m.Viewport.View())

	if m.Quitting {
		return view + "\n  Quitting...\n"
	}

	return view
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
