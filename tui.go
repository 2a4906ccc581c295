package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voxnote/pipeline"
)

// TUI message types
type RecordingStartMsg struct{}
type RecordingStopMsg struct{}
type RecordingTickMsg struct{ Seconds float64 }
type AudioLevelMsg struct{ Level float64 }
type SegmentCutMsg struct{ Seq int }
type QueueDepthMsg struct{ Depth int }
type NoteAddedMsg struct{ Note pipeline.Note }
type NotesClearedMsg struct{}
type RecordErrorMsg struct{ Err error }
type tickMsg time.Time

type headerInfo struct {
	Version    string
	BackendURL string
	Device     string
	Format     string
	SegmentS   int
}

// commands is what the view layer is allowed to ask of the app.
type commands interface {
	Toggle()
	Clear()
}

type tuiModel struct {
	cmd    commands
	header headerInfo

	recording     bool
	duration      float64
	audioLevel    float64
	segments      int
	queueDepth    int
	notes         []pipeline.Note
	lastErr       string
	frame         int
	width, height int
}

var (
	statusRecStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	statusIdleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	levelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	noteTimeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	noteTextStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	analysisStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("108")).Italic(true)
	errStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpBoldStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

func NewTUIProgram(cmd commands, header headerInfo) *tea.Program {
	m := tuiModel{cmd: cmd, header: header}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "r":
			m.cmd.Toggle()
		case "c":
			m.cmd.Clear()
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case RecordingStartMsg:
		m.recording = true
		m.duration = 0
		m.audioLevel = 0
		m.segments = 0
		m.lastErr = ""

	case RecordingStopMsg:
		m.recording = false
		m.audioLevel = 0

	case RecordingTickMsg:
		m.duration = msg.Seconds

	case AudioLevelMsg:
		if m.recording {
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
		}

	case SegmentCutMsg:
		m.segments = msg.Seq + 1

	case QueueDepthMsg:
		m.queueDepth = msg.Depth

	case NoteAddedMsg:
		m.notes = append(m.notes, msg.Note)

	case NotesClearedMsg:
		m.notes = nil

	case RecordErrorMsg:
		m.lastErr = msg.Err.Error()
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder

	title := fmt.Sprintf("voxnote %s", m.header.Version)
	meta := fmt.Sprintf("[%s | %ds segments | %s]", m.header.Format, m.header.SegmentS, m.header.BackendURL)
	b.WriteString(headerStyle.Render(title) + "  " + dimStyle.Render(meta) + "\n")
	b.WriteString(dimStyle.Render(m.header.Device) + "\n\n")

	if m.recording {
		status := statusRecStyle.Render(fmt.Sprintf("● REC %.1fs", m.duration))
		b.WriteString(status + "  " + levelStyle.Render(levelBar(m.audioLevel)) + "\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("segments cut: %d", m.segments)) + "\n")
	} else {
		b.WriteString(statusIdleStyle.Render("○ IDLE") + "\n")
		b.WriteString("\n")
	}

	if m.queueDepth > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("uploading… %d queued", m.queueDepth)) + "\n")
	} else {
		b.WriteString("\n")
	}

	if m.lastErr != "" {
		b.WriteString(errStyle.Render("⚠ "+m.lastErr) + "\n")
	}
	b.WriteString("\n")

	body := m.renderNotes()
	b.WriteString(body)

	help := helpBoldStyle.Render("space") + helpStyle.Render(" record · ") +
		helpBoldStyle.Render("c") + helpStyle.Render(" clear · ") +
		helpBoldStyle.Render("q") + helpStyle.Render(" quit")

	content := b.String()
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for len(lines) < m.height-1 {
		lines = append(lines, "")
	}
	if len(lines) > m.height-1 {
		lines = lines[:m.height-1]
	}
	return strings.Join(lines, "\n") + "\n" + help
}

// renderNotes shows the newest notes that fit in the remaining rows,
// oldest first.
func (m tuiModel) renderNotes() string {
	wrapWidth := m.width - 10
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	if len(m.notes) == 0 {
		return dimStyle.Render("No notes yet — press space to record.") + "\n"
	}

	// Rows available for the list: everything above already used ~7
	// lines, plus the help line.
	budget := m.height - 9
	if budget < 3 {
		budget = 3
	}

	var rendered []string
	for i := len(m.notes) - 1; i >= 0 && len(rendered) < budget; i-- {
		n := m.notes[i]
		var block []string
		stamp := noteTimeStyle.Render(n.At.Format("15:04:05"))
		lines := wrapText(n.Text, wrapWidth)
		block = append(block, stamp+" "+noteTextStyle.Render(lines[0]))
		for _, line := range lines[1:] {
			block = append(block, "         "+noteTextStyle.Render(line))
		}
		if n.Analysis != "" {
			for _, line := range wrapText(n.Analysis, wrapWidth) {
				block = append(block, "         "+analysisStyle.Render(line))
			}
		}
		// Prepend so newest stays at the bottom
		rendered = append(block, rendered...)
	}

	return strings.Join(rendered, "\n") + "\n"
}

func levelBar(level float64) string {
	const maxBars = 24
	n := int(level * 8 * maxBars)
	if n > maxBars {
		n = maxBars
	}
	return strings.Repeat("█", n) + strings.Repeat("░", maxBars-n)
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
