package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rolivares/mpcap/internal/engine"
)

const maxVisibleErrors = 5

type slotState struct {
	file    string
	percent int
	busy    bool
}

type Model struct {
	events   <-chan engine.Event
	onCancel func()

	started time.Time
	width   int

	status   string
	total    int
	done     int
	slots    []slotState
	errors   []engine.FileError
	errCount int
	finished string
	quitting bool
}

type doneMsg struct{}

type eventMsg struct {
	event engine.Event
}

// NewModel renders the progress of one run. onCancel is invoked when the
// user hits q or ctrl+c; the model itself stays up until the event channel
// closes so the terminal summary is never lost.
func NewModel(events <-chan engine.Event, workers int, onCancel func()) Model {
	return Model{
		events:   events,
		onCancel: onCancel,
		started:  time.Now(),
		status:   "Starting...",
		slots:    make([]slotState, workers),
	}
}

func (m Model) Init() tea.Cmd {
	return listenForEvents(m.events)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.apply(msg.event)
		return m, listenForEvents(m.events)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.onCancel != nil {
				m.onCancel()
			}
			m.status = "Cancelling..."
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) apply(ev engine.Event) {
	switch ev := ev.(type) {
	case engine.DiscoveryStatus:
		m.status = ev.Message
	case engine.OverallProgress:
		m.done = ev.Done
		m.total = ev.Total
	case engine.SlotProgress:
		if ev.Slot >= 0 && ev.Slot < len(m.slots) {
			m.slots[ev.Slot] = slotState{file: ev.File, percent: ev.Percent, busy: true}
		}
	case engine.SlotIdle:
		if ev.Slot >= 0 && ev.Slot < len(m.slots) {
			m.slots[ev.Slot] = slotState{}
		}
	case engine.FileError:
		m.errCount++
		if len(m.errors) < maxVisibleErrors {
			m.errors = append(m.errors, ev)
		}
	case engine.RunComplete:
		m.finished = fmt.Sprintf("Processing complete. %d files processed.", ev.Processed)
	case engine.RunCancelled:
		m.finished = fmt.Sprintf("Processing cancelled. %d files processed.", ev.Processed)
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-24)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.done) / float64(m.total)
	}

	lines := []string{
		titleStyle.Render("mpcap"),
		labelStyle.Render(m.status),
		labelStyle.Render(fmt.Sprintf("Overall: %s %d/%d", renderBar(barWidth, ratio), m.done, m.total)),
	}

	for i, slot := range m.slots {
		label := "Idle"
		bar := renderBar(barWidth, 0)
		if slot.busy {
			label = slot.file
			bar = renderBar(barWidth, float64(slot.percent)/100)
		}
		lines = append(lines, dimStyle.Render(
			fmt.Sprintf("Worker %d: %s %s", i+1, bar, label),
		))
	}

	if m.errCount > 0 {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("Errors: %d", m.errCount)))
		for _, fe := range m.errors {
			lines = append(lines, errorStyle.Render(fmt.Sprintf("  %s: %s", fe.File, fe.Reason)))
		}
		if m.errCount > len(m.errors) {
			lines = append(lines, errorStyle.Render(
				fmt.Sprintf("  ... and %d more", m.errCount-len(m.errors)),
			))
		}
	}

	if m.finished != "" {
		lines = append(lines, labelStyle.Render(m.finished))
	}

	elapsed := time.Since(m.started).Round(time.Millisecond)
	lines = append(lines, dimStyle.Render(fmt.Sprintf("Elapsed: %s  (q to cancel)", elapsed)))

	return strings.Join(lines, "\n")
}

func listenForEvents(events <-chan engine.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return doneMsg{}
		}
		return eventMsg{event: ev}
	}
}

func renderBar(width int, ratio float64) string {
	if ratio > 1 {
		ratio = 1
	}
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
