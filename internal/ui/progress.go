// Package ui renders batch progress in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"spvir/internal/driver"
)

const statusWidth = 10

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// stageWeight is how far through a file each stage starts.
var stageWeight = map[driver.Stage]float64{
	driver.StageRead:  0.05,
	driver.StageLower: 0.25,
	driver.StageStats: 0.7,
	driver.StageLift:  0.6,
	driver.StageWrite: 0.9,
}

type fileRow struct {
	path    string
	label   string
	stage   driver.Stage
	final   bool
	err     string
	elapsed time.Duration
}

type batchModel struct {
	title   string
	events  <-chan driver.Event
	spinner spinner.Model
	bar     progress.Model
	rows    []fileRow
	byPath  map[string]int
	width   int
	done    bool
}

type eventMsg driver.Event
type closedMsg struct{}

// NewBatchModel returns a Bubble Tea model that follows driver events for
// files until events is closed.
func NewBatchModel(title string, files []string, events <-chan driver.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	m := &batchModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		rows:    make([]fileRow, len(files)),
		byPath:  make(map[string]int, len(files)),
		width:   80,
	}
	for i, f := range files {
		m.rows[i] = fileRow{path: f, label: string(driver.StatusQueued)}
		m.byPath[f] = i
	}
	return m
}

func (m *batchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *batchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(driver.Event(msg)), m.next())
	case closedMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = max(msg.Width-4, 10)
		}
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *batchModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	var b strings.Builder
	if m.done {
		b.WriteString(titleStyle.Render(fmt.Sprintf("%s: %d/%d", m.title, m.finished(), len(m.rows))))
	} else {
		b.WriteString(m.spinner.View() + " " + titleStyle.Render(m.title))
	}
	b.WriteString("\n\n")

	nameWidth := max(m.width-statusWidth-14, 20)
	for _, r := range m.rows {
		status := labelStyle(r.label).Render(fmt.Sprintf("%*s", statusWidth, r.label))
		fmt.Fprintf(&b, "  %s %s", status, truncate(r.path, nameWidth))
		if r.final && r.elapsed > 0 {
			b.WriteString(" " + dimStyle.Render(r.elapsed.Round(time.Millisecond).String()))
		}
		b.WriteString("\n")
		if r.err != "" {
			b.WriteString("    " + errStyle.Render(truncate(r.err, m.width-4)) + "\n")
		}
	}
	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *batchModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *batchModel) apply(ev driver.Event) tea.Cmd {
	idx, ok := m.byPath[ev.File]
	if !ok {
		return nil
	}
	r := &m.rows[idx]
	r.stage = ev.Stage
	r.elapsed = ev.Elapsed
	switch ev.Status {
	case driver.StatusWorking:
		r.label = stageLabel(ev.Stage)
	case driver.StatusDone:
		r.label, r.final = "done", true
	case driver.StatusError:
		r.label, r.final = "error", true
		if ev.Err != nil {
			r.err = ev.Err.Error()
		}
	default:
		r.label = string(ev.Status)
	}
	return m.bar.SetPercent(m.fraction())
}

func (m *batchModel) finished() int {
	n := 0
	for _, r := range m.rows {
		if r.final {
			n++
		}
	}
	return n
}

// fraction is the mean completion of all rows.
func (m *batchModel) fraction() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range m.rows {
		if r.final {
			sum++
			continue
		}
		if r.label != string(driver.StatusQueued) {
			sum += stageWeight[r.stage]
		}
	}
	return sum / float64(len(m.rows))
}

func stageLabel(s driver.Stage) string {
	switch s {
	case driver.StageRead:
		return "reading"
	case driver.StageLower:
		return "lowering"
	case driver.StageLift:
		return "lifting"
	case driver.StageWrite:
		return "writing"
	case driver.StageStats:
		return "counting"
	default:
		return string(s)
	}
}

func labelStyle(label string) lipgloss.Style {
	switch label {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return errStyle
	case "queued":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	}
}

// truncate cuts value to width terminal cells, marking the cut with "...".
func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
