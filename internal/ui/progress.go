package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"grfbuild/internal/buildpipeline"
)

// maxListed bounds the fragment rows shown at once; older finished rows
// scroll off the top.
const maxListed = 12

type progressModel struct {
	title      string
	events     <-chan buildpipeline.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []fileItem
	index      map[string]int
	stages     map[buildpipeline.Stage]buildpipeline.Status
	stageLabel string
	failed     bool
	width      int
	done       bool
}

type fileItem struct {
	path   string
	status buildpipeline.Status
}

type eventMsg buildpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders pipeline
// progress. Fragment rows appear as the scan stage queues them.
func NewProgressModel(title string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		index:   make(map[string]int),
		stages:  make(map[buildpipeline.Stage]buildpipeline.Status),
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(buildpipeline.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	switch {
	case m.done && m.failed:
		header = "failed: " + header
	case m.done:
		header = "done: " + header
	default:
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-statusWidth-4, 20)
	first := max(len(m.items)-maxListed, 0)
	if first > 0 {
		fmt.Fprintf(&b, "  %*s %d more\n", statusWidth, "", first)
	}
	for _, item := range m.items[first:] {
		status := styleStatus(item.status).Render(fmt.Sprintf("%*s", statusWidth, item.status))
		fmt.Fprintf(&b, "  %s %s\n", status, truncate(item.path, nameWidth))
	}

	b.WriteString("\n")
	if m.done && !m.failed {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

const statusWidth = 8

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev buildpipeline.Event) tea.Cmd {
	if ev.Status == buildpipeline.StatusError {
		m.failed = true
	}
	if ev.File == "" {
		m.stages[ev.Stage] = ev.Status
		if label := stageLabel(ev.Stage, ev.Status); label != "" {
			m.stageLabel = label
		}
	} else {
		idx, ok := m.index[ev.File]
		if !ok {
			idx = len(m.items)
			m.index[ev.File] = idx
			m.items = append(m.items, fileItem{path: ev.File})
		}
		m.items[idx].status = ev.Status
	}
	return m.prog.SetPercent(m.percent())
}

// percent weighs every stage equally; aggregate advances per fragment.
func (m *progressModel) percent() float64 {
	stages := buildpipeline.Stages()
	total := 0.0
	for _, st := range stages {
		switch m.stages[st] {
		case buildpipeline.StatusDone, buildpipeline.StatusSkipped, buildpipeline.StatusError:
			total++
			continue
		}
		if st == buildpipeline.StageAggregate && len(m.items) > 0 {
			finished := 0
			for _, item := range m.items {
				if item.status != buildpipeline.StatusQueued {
					finished++
				}
			}
			total += float64(finished) / float64(len(m.items))
		}
	}
	return total / float64(len(stages))
}

func stageLabel(stage buildpipeline.Stage, status buildpipeline.Status) string {
	if status != buildpipeline.StatusWorking {
		return ""
	}
	switch stage {
	case buildpipeline.StageValidate:
		return "validating"
	case buildpipeline.StageScan:
		return "scanning"
	case buildpipeline.StageAggregate:
		return "aggregating"
	case buildpipeline.StageWrite:
		return "writing"
	case buildpipeline.StageCompile:
		return "compiling"
	case buildpipeline.StageRun:
		return "starting game"
	default:
		return ""
	}
}

func styleStatus(status buildpipeline.Status) lipgloss.Style {
	switch status {
	case buildpipeline.StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case buildpipeline.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case buildpipeline.StatusSkipped:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	case buildpipeline.StatusWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
