// Package tui provides a Bubble Tea terminal user interface for tilebatch.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/francegen/tilebatch/internal/batch"
	"github.com/francegen/tilebatch/internal/config"
	"github.com/francegen/tilebatch/internal/download"
	"github.com/francegen/tilebatch/internal/process"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	macroStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateRunning
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

const maxLogs = 10

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	err       error
	exitCode  int

	ctx    context.Context
	cancel context.CancelFunc

	orchestrator *batch.Orchestrator
	events       chan download.ProgressEvent
	summary      *batch.Summary
	snapshot     batch.Progress
	bytes        int64

	// Options
	radius       int
	resume       bool
	skipExisting bool
	verbose      bool

	width  int
	height int
}

// NewModel creates a new TUI model using settings as the base configuration.
func NewModel(settings *config.Settings) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	ti := textinput.New()
	ti.Placeholder = "697312.5 6518866.5"
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:        StateInput,
		textInput:    ti,
		spinner:      sp,
		progress:     prog,
		settings:     settings,
		ctx:          ctx,
		cancel:       cancel,
		radius:       settings.MacroRadius,
		resume:       settings.Resume,
		skipExisting: settings.SkipExisting,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg carries one event from the running batch.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// StartedMsg is sent once the orchestrator has been set up.
	StartedMsg struct {
		Orchestrator *batch.Orchestrator
		Events       chan download.ProgressEvent
		Err          error
	}

	// RunDoneMsg is sent when the batch finishes.
	RunDoneMsg struct {
		Summary *batch.Summary
		Err     error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// ParseCenter parses "x y" or "x,y" into projected coordinates.
func ParseCenter(s string) (x, y float64, err error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected two coordinates, got %d", len(fields))
	}
	if x, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return 0, 0, fmt.Errorf("center x: %w", err)
	}
	if y, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return 0, 0, fmt.Errorf("center y: %w", err)
	}
	return x, y, nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateRunning {
				m.cancel()
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				cx, cy, err := ParseCenter(m.textInput.Value())
				if err != nil {
					m.logs = appendLog(m.logs, LogEntry{Message: err.Error(), Level: download.LevelError})
					return m, nil
				}
				m.state = StateRunning
				m.logs = nil
				return m, tea.Batch(m.startBatch(cx, cy), m.spinner.Tick)
			}

		case "up":
			if m.state == StateInput {
				m.radius++
				return m, nil
			}

		case "down":
			if m.state == StateInput && m.radius > 0 {
				m.radius--
				return m, nil
			}

		case "ctrl+r":
			if m.state == StateInput {
				m.resume = !m.resume
				return m, nil
			}

		case "ctrl+s":
			if m.state == StateInput {
				m.skipExisting = !m.skipExisting
				return m, nil
			}

		case "ctrl+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.state = StateInput
				m.logs = nil
				m.err = nil
				m.exitCode = 0
				m.summary = nil
				m.snapshot = batch.Progress{}
				m.bytes = 0
				m.orchestrator = nil
				m.events = nil
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.Focus()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case StartedMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			m.exitCode = 2
			return m, nil
		}
		m.orchestrator = msg.Orchestrator
		m.events = msg.Events
		cmds = append(cmds, m.runBatch(), waitForEvent(m.events), m.tickProgress())

	case ProgressMsg:
		if msg.Event.Level != download.LevelVerbose || m.verbose {
			m.logs = appendLog(m.logs, LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
		}
		cmds = append(cmds, waitForEvent(m.events))

	case RunDoneMsg:
		m.summary = msg.Summary
		if m.orchestrator != nil {
			m.snapshot = m.orchestrator.Progress()
			m.bytes = m.orchestrator.BytesReceived()
			m.orchestrator.Close()
		}
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errors.New("cancelled by user; rerun with resume to continue")
			m.exitCode = 130
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
			m.exitCode = 1
			var exitErr *process.ExitError
			if errors.As(msg.Err, &exitErr) {
				m.exitCode = exitErr.Code
			}
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.orchestrator != nil && m.state == StateRunning {
			m.snapshot = m.orchestrator.Progress()
			m.bytes = m.orchestrator.BytesReceived()
			cmds = append(cmds, m.progress.SetPercent(tilePercent(m.snapshot)), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func appendLog(logs []LogEntry, entry LogEntry) []LogEntry {
	logs = append(logs, entry)
	if len(logs) > maxLogs {
		logs = logs[len(logs)-maxLogs:]
	}
	return logs
}

func tilePercent(p batch.Progress) float64 {
	if p.TilesTotal == 0 {
		return 0
	}
	return float64(p.TilesDone) / float64(p.TilesTotal)
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent blocks until the batch emits an event.
func waitForEvent(events chan download.ProgressEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return ProgressMsg{Event: ev}
	}
}

// ExitCode returns the process exit code matching the final state.
func (m Model) ExitCode() int {
	return m.exitCode
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("tilebatch"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download elevation macro-tiles and merge them into one world"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateRunning:
		b.WriteString(m.viewRunning())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Region center (EPSG:2154 x y):"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	side := (2*m.radius + 1)
	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Radius %d (%dx%d macro-tiles) (up/down)\n", m.radius, side, side))
	b.WriteString(fmt.Sprintf("  %s Resume from markers (ctrl+r)\n", checkbox(m.resume)))
	b.WriteString(fmt.Sprintf("  %s Skip existing tiles (ctrl+s)\n", checkbox(m.skipExisting)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (ctrl+v)\n", checkbox(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Tiles: %s  World: %s  Processor: %s", m.settings.TilesRoot, m.settings.WorldDir, m.settings.ProcessorBin)))
	b.WriteString("\n")

	if len(m.logs) > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderLogs())
	}

	return b.String()
}

func (m Model) viewRunning() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	if m.orchestrator == nil {
		b.WriteString(subtitleStyle.Render("Preparing..."))
		b.WriteString("\n\n")
		b.WriteString(m.renderLogs())
		return b.String()
	}

	p := m.snapshot
	if p.Current >= 0 {
		tiles := m.orchestrator.MacroTiles()
		if p.Current < len(tiles) {
			b.WriteString(macroStyle.Render(fmt.Sprintf("%s %s", tiles[p.Current].DirName(), p.State)))
		}
	} else {
		b.WriteString(subtitleStyle.Render("Working..."))
	}
	b.WriteString("\n\n")

	b.WriteString(m.progress.ViewAs(tilePercent(p)))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Macro-tiles: %d/%d | Tiles: %d/%d | Downloaded: %.2f MB",
		p.MacroDone, p.MacroTotal, p.TilesDone, p.TilesTotal,
		float64(m.bytes)/1024/1024,
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	processed, failedTiles := 0, 0
	nothing := false
	if m.summary != nil {
		processed = len(m.summary.Processed)
		nothing = m.summary.NothingToDo
		for _, r := range m.summary.Processed {
			failedTiles += len(r.Report.Failed)
		}
	}

	title := "Batch complete"
	if nothing {
		title = "Nothing to do, all macro-tiles already completed"
	}
	b.WriteString(boxStyle.Render(fmt.Sprintf(
		"%s\n\n"+
			"Macro-tiles processed: %d\n"+
			"Tiles: %d (%d failed)\n"+
			"Size: %.2f MB",
		title,
		processed,
		m.snapshot.TilesDone,
		failedTiles,
		float64(m.bytes)/1024/1024,
	)))

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
		b.WriteString("\n\n")
	}
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • up/down: radius • ctrl+r: resume • ctrl+s: skip existing • ctrl+v: verbose • esc: quit"
	case StateRunning:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new batch • q: quit"
	}
	return ""
}

// startBatch sets up the orchestrator for the entered center.
func (m *Model) startBatch(cx, cy float64) tea.Cmd {
	settings := *m.settings
	settings.MacroRadius = m.radius
	settings.Resume = m.resume
	settings.SkipExisting = m.skipExisting
	ctx := m.ctx

	return func() tea.Msg {
		events := make(chan download.ProgressEvent, 256)
		emit := func(ev download.ProgressEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}
		out := &lineWriter{level: download.LevelVerbose, emit: emit}
		errOut := &lineWriter{level: download.LevelWarning, emit: emit}

		o, err := batch.Setup(ctx, &settings, cx, cy, out, errOut, emit)
		if err != nil {
			return StartedMsg{Err: err}
		}
		return StartedMsg{Orchestrator: o, Events: events}
	}
}

// runBatch runs the orchestrator in the background.
func (m *Model) runBatch() tea.Cmd {
	o := m.orchestrator
	ctx := m.ctx
	events := m.events
	return func() tea.Msg {
		summary, err := o.Run(ctx)
		close(events)
		return RunDoneMsg{Summary: summary, Err: err}
	}
}

// Run starts the TUI application and returns the exit code of the last batch.
func Run(settings *config.Settings) (int, error) {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return 1, err
	}
	if m, ok := final.(Model); ok {
		return m.ExitCode(), nil
	}
	return 0, nil
}
