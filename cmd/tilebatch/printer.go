package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/francegen/tilebatch/internal/download"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1A3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8DADC"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D"))
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// printer writes progress events, one per line.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

func newPrinter(w io.Writer, verbose bool) *printer {
	return &printer{w: w, verbose: verbose}
}

// Event is the download.ProgressEvent callback.
func (p *printer) Event(event download.ProgressEvent) {
	if event.Level == download.LevelVerbose && !p.verbose {
		return
	}

	var (
		prefix string
		style  lipgloss.Style
	)
	switch event.Level {
	case download.LevelError:
		prefix, style = "✗ ", errorStyle
	case download.LevelWarning:
		prefix, style = "! ", warningStyle
	case download.LevelSuccess:
		prefix, style = "✓ ", successStyle
	case download.LevelInfo:
		prefix, style = "› ", infoStyle
	default:
		prefix, style = "  ", dimStyle
	}

	p.Println(style.Render(prefix + event.Message))
}

func (p *printer) Println(a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, a...)
}

func (p *printer) Printf(format string, a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, a...)
}

func (p *printer) Header(title string) {
	p.Println(titleStyle.Render(title))
	p.Println(dimStyle.Render(rule))
}

func (p *printer) Rule() {
	p.Println(dimStyle.Render(rule))
}

func indent(lines []string) string {
	return "  " + strings.Join(lines, "\n  ")
}
