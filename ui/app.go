// Package ui renders guestbook reports and the live dashboard.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/papaganelli/guestbook/pkg/parser"
	"github.com/papaganelli/guestbook/pkg/registry"
	"github.com/papaganelli/guestbook/pkg/report"
)

// tickMsg is sent on every timer tick
type tickMsg time.Time

// logLineMsg wraps an incoming log line
type logLineMsg string

// linesClosedMsg signals the line source is exhausted
type linesClosedMsg struct{}

// Dashboard display limits
const (
	maxTopItems     = 8
	maxRecentVisits = 10
)

// Model is the live dashboard. Lines are folded into the registry inside
// Update, so the registry is only ever touched by the Bubble Tea loop.
type Model struct {
	lines     <-chan string
	reg       *registry.Registry
	engine    *report.Engine
	logPath   string
	cutoff    int
	recent    []parser.Visit
	width     int
	height    int
	startTime time.Time
	closed    bool
}

// NewApp creates the live dashboard for lines read from logPath.
func NewApp(lines <-chan string, reg *registry.Registry, logPath string, cutoff int) *Model {
	return &Model{
		lines:     lines,
		reg:       reg,
		engine:    report.New(reg),
		logPath:   logPath,
		cutoff:    cutoff,
		startTime: time.Now(),
	}
}

// Init initializes the Bubble Tea program
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		waitForLine(m.lines),
	)
}

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tickCmd()

	case linesClosedMsg:
		m.closed = true

	case logLineMsg:
		if visit, ok := m.reg.AddLine(string(msg)); ok {
			m.recent = append([]parser.Visit{visit}, m.recent...)
			if len(m.recent) > maxRecentVisits {
				m.recent = m.recent[:maxRecentVisits]
			}
		}
		return m, waitForLine(m.lines)
	}

	return m, nil
}

// View renders the UI
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var (
		primaryColor   = lipgloss.Color("86")  // Cyan
		secondaryColor = lipgloss.Color("213") // Pink
		textColor      = lipgloss.Color("252") // Light gray
		dimColor       = lipgloss.Color("241") // Dark gray
		borderColor    = lipgloss.Color("240") // Border gray
		accentColor    = lipgloss.Color("117") // Light blue
	)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(primaryColor).
		Background(lipgloss.Color("235")).
		Padding(0, 2).
		MarginBottom(1)

	panelStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(1, 2).
		MarginRight(1).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor).MarginBottom(1)
	labelStyle := lipgloss.NewStyle().Foreground(dimColor).Width(18)
	valueStyle := lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	countStyle := lipgloss.NewStyle().Foreground(secondaryColor)
	textStyle := lipgloss.NewStyle().Foreground(textColor)

	panelWidth := (m.width / 2) - 4
	if panelWidth < 30 {
		panelWidth = 30
	}

	state := "following"
	if m.closed {
		state = "source closed"
	}
	uptime := time.Since(m.startTime).Round(time.Second)
	header := titleStyle.Render("GUESTBOOK") + "\n" +
		lipgloss.NewStyle().Foreground(dimColor).Render(
			fmt.Sprintf("%s  •  %s  •  up %s  •  press 'q' to quit", m.logPath, state, uptime),
		)

	summary := m.engine.Summary()
	overview := headerStyle.Render("Overview") + "\n" +
		labelStyle.Render("Lines read") + valueStyle.Render(fmt.Sprintf("%d", summary.LinesSeen)) + "\n" +
		labelStyle.Render("Lines skipped") + valueStyle.Render(fmt.Sprintf("%d", summary.LinesSeen-summary.LinesParsed)) + "\n" +
		labelStyle.Render("Visitors") + valueStyle.Render(fmt.Sprintf("%d", summary.Visitors)) + "\n" +
		labelStyle.Render("Visits") + valueStyle.Render(fmt.Sprintf("%d", summary.Visits)) + "\n" +
		labelStyle.Render("Distinct pages") + valueStyle.Render(fmt.Sprintf("%d", summary.Pages))

	visitors := headerStyle.Render("Top Visitors") + "\n"
	for i, v := range m.engine.RankedByVisitCount(m.cutoff) {
		if i >= maxTopItems {
			break
		}
		visitors += fmt.Sprintf("%s  %s\n",
			countStyle.Render(fmt.Sprintf("%4d", v.VisitCount())),
			textStyle.Render(v.Address()),
		)
	}

	pages := headerStyle.Render("Top Pages") + "\n"
	for i, row := range topPages(m.engine.PageBreakdownAll()) {
		if i >= maxTopItems {
			break
		}
		pages += fmt.Sprintf("%s  %s\n",
			countStyle.Render(fmt.Sprintf("%4d", row.Count)),
			textStyle.Render(truncate(row.URL, panelWidth-12)),
		)
	}

	recent := headerStyle.Render("Recent Visits") + "\n"
	for _, v := range m.recent {
		recent += fmt.Sprintf("%s  %-15s  %s\n",
			lipgloss.NewStyle().Foreground(dimColor).Render(v.Timestamp()),
			textStyle.Render(v.Address()),
			textStyle.Render(truncate(v.FullURL(), m.width-50)),
		)
	}

	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Width(panelWidth).Render(overview),
		panelStyle.Width(panelWidth).Render(visitors),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		topRow,
		panelStyle.Width(m.width-4).Render(pages),
		panelStyle.Width(m.width-4).Render(recent),
	)
}

// Run starts the Bubble Tea program
func (m *Model) Run() error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// tickCmd returns a command that ticks every second
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForLine waits for the next log line from the channel
func waitForLine(lines <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-lines
		if !ok {
			return linesClosedMsg{}
		}
		return logLineMsg(line)
	}
}

// topPages sums page hits over every address, busiest first.
func topPages(all []report.AddressPages) []report.PageCount {
	totals := make(map[string]int)
	for _, entry := range all {
		for url, hits := range entry.Pages {
			totals[url] += hits
		}
	}
	return report.SortedPages(totals)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimRight(string(r[:n-3]), " ") + "..."
}
