package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxLogLines is how many log lines the dashboard keeps.
const maxLogLines = 8

// Status is where an item is in the watch pipeline.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusReviewing   Status = "reviewing"
	StatusPass        Status = "pass"
	StatusConditional Status = "conditional"
	StatusFail        Status = "fail"
	StatusError       Status = "error"
)

// Finished reports whether the item has a final outcome.
func (s Status) Finished() bool {
	switch s {
	case StatusPass, StatusConditional, StatusFail, StatusError:
		return true
	default:
		return false
	}
}

// ItemUpdateMsg reports a change for one manifest.
type ItemUpdateMsg struct {
	Manifest      string
	Topic         string
	Status        Status
	Attempts      int
	TechScore     float64
	CreativeScore float64
	// Detail is the fail point or error text.
	Detail string
}

// LogMsg is one log line to show in the tail.
type LogMsg struct {
	Timestamp time.Time
	Line      string
}

// DoneMsg signals that the watcher stopped.
type DoneMsg struct {
	Err error
}

type itemRow struct {
	ItemUpdateMsg
	updated time.Time
}

// WatchApp is the bubbletea model for the watch dashboard.
type WatchApp struct {
	inbox  string
	cancel func()

	order []string
	items map[string]*itemRow
	logs  []LogMsg

	spinner  spinner.Model
	width    int
	quitting bool
	done     bool
	doneErr  error
	now      func() time.Time

	headerStyle lipgloss.Style
	labelStyle  lipgloss.Style
	passStyle   lipgloss.Style
	warnStyle   lipgloss.Style
	failStyle   lipgloss.Style
	dimStyle    lipgloss.Style
}

// NewWatchApp creates the dashboard model. cancel is called when the user
// quits; it may be nil.
func NewWatchApp(inbox string, cancel func()) *WatchApp {
	return &WatchApp{
		inbox:   inbox,
		cancel:  cancel,
		items:   make(map[string]*itemRow),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		now:     time.Now,

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")).
			MarginBottom(1),

		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(14),

		passStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		warnStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),

		failStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),

		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// NewWatchProgram creates a tea.Program running a WatchApp on the alternate
// screen.
func NewWatchProgram(inbox string, cancel func()) (*tea.Program, *WatchApp) {
	app := NewWatchApp(inbox, cancel)
	p := tea.NewProgram(app, tea.WithAltScreen())
	return p, app
}

// Init implements tea.Model.
func (a *WatchApp) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *WatchApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			if a.cancel != nil {
				a.cancel()
			}
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width

	case ItemUpdateMsg:
		a.updateItem(msg)

	case LogMsg:
		a.logs = append(a.logs, msg)
		if len(a.logs) > maxLogLines {
			a.logs = a.logs[len(a.logs)-maxLogLines:]
		}

	case DoneMsg:
		a.done = true
		a.doneErr = msg.Err
		return a, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *WatchApp) updateItem(msg ItemUpdateMsg) {
	row, ok := a.items[msg.Manifest]
	if !ok {
		row = &itemRow{}
		a.items[msg.Manifest] = row
		a.order = append(a.order, msg.Manifest)
	}
	topic := row.Topic
	row.ItemUpdateMsg = msg
	if row.Topic == "" {
		row.Topic = topic
	}
	row.updated = a.now()
}

// Counts returns how many items are in each status.
func (a *WatchApp) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, row := range a.items {
		counts[row.Status]++
	}
	return counts
}

// View implements tea.Model.
func (a *WatchApp) View() string {
	if a.quitting {
		return "Stopping watcher...\n"
	}

	var b strings.Builder
	b.WriteString(a.headerStyle.Render("pawgate watch: " + a.inbox))
	b.WriteString("\n")

	counts := a.Counts()
	b.WriteString(a.labelStyle.Render("Items:"))
	b.WriteString(fmt.Sprintf("%d queued  %d reviewing  ", counts[StatusQueued], counts[StatusReviewing]))
	b.WriteString(a.passStyle.Render(fmt.Sprintf("%d pass", counts[StatusPass])))
	b.WriteString("  ")
	b.WriteString(a.warnStyle.Render(fmt.Sprintf("%d conditional", counts[StatusConditional])))
	b.WriteString("  ")
	b.WriteString(a.failStyle.Render(fmt.Sprintf("%d fail", counts[StatusFail]+counts[StatusError])))
	b.WriteString("\n\n")

	if len(a.order) == 0 {
		b.WriteString(a.dimStyle.Render("Waiting for item folders with item.yaml..."))
		b.WriteString("\n")
	}
	for _, key := range a.order {
		b.WriteString(a.renderRow(a.items[key]))
		b.WriteString("\n")
	}

	if len(a.logs) > 0 {
		b.WriteString("\n")
		for _, l := range a.logs {
			b.WriteString(a.dimStyle.Render(truncate(l.Line, a.width)))
			b.WriteString("\n")
		}
	}

	if a.done {
		b.WriteString("\n")
		if a.doneErr != nil {
			b.WriteString(a.failStyle.Render("Watcher stopped: " + a.doneErr.Error()))
		} else {
			b.WriteString("Watcher stopped.")
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.dimStyle.Render("q: quit"))
	return b.String()
}

func (a *WatchApp) renderRow(row *itemRow) string {
	topic := fmt.Sprintf("%-20s", truncate(row.Topic, 20))
	switch row.Status {
	case StatusQueued:
		return a.dimStyle.Render("· " + topic + " queued")
	case StatusReviewing:
		return a.spinner.View() + " " + topic + " reviewing"
	case StatusPass:
		return a.passStyle.Render("✓ "+topic) + scores(row)
	case StatusConditional:
		return a.warnStyle.Render("⚠ "+topic) + scores(row) + " (human review)"
	case StatusFail:
		return a.failStyle.Render("✗ "+topic) + scores(row) + " at " + row.Detail
	default:
		return a.failStyle.Render("✗ "+topic) + " error: " + row.Detail
	}
}

func scores(row *itemRow) string {
	return fmt.Sprintf(" tech %5.1f  creative %5.1f  attempts %d", row.TechScore, row.CreativeScore, row.Attempts)
}

func truncate(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}
