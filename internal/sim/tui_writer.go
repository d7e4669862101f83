package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// publishMsg carries one published message to the model.
type publishMsg struct{ Message }

// adminMsg reports admin server status.
type adminMsg struct{ active bool }

const maxLogLines = 500

var (
	tuiTopicStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	tuiTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	tuiTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
)

// TUIWriter renders published telemetry using a bubbletea TUI: a device
// table on top and a scrolling message log below.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the UI interrupts the process so the simulation shuts down too.
func NewTUIWriter(title string, instances int) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(title, instances), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Publish implements Publisher.
func (w *TUIWriter) Publish(_ context.Context, msg Message) error {
	w.program.Send(publishMsg{msg})
	return nil
}

// SetAdminStatus updates the admin server indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type deviceRow struct {
	counter int
	fields  int
	updated time.Time
}

type tuiModel struct {
	title      string
	instances  int
	table      table.Model
	vp         viewport.Model
	logs       []string
	devices    map[string]deviceRow
	total      int
	admin      bool
	wrap       bool
	autoscroll bool
	width      int
	height     int
}

func newTUIModel(title string, instances int) tuiModel {
	cols := []table.Column{
		{Title: "Topic", Width: 36},
		{Title: "Tick", Width: 6},
		{Title: "Fields", Width: 6},
		{Title: "Updated", Width: 10},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(5))
	return tuiModel{
		title:      title,
		instances:  instances,
		table:      t,
		vp:         viewport.New(0, 0),
		devices:    make(map[string]deviceRow),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.layout()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case publishMsg:
		m.total++
		m.devices[msg.Topic] = deviceRow{counter: msg.Counter, fields: len(msg.Payload), updated: msg.Timestamp}
		m.logs = append(m.logs, formatLogLine(msg.Message))
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshTable()
		m.layout()
		m.refreshViewport()
	case adminMsg:
		m.admin = msg.active
	}
	return m, nil
}

func formatLogLine(msg Message) string {
	body, _ := json.Marshal(msg.Payload)
	return fmt.Sprintf("%s %s %s",
		tuiTimeStyle.Render(msg.Timestamp.Format(time.TimeOnly)),
		tuiTopicStyle.Render(msg.Topic),
		string(body))
}

func (m *tuiModel) refreshTable() {
	topics := make([]string, 0, len(m.devices))
	for t := range m.devices {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	rows := make([]table.Row, 0, len(topics))
	for _, t := range topics {
		d := m.devices[t]
		rows = append(rows, table.Row{t, strconv.Itoa(d.counter), strconv.Itoa(d.fields), d.updated.Format(time.TimeOnly)})
	}
	m.table.SetRows(rows)
}

// layout gives the table up to a third of the screen and the log the rest.
func (m *tuiModel) layout() {
	tableHeight := len(m.devices) + 1
	if limit := m.height / 3; tableHeight > limit {
		tableHeight = limit
	}
	if tableHeight < 2 {
		tableHeight = 2
	}
	m.table.SetHeight(tableHeight)
	h := m.height - lipgloss.Height(m.renderHeader()) - tableHeight - lipgloss.Height(m.renderBottom()) - 3
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) renderHeader() string {
	return tuiTitleStyle.Render(fmt.Sprintf("%s  devices %d/%d  messages %d", m.title, len(m.devices), m.instances, m.total))
}

func (m tuiModel) renderBottom() string {
	indicator := func(on bool) string {
		c := lipgloss.Color("9")
		if on {
			c = lipgloss.Color("10")
		}
		return lipgloss.NewStyle().Foreground(c).Render("●")
	}
	return fmt.Sprintf("%s admin  %s wrap [w]  %s autoscroll [s]  quit [q]",
		indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll))
}

func (m tuiModel) View() string {
	divider := strings.Repeat("─", m.vp.Width)
	return strings.Join([]string{
		m.renderHeader(),
		m.table.View(),
		divider,
		m.vp.View(),
		divider,
		m.renderBottom(),
	}, "\n")
}
