// Package tui is the terminal front end: it shows the aValue, bValue and
// yValue slots and maps key presses onto status client operations.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"swimstatus/pkg/display"
	"swimstatus/pkg/status"
)

// Controller is the subset of *status.Client the UI drives.
type Controller interface {
	Reset(ctx context.Context) (status.Reading, error)
	Stop(ctx context.Context) (status.Reading, error)
	Refresh(ctx context.Context) (status.Reading, error)
	SignalStop(ctx context.Context, id any) error
	Display() display.State
}

var _ Controller = (*status.Client)(nil)

type Options struct {
	Context    context.Context
	Controller Controller
	// PollEvery refreshes the display periodically; zero disables it.
	PollEvery time.Duration
	Target    string
}

type Model struct {
	ctx       context.Context
	ctrl      Controller
	pollEvery time.Duration
	target    string

	keys    keyMap
	help    help.Model
	busy    int
	lastOp  string
	lastErr error
	// userErr marks lastErr as coming from a key press; polls leave it
	// on screen until the next key-driven operation.
	userErr bool
}

type resultMsg struct {
	op  string
	err error
	// background results come from polling and never count toward busy.
	background bool
}

type tickMsg time.Time

func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return Model{
		ctx:       ctx,
		ctrl:      opts.Controller,
		pollEvery: opts.PollEvery,
		target:    opts.Target,
		keys:      defaultKeyMap(),
		help:      help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	if m.pollEvery <= 0 {
		return nil
	}
	return tea.Batch(m.poll(), tickCmd(m.pollEvery))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.poll(), tickCmd(m.pollEvery))

	case resultMsg:
		return m.handleResult(msg), nil
	}
	return m, nil
}

func (m Model) handleResult(msg resultMsg) Model {
	if msg.background {
		if m.busy > 0 || m.userErr {
			return m
		}
		m.lastOp, m.lastErr = msg.op, msg.err
		return m
	}
	if m.busy > 0 {
		m.busy--
	}
	m.lastOp, m.lastErr = msg.op, msg.err
	m.userErr = msg.err != nil
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Reset):
		m.busy++
		return m, m.run("reset", m.ctrl.Reset)
	case key.Matches(msg, m.keys.Stop):
		m.busy++
		return m, m.run("stop", m.ctrl.Stop)
	case key.Matches(msg, m.keys.Refresh):
		m.busy++
		return m, m.run("refresh", m.ctrl.Refresh)
	case key.Matches(msg, m.keys.Signal):
		id, err := strconv.Atoi(msg.String())
		if err != nil {
			return m, nil
		}
		m.busy++
		return m, m.signal(id)
	}
	return m, nil
}

func (m Model) run(op string, fn func(context.Context) (status.Reading, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		_, err := fn(ctx)
		return resultMsg{op: op, err: err}
	}
}

func (m Model) poll() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		_, err := ctrl.Refresh(ctx)
		return resultMsg{op: "refresh", err: err, background: true}
	}
}

func (m Model) signal(id int) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return resultMsg{op: fmt.Sprintf("stop lane %d", id), err: ctrl.SignalStop(ctx, id)}
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle = lipgloss.NewStyle().Width(8).Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
)

func (m Model) View() string {
	st := m.ctrl.Display()

	var b strings.Builder
	title := "Swim Status"
	if m.target != "" {
		title += "  " + m.target
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	rows := []string{
		row(display.SlotA, st.A),
		row(display.SlotB, st.B),
		row(display.SlotY, st.Y),
	}
	b.WriteString(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func row(label, value string) string {
	if value == "" {
		value = "-"
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

func (m Model) statusLine() string {
	switch {
	case m.busy > 0:
		return "working..."
	case m.lastErr != nil:
		return errStyle.Render(fmt.Sprintf("%s failed: %v", m.lastOp, m.lastErr))
	case m.lastOp != "":
		return okStyle.Render(m.lastOp + " ok")
	}
	return ""
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(opts Options) error {
	if opts.Controller == nil {
		return fmt.Errorf("tui requires a status controller")
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	return err
}
