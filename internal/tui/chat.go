// Package tui provides the interactive chat surface. It only renders the
// conversation; all expense logic lives behind the dispatcher.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mtowers/ledgermind/internal/common"
	"github.com/mtowers/ledgermind/internal/dispatcher"
)

const replyTimeout = 30 * time.Second

var (
	userStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	inputStyle = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).Padding(0, 1)
)

// chatLine is one rendered conversation entry.
type chatLine struct {
	text    string
	speaker string
	isError bool
}

// replyMsg carries the dispatcher's answer back into the update loop.
type replyMsg struct {
	err  error
	text string
}

// Model is the bubbletea model for the chat session.
type Model struct {
	dispatcher *dispatcher.Dispatcher
	input      textinput.Model
	viewport   viewport.Model
	lines      []chatLine
	width      int
	height     int
	waiting    bool
	ready      bool
	quitting   bool
}

// NewModel creates a chat model over the given dispatcher.
func NewModel(d *dispatcher.Dispatcher) Model {
	input := textinput.New()
	input.Placeholder = "add $6 coffee at Starbucks"
	input.Focus()
	input.CharLimit = 280

	return Model{
		dispatcher: d,
		input:      input,
		lines: []chatLine{
			{speaker: "ledgermind", text: "Hi! Tell me about your spending, or ask me to search, export, or set budgets."},
		},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			m.lines = append(m.lines, chatLine{speaker: "you", text: text})
			m.waiting = true
			m.refreshViewport()
			return m, m.sendMessage(text)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		inputHeight := 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - inputHeight
		}
		m.input.Width = msg.Width - 6
		m.refreshViewport()

	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.lines = append(m.lines, chatLine{
				speaker: "ledgermind",
				text:    common.UserMessage(msg.err, "Something went wrong. Please try again."),
				isError: true,
			})
		} else {
			m.lines = append(m.lines, chatLine{speaker: "ledgermind", text: msg.text})
		}
		m.refreshViewport()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// sendMessage runs the dispatcher off the update loop.
func (m Model) sendMessage(text string) tea.Cmd {
	d := m.dispatcher
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		defer cancel()

		reply, err := d.HandleMessage(ctx, text)
		return replyMsg{text: reply, err: err}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return "Bye!\n"
	}
	if !m.ready {
		return "Loading..."
	}

	status := ""
	if m.waiting {
		status = hintStyle.Render(" thinking...")
	}

	return m.viewport.View() + "\n" +
		inputStyle.Render(m.input.View()) + status
}

// refreshViewport re-renders the conversation and scrolls to the bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	var b strings.Builder
	for _, line := range m.lines {
		var rendered string
		switch {
		case line.speaker == "you":
			rendered = userStyle.Render("you: ") + line.text
		case line.isError:
			rendered = botStyle.Render("ledgermind: ") + errorStyle.Render(line.text)
		default:
			rendered = botStyle.Render("ledgermind: ") + line.text
		}
		b.WriteString(lipgloss.NewStyle().Width(m.viewport.Width).Render(rendered))
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}
