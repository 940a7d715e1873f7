// Package tui is the bubbletea front end of the terminal chat client.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// LowConfidence is the score below which answers carry a warning.
const LowConfidence = 0.5

// Conn is the connection the model drives.
type Conn interface {
	Send(message string) error
	Next() tea.Cmd
	Close() error
}

// Model is the Bubble Tea model for the chat client.
type Model struct {
	conn     Conn
	userID   string
	input    textinput.Model
	viewport viewport.Model
	lines    []string
	status   string
	typing   bool
	closed   bool
	ready    bool
}

// New creates a chat model over conn.
func New(conn Conn, userID string) Model {
	ti := textinput.New()
	ti.Prompt = "You: "
	ti.Placeholder = "Ask a question, /history, /users, /clear, or exit"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{conn: conn, userID: userID, input: ti, viewport: vp, status: "Connecting..."}
}

// Init starts the cursor blink and the frame listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.conn.Next())
}

// Update handles keys, window changes and server frames.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, status, input box, input line
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			_ = m.conn.Close()
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}

	case FrameMsg:
		m.receive(msg.Frame)
		m.refresh()
		return m, m.conn.Next()

	case ClosedMsg:
		m.closed = true
		m.typing = false
		m.status = disconnectReason(msg.Err)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	switch strings.ToLower(text) {
	case "exit", "quit", "bye":
		m.append(systemStyle.Render("Goodbye!"))
		_ = m.conn.Close()
		return m, tea.Quit
	case "":
		m.status = "Please enter a question."
		return m, nil
	}

	if m.closed {
		m.status = "Not connected."
		return m, nil
	}
	if err := m.conn.Send(text); err != nil {
		m.status = "Send failed: " + err.Error()
	}
	return m, nil
}

func (m *Model) receive(f domain.Frame) {
	switch f.Type {
	case domain.FrameSystem:
		m.status = "Connected as " + m.userID
		m.append(systemStyle.Render(f.Message))
	case domain.FrameUser:
		m.append(userStyle.Render("You: ") + f.Message)
	case domain.FrameTyping:
		m.typing = true
		m.status = f.Message
	case domain.FrameAssistant:
		m.typing = false
		m.status = "Connected as " + m.userID
		m.append(assistantStyle.Render("Assistant: ") + f.Message)
		if f.Confidence != nil && *f.Confidence < LowConfidence {
			m.append(warnStyle.Render(fmt.Sprintf("Low confidence (%.1f)", *f.Confidence)))
		}
	case domain.FrameError:
		m.typing = false
		m.append(errorStyle.Render("Error: " + f.Message))
	}
}

func (m *Model) append(line string) {
	m.lines = append(m.lines, line)
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// Transcript returns the rendered conversation lines.
func (m Model) Transcript() []string {
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}

// Status returns the footer text.
func (m Model) Status() string {
	return m.status
}

// View renders the transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("WiseBot")
	status := statusStyle.Render(m.status)
	if m.closed {
		status = errorStyle.Render(m.status)
	}
	return header + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		status
}

func disconnectReason(err error) string {
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Text != "" {
		return "Disconnected: " + ce.Text
	}
	return "Disconnected."
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	systemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	warnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
