package stage

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/opentelematics/fleetdeck/internal/events"
)

const transcriptKeep = 200

// Watch attaches a live terminal view to the event bus and blocks until the
// user quits.
func Watch(bus *events.Bus) error {
	commands, cancel := bus.Subscribe()
	defer cancel()

	program := tea.NewProgram(newWatchModel(commands), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

type commandMsg events.Command

type busClosedMsg struct{}

type watchModel struct {
	commands <-chan events.Command
	styles   consoleStyles

	width      int
	height     int
	running    bool
	label      string
	seconds    int
	transcript []string
	input      string
}

func newWatchModel(commands <-chan events.Command) watchModel {
	return watchModel{
		commands: commands,
		styles:   defaultConsoleStyles(),
	}
}

func (m watchModel) Init() tea.Cmd {
	return waitForCommand(m.commands)
}

func waitForCommand(commands <-chan events.Command) tea.Cmd {
	return func() tea.Msg {
		cmd, ok := <-commands
		if !ok {
			return busClosedMsg{}
		}
		return commandMsg(cmd)
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case busClosedMsg:
		return m, tea.Quit
	case commandMsg:
		m.apply(events.Command(msg))
		return m, waitForCommand(m.commands)
	}
	return m, nil
}

func (m *watchModel) apply(cmd events.Command) {
	switch cmd.Type {
	case CmdSurfaceOpen:
		m.running = true
		m.seconds = 0
		m.transcript = nil
		m.input = ""
	case CmdSurfaceClose:
		m.running = false
		m.label = ""
		m.input = ""
	case CmdSurfaceLabel:
		m.label = payloadString(cmd, "text")
	case CmdSurfaceTimer:
		if v, ok := cmd.Payload["seconds"].(int); ok {
			m.seconds = v
		}
	case CmdSurfaceTranscript:
		role := payloadString(cmd, "role")
		text := payloadString(cmd, "text")
		var style lipgloss.Style
		switch role {
		case "user":
			style = m.styles.user
		case "system":
			style = m.styles.system
		default:
			style = m.styles.narrator
		}
		m.transcript = append(m.transcript, style.Render(role+": "+text))
		if len(m.transcript) > transcriptKeep {
			m.transcript = m.transcript[len(m.transcript)-transcriptKeep:]
		}
	case CmdSurfaceInput:
		m.input = payloadString(cmd, "text")
	case CmdSurfaceInputClear:
		m.input = ""
	}
}

func payloadString(cmd events.Command, key string) string {
	if cmd.Payload == nil {
		return ""
	}
	s, _ := cmd.Payload[key].(string)
	return s
}

func (m watchModel) View() string {
	var b strings.Builder

	status := "idle"
	if m.running {
		status = fmt.Sprintf("running %02d:%02d", m.seconds/60, m.seconds%60)
	}
	b.WriteString(m.styles.label.Render("fleetdeck tour") + "  " + m.styles.muted.Render(status))
	b.WriteString("\n")
	if m.label != "" {
		b.WriteString(m.styles.label.Render("▸ " + m.label))
	}
	b.WriteString("\n\n")

	lines := m.transcript
	if m.height > 8 && len(lines) > m.height-8 {
		lines = lines[len(lines)-(m.height-8):]
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")

	if m.input != "" {
		b.WriteString(m.styles.input.Render("> " + m.input))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.muted.Render("q to quit"))
	return b.String()
}
