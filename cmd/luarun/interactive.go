package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/lua-runtime/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historyWindow = 20

type replEntry struct {
	input  string
	output string
	result string
	err    error
}

type replModel struct {
	rt      *runtime.Runtime
	input   textinput.Model
	entries []replEntry
	history []string
	histIdx int
}

func newReplModel(rt *runtime.Runtime) *replModel {
	ti := textinput.New()
	ti.Prompt = "lua> "
	ti.Width = 72
	ti.Focus()
	return &replModel{rt: rt, input: ti, histIdx: -1}
}

func (m *replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			if line == "exit" || line == "quit" {
				return m, tea.Quit
			}
			m.entries = append(m.entries, m.evalLine(line))
			m.history = append(m.history, line)
			m.histIdx = -1
			m.input.SetValue("")
			return m, nil

		case "up":
			if len(m.history) == 0 {
				return m, nil
			}
			if m.histIdx == -1 {
				m.histIdx = len(m.history) - 1
			} else if m.histIdx > 0 {
				m.histIdx--
			}
			m.input.SetValue(m.history[m.histIdx])
			m.input.CursorEnd()
			return m, nil

		case "down":
			if m.histIdx == -1 {
				return m, nil
			}
			m.histIdx++
			if m.histIdx >= len(m.history) {
				m.histIdx = -1
				m.input.SetValue("")
			} else {
				m.input.SetValue(m.history[m.histIdx])
				m.input.CursorEnd()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// evalLine treats the line as an expression first, falling back to a
// statement when it does not parse as one.
func (m *replModel) evalLine(line string) replEntry {
	ctx := context.Background()
	entry := replEntry{input: line}

	v, err := m.rt.Eval(ctx, "return "+line)
	if err == nil {
		entry.result = v.String()
		entry.output = m.rt.Output().Take()
		return entry
	}

	out, err := m.rt.Execute(ctx, line)
	entry.output = out
	entry.err = err
	return entry
}

func (m *replModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Lua Runtime"))
	b.WriteString("\n\n")

	start := 0
	if len(m.entries) > historyWindow {
		start = len(m.entries) - historyWindow
	}
	for _, e := range m.entries[start:] {
		b.WriteString(promptStyle.Render("lua> "))
		b.WriteString(e.input)
		b.WriteString("\n")
		if e.output != "" {
			b.WriteString(outputStyle.Render(strings.TrimRight(e.output, "\n")))
			b.WriteString("\n")
		}
		if e.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", e.err)))
			b.WriteString("\n")
		} else if e.result != "" && e.result != "nil" {
			b.WriteString(resultStyle.Render(e.result))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("↑/↓ history • enter eval • ctrl+c quit"))
	return b.String()
}

func runInteractive(cfg *Config) error {
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	p := tea.NewProgram(newReplModel(rt), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
