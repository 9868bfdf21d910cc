package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectFunc modelState = iota
	stateEditCall
	stateShowResult
)

// Input fields of the call form.
const (
	fieldDesc = iota
	fieldAdapter
	fieldArgs
	numFields
)

type interactiveModel struct {
	err      error
	sess     *session
	backend  string
	filename string
	result   string
	names    []string
	descs    map[string]string
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
	loaded   bool
}

func newInteractiveModel(backend, filename string) *interactiveModel {
	return &interactiveModel{
		backend:  backend,
		filename: filename,
		state:    stateSelectFunc,
	}
}

type loadedMsg struct {
	err   error
	sess  *session
	names []string
	descs map[string]string
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

func (m *interactiveModel) load() tea.Msg {
	ctx := context.Background()
	sess, err := openSession(ctx, m.backend, m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	names, descs, err := sess.symbols()
	if err != nil {
		sess.close(ctx)
		return loadedMsg{err: err}
	}
	return loadedMsg{sess: sess, names: names, descs: descs}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, m.quit()

		case "q":
			if m.state != stateEditCall {
				return m, m.quit()
			}

		case "up":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down":
			if m.state == stateSelectFunc && m.selected < len(m.names)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.names) > 0 {
					m.prepareInputs()
					m.state = stateEditCall
				}
				return m, nil

			case stateEditCall:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateEditCall
				m.result = ""
				m.err = nil
				return m, nil
			}

		case "tab":
			if m.state == stateEditCall {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
				return m, nil
			}

		case "esc":
			switch m.state {
			case stateEditCall:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
			return m, nil
		}

	case loadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.sess = msg.sess
		m.names = msg.names
		m.descs = msg.descs

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateEditCall {
		var cmd tea.Cmd
		m.inputs[m.focusIdx], cmd = m.inputs[m.focusIdx].Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) quit() tea.Cmd {
	if m.sess != nil {
		m.sess.close(context.Background())
		m.sess = nil
	}
	return tea.Quit
}

func (m *interactiveModel) prepareInputs() {
	name := m.names[m.selected]
	prompts := [numFields]string{
		fieldDesc:    "descriptor: ",
		fieldAdapter: "adapter:    ",
		fieldArgs:    "arguments:  ",
	}
	placeholders := [numFields]string{
		fieldDesc:    "(i32,i32)i32",
		fieldAdapter: "optional, e.g. (f32,f32)f32",
		fieldArgs:    "comma separated",
	}

	m.inputs = make([]textinput.Model, numFields)
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = prompts[i]
		ti.Placeholder = placeholders[i]
		ti.Width = 40
		m.inputs[i] = ti
	}
	m.inputs[fieldDesc].SetValue(m.descs[name])

	// Functions with a known descriptor start at the arguments.
	m.focusIdx = fieldDesc
	if m.descs[name] != "" {
		m.focusIdx = fieldArgs
	}
	m.inputs[m.focusIdx].Focus()
}

func (m *interactiveModel) callFunction() tea.Msg {
	if m.sess == nil {
		return callResultMsg{err: fmt.Errorf("library not loaded")}
	}
	name := m.names[m.selected]
	result, err := m.sess.call(context.Background(), name,
		strings.TrimSpace(m.inputs[fieldDesc].Value()),
		strings.TrimSpace(m.inputs[fieldAdapter].Value()),
		splitArgs(m.inputs[fieldArgs].Value()))
	return callResultMsg{result: result, err: err}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if !m.loaded {
		return "Loading library..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("sffi"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString(" ")
	b.WriteString(helpStyle.Render("[" + m.backend + "]"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		if len(m.names) == 0 {
			b.WriteString("The library does not list its symbols.\n")
			b.WriteString(helpStyle.Render("Use -func and -desc instead. q quit"))
			break
		}
		b.WriteString("Select a function to call:\n\n")
		for i, n := range m.names {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + n + m.descs[n]))
			} else {
				b.WriteString("  " + m.formatFunc(n))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter edit call • q quit"))

	case stateEditCall:
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(m.names[m.selected])))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(m.names[m.selected])))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter edit again • esc back • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatFunc(name string) string {
	return funcStyle.Render(name) + typeStyle.Render(m.descs[name])
}

func runInteractive(backend, filename string) error {
	p := tea.NewProgram(newInteractiveModel(backend, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
