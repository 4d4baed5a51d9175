package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var promptErrStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("9")) // Red

// decision is the parsed outcome of a gate prompt.
type decision struct {
	action   string
	feedback string
	quit     bool
}

// promptModel is the bubbletea model for a single gate decision.
type promptModel struct {
	banner   string
	input    textinput.Model
	errMsg   string
	decision decision
	done     bool
}

func newPromptModel(banner string) promptModel {
	ti := textinput.New()
	ti.Placeholder = "approve | modify <feedback> | reject [feedback] | quit"
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 72
	return promptModel{banner: banner, input: ti}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.decision = decision{quit: true}
			m.done = true
			return m, tea.Quit
		case tea.KeyEnter:
			d, err := parseDecision(m.input.Value())
			if err != nil {
				m.errMsg = err.Error()
				m.input.SetValue("")
				return m, nil
			}
			m.decision = d
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	if m.banner != "" {
		b.WriteString(m.banner + "\n")
	}
	if m.errMsg != "" {
		b.WriteString(promptErrStyle.Render(m.errMsg) + "\n")
	}
	b.WriteString(m.input.View() + "\n")
	return b.String()
}

// parseDecision turns raw prompt input into a gate decision. Modify requires
// feedback so the revision loop has something to work with.
func parseDecision(raw string) (decision, error) {
	raw = strings.TrimSpace(raw)
	action, feedback, _ := strings.Cut(raw, " ")
	action = strings.ToLower(action)
	feedback = strings.TrimSpace(strings.TrimPrefix(feedback, ":"))

	switch action {
	case "approve", "a":
		return decision{action: "approve"}, nil
	case "modify", "m":
		if feedback == "" {
			return decision{}, fmt.Errorf("modify needs feedback, e.g. \"modify also include Adyen\"")
		}
		return decision{action: "modify", feedback: feedback}, nil
	case "reject", "r":
		return decision{action: "reject", feedback: feedback}, nil
	case "quit", "q", "exit":
		return decision{quit: true}, nil
	}
	return decision{}, fmt.Errorf("unknown action %q (approve, modify, reject, quit)", action)
}

// promptDecision runs the gate prompt and blocks until the user decides.
func promptDecision(banner string) (decision, error) {
	p := tea.NewProgram(newPromptModel(banner))
	final, err := p.Run()
	if err != nil {
		return decision{}, err
	}
	return final.(promptModel).decision, nil
}
