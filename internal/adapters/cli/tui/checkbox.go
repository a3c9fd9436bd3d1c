package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	checkedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	uncheckedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// CheckboxOption represents a checkbox choice
type CheckboxOption struct {
	Label   string
	Value   string
	Checked bool
}

// CheckboxModel is the bubbletea model for checkbox selection
type CheckboxModel struct {
	title   string
	options []CheckboxOption
	cursor  int
	done    bool
}

// NewCheckboxModel creates a new checkbox selector. Confirming with nothing
// checked is allowed.
func NewCheckboxModel(title string, options []CheckboxOption) CheckboxModel {
	opts := make([]CheckboxOption, len(options))
	copy(opts, options)
	return CheckboxModel{
		title:   title,
		options: opts,
	}
}

func (m CheckboxModel) Init() tea.Cmd {
	return nil
}

func (m CheckboxModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case " ", "x":
			if len(m.options) > 0 {
				m.options[m.cursor].Checked = !m.options[m.cursor].Checked
			}
		case "enter":
			m.done = true
			return m, tea.Quit
		case "q", "ctrl+c", "esc":
			m.done = false
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m CheckboxModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	for i, opt := range m.options {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		checkbox := "[ ]"
		style := uncheckedStyle
		if opt.Checked {
			checkbox = "[x]"
			style = checkedStyle
		}

		sb.WriteString(style.Render(fmt.Sprintf("%s%s %s", cursor, checkbox, opt.Label)))
		sb.WriteString("\n")
	}

	sb.WriteString(hintStyle.Render("\n(space=toggle, enter=confirm, q=cancel)"))
	sb.WriteString("\n")
	return sb.String()
}

// Checked reports whether the option with value is checked
func (m CheckboxModel) Checked(value string) bool {
	for _, opt := range m.options {
		if opt.Value == value {
			return opt.Checked
		}
	}
	return false
}

// Cancelled returns true if the user cancelled
func (m CheckboxModel) Cancelled() bool {
	return !m.done
}

// RunCheckbox displays checkboxes and returns the final model, or nil when cancelled
func RunCheckbox(title string, options []CheckboxOption) (*CheckboxModel, error) {
	p := tea.NewProgram(NewCheckboxModel(title, options))

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	result := finalModel.(CheckboxModel)
	if result.Cancelled() {
		return nil, nil
	}
	return &result, nil
}
