package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// PickerItem is one entry of a picker.
type PickerItem struct {
	Label string
	Value string
}

// PickerModel is a single-choice list with type-to-filter and a scrolling window,
// for lists too long for MenuModel (languages).
type PickerModel struct {
	title    string
	items    []PickerItem
	filter   string
	visible  []int // indexes into items
	cursor   int   // index into visible
	offset   int
	height   int
	selected *PickerItem
}

// NewPickerModel creates a picker showing height rows at a time
func NewPickerModel(title string, items []PickerItem, height int) PickerModel {
	if height <= 0 {
		height = 10
	}
	m := PickerModel{title: title, items: items, height: height}
	m.applyFilter()
	return m
}

func (m *PickerModel) applyFilter() {
	m.visible = m.visible[:0]
	needle := strings.ToLower(m.filter)
	for i, item := range m.items {
		if needle == "" ||
			strings.Contains(strings.ToLower(item.Label), needle) ||
			strings.HasPrefix(strings.ToLower(item.Value), needle) {
			m.visible = append(m.visible, i)
		}
	}
	m.cursor = 0
	m.offset = 0
}

func (m *PickerModel) move(delta int) {
	if len(m.visible) == 0 {
		return
	}
	m.cursor = max(0, min(m.cursor+delta, len(m.visible)-1))
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

func (m PickerModel) Init() tea.Cmd {
	return nil
}

func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.Type {
	case tea.KeyUp:
		m.move(-1)
	case tea.KeyDown:
		m.move(1)
	case tea.KeyPgUp:
		m.move(-m.height)
	case tea.KeyPgDown:
		m.move(m.height)
	case tea.KeyEnter:
		if len(m.visible) > 0 {
			item := m.items[m.visible[m.cursor]]
			m.selected = &item
		}
		return m, tea.Quit
	case tea.KeyEsc, tea.KeyCtrlC:
		m.selected = nil
		return m, tea.Quit
	case tea.KeyBackspace:
		if m.filter != "" {
			m.filter = m.filter[:len(m.filter)-1]
			m.applyFilter()
		}
	case tea.KeyRunes, tea.KeySpace:
		m.filter += string(key.Runes)
		m.applyFilter()
	}
	return m, nil
}

func (m PickerModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title))
	if m.filter != "" {
		sb.WriteString(hintStyle.Render(fmt.Sprintf("  filter: %s", m.filter)))
	}
	sb.WriteString("\n\n")

	end := min(m.offset+m.height, len(m.visible))
	for row := m.offset; row < end; row++ {
		item := m.items[m.visible[row]]
		cursor := "  "
		style := normalStyle
		if row == m.cursor {
			cursor = "> "
			style = selectedStyle
		}
		sb.WriteString(cursor + style.Render(item.Label) + "\n")
	}
	if len(m.visible) == 0 {
		sb.WriteString(hintStyle.Render("  no matches") + "\n")
	}

	sb.WriteString(hintStyle.Render(fmt.Sprintf("\n%d/%d | type to filter, enter=select, esc=cancel", len(m.visible), len(m.items))))
	sb.WriteString("\n")
	return sb.String()
}

// Selected returns the chosen item, or false when cancelled
func (m PickerModel) Selected() (PickerItem, bool) {
	if m.selected == nil {
		return PickerItem{}, false
	}
	return *m.selected, true
}

// RunPicker displays the picker and returns the selection
func RunPicker(title string, items []PickerItem, height int) (PickerItem, bool, error) {
	if len(items) == 0 {
		return PickerItem{}, false, nil
	}

	p := tea.NewProgram(NewPickerModel(title, items, height))
	finalModel, err := p.Run()
	if err != nil {
		return PickerItem{}, false, err
	}

	item, ok := finalModel.(PickerModel).Selected()
	return item, ok, nil
}
