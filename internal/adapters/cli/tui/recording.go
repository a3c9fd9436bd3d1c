package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var recordingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

// RecordingAction is how a recording ended.
type RecordingAction int

const (
	RecordingStop RecordingAction = iota
	RecordingCancel
)

// ElapsedMsg updates the recording clock.
type ElapsedMsg time.Duration

type interruptMsg struct{}

// RecordingModel shows a running clock until the user stops or discards the recording.
type RecordingModel struct {
	elapsed time.Duration
	blink   bool
	action  RecordingAction
}

func (m RecordingModel) Init() tea.Cmd {
	return nil
}

func (m RecordingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", " ", "s":
			m.action = RecordingStop
			return m, tea.Quit
		case "esc", "q", "ctrl+c":
			m.action = RecordingCancel
			return m, tea.Quit
		}
	case ElapsedMsg:
		m.elapsed = time.Duration(msg)
		m.blink = (m.elapsed/(500*time.Millisecond))%2 == 0
	case interruptMsg:
		m.action = RecordingCancel
		return m, tea.Quit
	}
	return m, nil
}

func (m RecordingModel) View() string {
	var sb strings.Builder
	dot := " "
	if m.blink {
		dot = "●"
	}
	sb.WriteString(fmt.Sprintf("%s %s  %s\n",
		recordingStyle.Render(dot),
		titleStyle.Render("Recording"),
		FormatElapsed(m.elapsed)))
	sb.WriteString(hintStyle.Render("(enter to stop and transcribe, esc to discard)"))
	sb.WriteString("\n")
	return sb.String()
}

// Action returns how the recording ended.
func (m RecordingModel) Action() RecordingAction {
	return m.action
}

// RunRecording shows recording controls until the user decides or ctx ends.
// subscribe receives the callback that feeds the clock.
func RunRecording(ctx context.Context, out io.Writer, subscribe func(func(time.Duration))) (RecordingAction, error) {
	p := tea.NewProgram(RecordingModel{}, tea.WithOutput(out))

	if subscribe != nil {
		subscribe(func(d time.Duration) { p.Send(ElapsedMsg(d)) })
		defer subscribe(nil)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			p.Send(interruptMsg{})
		case <-stop:
		}
	}()

	final, err := p.Run()
	if err != nil {
		return RecordingCancel, err
	}
	return final.(RecordingModel).Action(), nil
}
