package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/devbush/voxcribe/internal/domain"
)

const recentSegments = 3

var (
	phaseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	partialStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// ProgressMsg carries a pipeline progress event into the program.
type ProgressMsg domain.Progress

// SegmentMsg carries a recognized segment into the program.
type SegmentMsg domain.TextSegment

type pipelineDoneMsg struct{ err error }

// PipelineFunc runs a transcription, reporting through the two callbacks.
type PipelineFunc func(ctx context.Context, onProgress domain.ProgressFunc, onSegment func(domain.TextSegment)) error

// PipelineModel renders a running transcription: a progress bar, the current
// phase and the most recent segments.
type PipelineModel struct {
	title      string
	bar        progress.Model
	spinner    spinner.Model
	current    domain.Progress
	segments   []string
	cancel     context.CancelFunc
	cancelling bool
	done       bool
	err        error
	started    time.Time
}

// NewPipelineModel creates the model. cancel is invoked when the user aborts.
func NewPipelineModel(title string, cancel context.CancelFunc) PipelineModel {
	return PipelineModel{
		title:   title,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(phaseStyle)),
		cancel:  cancel,
		started: time.Now(),
	}
}

func (m PipelineModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m PipelineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			// Keep running until the pipeline reports back so temp files are cleaned up.
			if !m.cancelling && m.cancel != nil {
				m.cancelling = true
				m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(msg.Width-12, 60))
		return m, nil

	case ProgressMsg:
		m.current = domain.Progress(msg)
		return m, nil

	case SegmentMsg:
		seg := domain.TextSegment(msg)
		m.segments = append(m.segments, FormatSegmentLine(seg))
		if len(m.segments) > recentSegments {
			m.segments = m.segments[len(m.segments)-recentSegments:]
		}
		return m, nil

	case pipelineDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m PipelineModel) View() string {
	elapsed := time.Since(m.started).Round(100 * time.Millisecond)

	if m.done {
		switch {
		case m.err == nil:
			return doneStyle.Render(fmt.Sprintf("✓ %s (%s)", m.title, elapsed)) + "\n"
		case domain.IsCancelled(m.err):
			return errorStyle.Render("✗ Cancelled") + "\n"
		default:
			return errorStyle.Render("✗ "+m.title+" failed") + "\n"
		}
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	phase := m.current.Phase
	if phase == "" {
		phase = "Starting"
	}
	if m.cancelling {
		phase = "Cancelling"
	}
	sb.WriteString(fmt.Sprintf("%s %s  %s\n", m.spinner.View(), phaseStyle.Render(phase), hintStyle.Render(elapsed.String())))
	sb.WriteString(m.bar.ViewAs(domain.ClampRatio(m.current.Ratio)))
	sb.WriteString("\n\n")

	if len(m.segments) > 0 {
		for _, line := range m.segments {
			sb.WriteString(partialStyle.Render(line))
			sb.WriteString("\n")
		}
	} else if m.current.PartialText != "" {
		sb.WriteString(partialStyle.Render(m.current.PartialText))
		sb.WriteString("\n")
	}

	sb.WriteString(hintStyle.Render("\n(ctrl+c to cancel)"))
	sb.WriteString("\n")
	return sb.String()
}

// Err returns the pipeline result once done.
func (m PipelineModel) Err() error {
	return m.err
}

// RunPipeline runs fn while rendering its progress to out. It returns fn's
// error; when the user aborts, fn sees a cancelled context.
func RunPipeline(ctx context.Context, title string, out io.Writer, fn PipelineFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewPipelineModel(title, cancel), tea.WithOutput(out))

	errCh := make(chan error, 1)
	go func() {
		err := fn(ctx,
			func(pr domain.Progress) { p.Send(ProgressMsg(pr)) },
			func(seg domain.TextSegment) { p.Send(SegmentMsg(seg)) },
		)
		errCh <- err
		p.Send(pipelineDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errCh
		return fmt.Errorf("progress display: %w", err)
	}
	return <-errCh
}
