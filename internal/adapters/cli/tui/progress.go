package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StepStatus represents the state of a progress step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepError
)

// ProgressStep represents a single step in the progress
type ProgressStep struct {
	Name    string
	Status  StepStatus
	Ratio   float64 // 0-1, negative when unknown
	Total   int64   // bytes, for downloads
	Current int64
	Detail  string
	Error   string
}

// ProgressDisplay manages multi-step progress output. On a terminal the steps
// are redrawn in place; otherwise one line is written per state change.
type ProgressDisplay struct {
	out         io.Writer
	steps       []ProgressStep
	spinnerIdx  int
	quiet       bool
	interactive bool
	mu          sync.Mutex
	lastRender  time.Time
	rendered    bool
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewProgressDisplay creates a new progress display
func NewProgressDisplay(out io.Writer, steps []string, quiet, interactive bool) *ProgressDisplay {
	pd := &ProgressDisplay{
		out:         out,
		steps:       make([]ProgressStep, len(steps)),
		quiet:       quiet,
		interactive: interactive,
	}
	for i, name := range steps {
		pd.steps[i] = ProgressStep{Name: name, Status: StepPending, Ratio: -1}
	}
	return pd
}

// StartStep marks a step as running
func (p *ProgressDisplay) StartStep(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index >= 0 && index < len(p.steps) {
		p.steps[index].Status = StepRunning
		p.render(index, true)
	}
}

// CompleteStep marks a step as complete
func (p *ProgressDisplay) CompleteStep(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index >= 0 && index < len(p.steps) {
		p.steps[index].Status = StepComplete
		p.render(index, true)
	}
}

// SkipStep marks a step complete with a note, e.g. "already downloaded".
func (p *ProgressDisplay) SkipStep(index int, note string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index >= 0 && index < len(p.steps) {
		p.steps[index].Status = StepComplete
		p.steps[index].Detail = note
		p.render(index, true)
	}
}

// FailStep marks a step as failed
func (p *ProgressDisplay) FailStep(index int, err string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index >= 0 && index < len(p.steps) {
		p.steps[index].Status = StepError
		p.steps[index].Error = err
		p.render(index, true)
	}
}

// UpdateBytes updates download progress for a step
func (p *ProgressDisplay) UpdateBytes(index int, current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index >= 0 && index < len(p.steps) {
		p.steps[index].Current = current
		p.steps[index].Total = total
		if total > 0 {
			p.steps[index].Ratio = float64(current) / float64(total)
		}
		p.render(index, false)
	}
}

// UpdateRatio updates fractional progress for a step
func (p *ProgressDisplay) UpdateRatio(index int, ratio float64, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index >= 0 && index < len(p.steps) {
		p.steps[index].Ratio = ratio
		p.steps[index].Detail = detail
		p.render(index, false)
	}
}

// Tick advances the spinner animation
func (p *ProgressDisplay) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.spinnerIdx = (p.spinnerIdx + 1) % len(spinnerFrames)
	if p.interactive {
		p.render(-1, false)
	}
}

// render redraws all steps on a terminal. Elsewhere it writes the changed
// step only, and only on status changes (force) or every few seconds.
func (p *ProgressDisplay) render(changed int, force bool) {
	if p.quiet {
		return
	}
	if !force && time.Since(p.lastRender) < p.throttle() {
		return
	}
	p.lastRender = time.Now()

	if !p.interactive {
		if changed >= 0 {
			fmt.Fprintln(p.out, p.line(changed))
		}
		return
	}

	// Move cursor up by number of steps and clear to the end
	if p.rendered {
		fmt.Fprintf(p.out, "\033[%dA\033[J", len(p.steps))
	}
	for i := range p.steps {
		fmt.Fprintln(p.out, p.line(i))
	}
	p.rendered = true
}

func (p *ProgressDisplay) throttle() time.Duration {
	if p.interactive {
		return 100 * time.Millisecond
	}
	return 2 * time.Second
}

func (p *ProgressDisplay) line(i int) string {
	step := p.steps[i]
	stepNum := fmt.Sprintf("[%d/%d]", i+1, len(p.steps))

	var status string
	switch step.Status {
	case StepPending:
		status = " "
	case StepRunning:
		switch {
		case step.Total > 0:
			status = fmt.Sprintf("%s %.1f%% (%s / %s)",
				renderBar(step.Ratio, 20), step.Ratio*100,
				FormatSize(step.Current), FormatSize(step.Total))
		case step.Ratio >= 0:
			status = fmt.Sprintf("%s %.0f%%", renderBar(step.Ratio, 20), step.Ratio*100)
		default:
			status = spinnerFrames[p.spinnerIdx]
		}
		if step.Detail != "" {
			status += " " + step.Detail
		}
	case StepComplete:
		status = "✓"
		if step.Detail != "" {
			status += " (" + step.Detail + ")"
		}
	case StepError:
		status = "✗ " + step.Error
	}

	return fmt.Sprintf("%s %s... %s", stepNum, step.Name, status)
}

// Complete prints the final success message
func (p *ProgressDisplay) Complete(outputs map[string]string) {
	if p.quiet {
		return
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "✓ Complete!")
	for label, path := range outputs {
		fmt.Fprintf(p.out, "  %s: %s\n", label, path)
	}
}

// StartSpinner starts a goroutine that ticks the spinner. Close the returned
// channel to stop it.
func (p *ProgressDisplay) StartSpinner() chan struct{} {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p.Tick()
			}
		}
	}()
	return done
}
