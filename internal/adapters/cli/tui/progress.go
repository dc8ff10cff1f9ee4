package tui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// StepStatus represents the state of a progress step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepSkipped
	StepError
)

// ProgressStep represents a single step in the progress
type ProgressStep struct {
	Name     string
	Status   StepStatus
	Progress float64 // 0-100, only used for download steps
	Total    int64   // Total bytes for download
	Current  int64   // Current bytes for download
	Error    string
}

// ProgressDisplay manages multi-step progress output. It writes to stderr
// so stdout carries only the transcript.
type ProgressDisplay struct {
	steps       []ProgressStep
	currentStep int
	spinnerIdx  int
	quiet       bool
	out         io.Writer
	mu          sync.Mutex
	lastRender  time.Time
	rendered    bool
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewProgressDisplay creates a new progress display
func NewProgressDisplay(steps []string, quiet bool) *ProgressDisplay {
	return newProgressDisplay(steps, quiet, os.Stderr)
}

func newProgressDisplay(steps []string, quiet bool, out io.Writer) *ProgressDisplay {
	pd := &ProgressDisplay{
		steps: make([]ProgressStep, len(steps)),
		quiet: quiet,
		out:   out,
	}
	for i, name := range steps {
		pd.steps[i] = ProgressStep{Name: name, Status: StepPending}
	}
	return pd
}

// StartStep marks a step as running and completes every earlier running step
func (p *ProgressDisplay) StartStep(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.steps) {
		return
	}
	for i := 0; i < index; i++ {
		if p.steps[i].Status == StepRunning {
			p.steps[i].Status = StepComplete
		}
	}
	p.currentStep = index
	p.steps[index].Status = StepRunning
	p.render()
}

// CompleteStep marks a step as complete
func (p *ProgressDisplay) CompleteStep(index int) {
	p.setStatus(index, StepComplete, "")
}

// SkipStep marks a step that turned out not to be needed
func (p *ProgressDisplay) SkipStep(index int) {
	p.setStatus(index, StepSkipped, "")
}

// FailStep marks a step as failed
func (p *ProgressDisplay) FailStep(index int, err string) {
	p.setStatus(index, StepError, err)
}

// Finish completes the running step and skips the ones never started
func (p *ProgressDisplay) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.steps {
		switch p.steps[i].Status {
		case StepRunning:
			p.steps[i].Status = StepComplete
		case StepPending:
			p.steps[i].Status = StepSkipped
		}
	}
	p.render()
}

// Fail marks the running step as failed
func (p *ProgressDisplay) Fail(err string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.steps {
		if p.steps[i].Status == StepRunning {
			p.steps[i].Status = StepError
			p.steps[i].Error = err
		}
	}
	p.render()
}

func (p *ProgressDisplay) setStatus(index int, status StepStatus, err string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index >= 0 && index < len(p.steps) {
		p.steps[index].Status = status
		p.steps[index].Error = err
		p.render()
	}
}

// UpdateProgress updates download progress for a step
func (p *ProgressDisplay) UpdateProgress(index int, current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index >= 0 && index < len(p.steps) {
		p.steps[index].Current = current
		p.steps[index].Total = total
		if total > 0 {
			p.steps[index].Progress = float64(current) / float64(total) * 100
		}
		// Throttle renders to avoid flickering
		if time.Since(p.lastRender) > 100*time.Millisecond {
			p.render()
		}
	}
}

// Tick advances the spinner animation
func (p *ProgressDisplay) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.spinnerIdx = (p.spinnerIdx + 1) % len(spinnerFrames)
	p.render()
}

func (p *ProgressDisplay) render() {
	if p.quiet {
		return
	}

	p.lastRender = time.Now()

	if p.rendered {
		fmt.Fprintf(p.out, "\033[%dA", len(p.steps)) // Move up
		fmt.Fprint(p.out, "\033[J")                  // Clear from cursor to end
	}

	total := len(p.steps)
	for i, step := range p.steps {
		stepNum := fmt.Sprintf("[%d/%d]", i+1, total)

		var status string
		switch step.Status {
		case StepPending:
			status = " "
		case StepRunning:
			if step.Total > 0 {
				status = fmt.Sprintf("%.1f%% (%s / %s)",
					step.Progress,
					formatBytes(step.Current),
					formatBytes(step.Total))
			} else {
				status = spinnerFrames[p.spinnerIdx]
			}
		case StepComplete:
			status = "✓"
		case StepSkipped:
			status = "-"
		case StepError:
			status = "✗ " + step.Error
		}

		fmt.Fprintf(p.out, "%s %s... %s\n", stepNum, step.Name, status)
	}

	p.rendered = true
}

// Complete prints the final success message
func (p *ProgressDisplay) Complete(outputs map[string]string) {
	if p.quiet {
		return
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "✓ Complete!")
	for label, value := range outputs {
		fmt.Fprintf(p.out, "  %s: %s\n", label, value)
	}
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// StartSpinner starts a goroutine that ticks the spinner until done is closed
func (p *ProgressDisplay) StartSpinner() chan struct{} {
	done := make(chan struct{})
	if p.quiet {
		return done
	}
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
