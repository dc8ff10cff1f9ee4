package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// renderProgressBar creates a text progress bar like [=====>    ]
// current=0, total=10, width=10 → [          ]
// current=5, total=10, width=10 → [=====>    ]
// current=10, total=10, width=10 → [==========]
// current=3, total=10, width=10 → [==>       ]
func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return "[" + strings.Repeat(" ", width) + "]"
	}

	var bar strings.Builder
	bar.WriteString("[")

	if current >= total {
		// Complete: all equals, no arrow
		bar.WriteString(strings.Repeat("=", width))
	} else if current == 0 {
		// Empty: all spaces
		bar.WriteString(strings.Repeat(" ", width))
	} else {
		// Arrow position is 1-indexed, rounded to nearest
		ratio := float64(current) / float64(total)
		arrowPos := int(ratio*float64(width) + 0.5) // Round to nearest

		if arrowPos < 1 {
			arrowPos = 1
		}
		if arrowPos > width {
			arrowPos = width
		}

		// From halfway on the arrow sits after the filled part
		equals := arrowPos - 1
		if ratio >= 0.5 {
			equals = arrowPos
		}

		if equals < 0 {
			equals = 0
		}
		if equals > width-1 {
			equals = width - 1
		}

		spaces := width - equals - 1 // -1 for the arrow
		if spaces < 0 {
			spaces = 0
		}

		bar.WriteString(strings.Repeat("=", equals))
		bar.WriteString(">")
		bar.WriteString(strings.Repeat(" ", spaces))
	}

	bar.WriteString("]")
	return bar.String()
}

// BatchResult is one finished video as shown in the batch display
type BatchResult struct {
	Label    string // video ID, or the raw input when it could not be parsed
	Success  bool
	ErrMsg   string
	Duration time.Duration
	Source   string // captions or whisper
}

// BatchProgress manages batch processing progress display
type BatchProgress struct {
	total     int
	completed int
	results   []BatchResult
	failures  []BatchResult
	quiet     bool
	out       io.Writer
	mu        sync.Mutex
	rendered  bool
}

// NewBatchProgress creates a new batch progress display on stderr
func NewBatchProgress(total int, quiet bool) *BatchProgress {
	return newBatchProgress(total, quiet, os.Stderr)
}

func newBatchProgress(total int, quiet bool, out io.Writer) *BatchProgress {
	if total < 0 {
		total = 0
	}
	return &BatchProgress{
		total:    total,
		results:  make([]BatchResult, 0),
		failures: make([]BatchResult, 0),
		quiet:    quiet,
		out:      out,
	}
}

// AddResult adds a result and updates the display
func (bp *BatchProgress) AddResult(result BatchResult) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.results = append(bp.results, result)
	bp.completed++

	if !result.Success {
		bp.failures = append(bp.failures, result)
	}

	bp.render()
}

func (bp *BatchProgress) render() {
	if bp.quiet {
		return
	}

	// Progress line plus up to 10 results
	linesToClear := 1 + min(len(bp.results)-1, 10)
	if bp.rendered {
		fmt.Fprintf(bp.out, "\033[%dA", linesToClear)
		fmt.Fprint(bp.out, "\033[J")
	}

	percent := 0
	if bp.total > 0 {
		percent = (bp.completed * 100) / bp.total
	}
	progressBar := renderProgressBar(bp.completed, bp.total, 20)
	fmt.Fprintf(bp.out, "Batch processing %d/%d videos %s %d%%\n", bp.completed, bp.total, progressBar, percent)

	startIdx := 0
	if len(bp.results) > 10 {
		startIdx = len(bp.results) - 10
	}

	for i := startIdx; i < len(bp.results); i++ {
		result := bp.results[i]
		if result.Success {
			fmt.Fprintf(bp.out, "✓ %s (%s) [%s]\n", result.Label, FormatDuration(result.Duration), result.Source)
		} else {
			fmt.Fprintf(bp.out, "✗ %s: %s\n", result.Label, result.ErrMsg)
		}
	}

	bp.rendered = true
}

// Complete prints the final summary
func (bp *BatchProgress) Complete() {
	if bp.quiet {
		return
	}

	bp.mu.Lock()
	completed := bp.completed
	total := bp.total
	failures := make([]BatchResult, len(bp.failures))
	copy(failures, bp.failures)
	bp.mu.Unlock()

	succeeded := completed - len(failures)

	fmt.Fprintln(bp.out)
	fmt.Fprintf(bp.out, "Batch complete: %d/%d succeeded\n", succeeded, total)

	if len(failures) > 0 {
		fmt.Fprintln(bp.out, "\nFailures:")
		for _, f := range failures {
			fmt.Fprintf(bp.out, "  ✗ %s: %s\n", f.Label, f.ErrMsg)
		}
	}
}

// GetSuccessCount returns the number of successful results
func (bp *BatchProgress) GetSuccessCount() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.completed - len(bp.failures)
}

// GetFailureCount returns the number of failed results
func (bp *BatchProgress) GetFailureCount() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.failures)
}
