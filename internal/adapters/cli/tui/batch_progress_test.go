package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		current, total int
		width          int
		want           string
	}{
		{0, 10, 10, "[          ]"},
		{5, 10, 10, "[=====>    ]"},
		{10, 10, 10, "[==========]"},
		{3, 10, 10, "[==>       ]"},
	}

	for _, tt := range tests {
		got := renderProgressBar(tt.current, tt.total, tt.width)
		if got != tt.want {
			t.Errorf("renderProgressBar(%d, %d, %d) = %q, want %q",
				tt.current, tt.total, tt.width, got, tt.want)
		}
	}
}

func TestBatchProgress_Counts(t *testing.T) {
	var out bytes.Buffer
	bp := newBatchProgress(3, false, &out)

	bp.AddResult(BatchResult{Label: "aaaaaaaaaaa", Success: true, Duration: 2 * time.Second, Source: "captions"})
	bp.AddResult(BatchResult{Label: "bbbbbbbbbbb", ErrMsg: "could not download audio"})
	bp.AddResult(BatchResult{Label: "ccccccccccc", Success: true, Duration: 90 * time.Second, Source: "whisper"})
	bp.Complete()

	if bp.GetSuccessCount() != 2 {
		t.Errorf("GetSuccessCount() = %d, want 2", bp.GetSuccessCount())
	}
	if bp.GetFailureCount() != 1 {
		t.Errorf("GetFailureCount() = %d, want 1", bp.GetFailureCount())
	}

	got := out.String()
	for _, want := range []string{
		"Batch processing 3/3 videos",
		"✓ aaaaaaaaaaa (2.0s) [captions]",
		"✓ ccccccccccc (1m30s) [whisper]",
		"Batch complete: 2/3 succeeded",
		"✗ bbbbbbbbbbb: could not download audio",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestBatchProgress_Quiet(t *testing.T) {
	var out bytes.Buffer
	bp := newBatchProgress(1, true, &out)

	bp.AddResult(BatchResult{Label: "aaaaaaaaaaa", Success: true})
	bp.Complete()

	if out.Len() != 0 {
		t.Errorf("quiet display wrote %q", out.String())
	}
}
