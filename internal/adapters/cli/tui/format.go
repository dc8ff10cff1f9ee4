package tui

import (
	"fmt"
	"time"

	"github.com/devbush/yt2text/internal/domain"
)

// FormatSize formats a byte count for humans
// Examples: 512 -> "512 B", 2048 -> "2 KB", 1610612736 -> "1.5 GB"
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.0f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.0f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatDuration formats elapsed time as "4.2s" under a minute, "3m05s" above
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	d = d.Round(time.Second)
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

// SourceLabel names where a transcript came from
func SourceLabel(source domain.Source) string {
	switch source {
	case domain.SourceTranscriptAPI:
		return "captions"
	case domain.SourceSpeechModel:
		return "whisper"
	default:
		return "none"
	}
}

// Truncate shortens s to limit runes, ending with "..."
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}
