package cli

import "github.com/devbush/yt2text/internal/application"

// BatchSummary aggregates results from a batch run
type BatchSummary struct {
	Total   int
	Found   int
	Missing int // resolved, but the video has no transcript
	Failed  int
}

// Summarize counts batch items by outcome
func Summarize(items []application.BatchItem) BatchSummary {
	s := BatchSummary{Total: len(items)}
	for _, item := range items {
		switch {
		case !item.OK():
			s.Failed++
		case item.Result.Found:
			s.Found++
		default:
			s.Missing++
		}
	}
	return s
}
