package domain

import (
	"time"
)

// Source identifies where a transcript's text came from
type Source string

const (
	SourceTranscriptAPI Source = "transcript-api"
	SourceSpeechModel   Source = "speech-model"
)

// DefaultLanguage is the caption track requested when none is given
const DefaultLanguage = "en"

// TranscriptResult is the outcome of resolving one video: either Found with
// non-empty text, or NotFound.
type TranscriptResult struct {
	VideoID    VideoID   `json:"video_id"`
	Found      bool      `json:"found"`
	Text       string    `json:"text,omitempty"`
	Source     Source    `json:"source,omitempty"`
	Language   string    `json:"language,omitempty"`
	Model      string    `json:"model,omitempty"` // set when Source is SourceSpeechModel
	ResolvedAt time.Time `json:"resolved_at"`
}

// Found builds a result for text obtained from source. Empty text yields NotFound.
func Found(id VideoID, text string, source Source, language string) *TranscriptResult {
	if text == "" {
		return NotFound(id)
	}
	return &TranscriptResult{
		VideoID:    id,
		Found:      true,
		Text:       text,
		Source:     source,
		Language:   language,
		ResolvedAt: time.Now(),
	}
}

// NotFound builds a result for a video with no usable transcript
func NotFound(id VideoID) *TranscriptResult {
	return &TranscriptResult{
		VideoID:    id,
		ResolvedAt: time.Now(),
	}
}

// WordCount returns the number of whitespace-separated words in the text
func (r *TranscriptResult) WordCount() int {
	count := 0
	inWord := false
	for _, c := range r.Text {
		switch c {
		case ' ', '\n', '\t', '\r':
			inWord = false
		default:
			if !inWord {
				count++
				inWord = true
			}
		}
	}
	return count
}
