package ports

import (
	"context"

	"github.com/devbush/yt2text/internal/domain"
)

// TranscriptSource retrieves existing captions for a video.
//
// Absence of a transcript is an expected outcome and is reported as
// ok == false, never as an error. Implementations log the underlying cause.
type TranscriptSource interface {
	// Fetch returns the caption text for the requested language track,
	// segments joined in temporal order by single spaces.
	Fetch(ctx context.Context, id domain.VideoID, language string) (text string, ok bool)
}
