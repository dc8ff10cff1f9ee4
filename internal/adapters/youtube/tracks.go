package youtube

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"strings"
)

// playerResponse is the subset of ytInitialPlayerResponse and the
// Innertube /player response we read.
type playerResponse struct {
	Captions *struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

func (t captionTrack) generated() bool {
	return t.Kind == "asr"
}

// captionTracks returns the track list, or an error explaining its absence
func (p *playerResponse) captionTracks() ([]captionTrack, error) {
	if p.Captions == nil || len(p.Captions.Renderer.CaptionTracks) == 0 {
		if p.PlayabilityStatus != nil && p.PlayabilityStatus.Status != "OK" && p.PlayabilityStatus.Reason != "" {
			return nil, fmt.Errorf("video not playable: %s", p.PlayabilityStatus.Reason)
		}
		return nil, errNoCaptions
	}
	return p.Captions.Renderer.CaptionTracks, nil
}

var (
	errNoCaptions = errors.New("video has no caption tracks")
	errEmptyTrack = errors.New("caption track is empty")
)

// needsPoToken reports whether a caption URL only works from a browser
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickTrack chooses the track in exactly the requested language,
// preferring creator tracks over auto-generated ones.
func pickTrack(tracks []captionTrack, language string) (captionTrack, bool) {
	var generated *captionTrack
	for i, t := range tracks {
		if t.LanguageCode != language || needsPoToken(t.BaseURL) {
			continue
		}
		if !t.generated() {
			return t, true
		}
		if generated == nil {
			generated = &tracks[i]
		}
	}
	if generated != nil {
		return *generated, true
	}
	return captionTrack{}, false
}

const playerResponseMarker = "ytInitialPlayerResponse = "

// extractPlayerResponse pulls the player response JSON out of a watch page
func extractPlayerResponse(page []byte) (*playerResponse, error) {
	idx := bytes.Index(page, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	raw := extractJSONObject(page[idx+len(playerResponseMarker):])
	if raw == nil {
		return nil, errors.New("unterminated ytInitialPlayerResponse")
	}

	var resp playerResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &resp, nil
}

// extractJSONObject returns the balanced {...} object at the start of b
func extractJSONObject(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// timedText covers the legacy <transcript><text> layout and the srv3
// <timedtext><body><p> layout.
type timedText struct {
	Texts []cue `xml:"text"`
	Body  struct {
		Paragraphs []cue `xml:"p"`
	} `xml:"body"`
}

type cue struct {
	Text  string `xml:",chardata"`
	Words []struct {
		Text string `xml:",chardata"`
	} `xml:"s"`
}

func (c cue) content() string {
	if len(c.Words) == 0 {
		return c.Text
	}
	var sb strings.Builder
	for _, w := range c.Words {
		sb.WriteString(w.Text)
	}
	return sb.String()
}

// parseTimedText joins caption segments in order with single spaces.
// Entities are unescaped a second time since captions are double-encoded.
func parseTimedText(data []byte) (string, error) {
	var tt timedText
	if err := xml.Unmarshal(data, &tt); err != nil {
		return "", fmt.Errorf("parse timedtext: %w", err)
	}

	cues := tt.Texts
	if len(cues) == 0 {
		cues = tt.Body.Paragraphs
	}

	parts := make([]string, 0, len(cues))
	for _, c := range cues {
		text := strings.Join(strings.Fields(html.UnescapeString(c.content())), " ")
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
