package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// VideoID is a YouTube video identifier
type VideoID string

// WatchURL builds the canonical watch URL for the video
func (id VideoID) WatchURL() string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", id)
}

func (id VideoID) String() string {
	return string(id)
}

var (
	// Exactly 11 characters: alphanumeric, dash, underscore
	videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

	// Path prefixes for youtube.com URLs that carry the ID in the path
	alternatePathPrefixes = []string{"/embed/", "/shorts/", "/live/", "/v/"}
)

// IsValidVideoID reports whether s has the shape of a video identifier
func IsValidVideoID(s string) bool {
	return videoIDPattern.MatchString(s)
}

// URLParser extracts video IDs from URLs.
//
// The canonical form is a youtube.com URL with the ID in the v query
// parameter. Short links (youtu.be/ID) and path forms (/embed/ID, /shorts/ID,
// /live/ID) are only accepted with AllowAlternateForms; otherwise they are
// rejected with an error naming the form.
type URLParser struct {
	AllowAlternateForms bool
}

// ParseVideoURL extracts a VideoID using the canonical ?v= rule only
func ParseVideoURL(raw string) (VideoID, error) {
	return URLParser{}.Parse(raw)
}

// Parse extracts the VideoID from raw
func (p URLParser) Parse(raw string) (VideoID, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidURL)
	}

	if !strings.Contains(input, "://") {
		input = "https://" + input
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}

	host := strings.ToLower(u.Hostname())

	if host == "youtu.be" || host == "www.youtu.be" {
		id := strings.Trim(u.Path, "/")
		if !p.AllowAlternateForms {
			return "", fmt.Errorf("%w: short links (youtu.be) are not supported, use the youtube.com/watch?v= form: %s", ErrInvalidURL, raw)
		}
		if !IsValidVideoID(id) {
			return "", fmt.Errorf("%w: no video ID in short link: %s", ErrInvalidURL, raw)
		}
		return VideoID(id), nil
	}

	if !isYouTubeHost(host) {
		return "", fmt.Errorf("%w: not a YouTube URL: %s", ErrInvalidURL, raw)
	}

	if v := u.Query().Get("v"); v != "" {
		if !IsValidVideoID(v) {
			return "", fmt.Errorf("%w: malformed video ID %q", ErrInvalidURL, v)
		}
		return VideoID(v), nil
	}

	for _, prefix := range alternatePathPrefixes {
		if !strings.HasPrefix(u.Path, prefix) {
			continue
		}
		form := strings.Trim(prefix, "/")
		if !p.AllowAlternateForms {
			return "", fmt.Errorf("%w: %s links are not supported, use the youtube.com/watch?v= form: %s", ErrInvalidURL, form, raw)
		}
		id := strings.SplitN(strings.TrimPrefix(u.Path, prefix), "/", 2)[0]
		if !IsValidVideoID(id) {
			return "", fmt.Errorf("%w: no video ID in %s link: %s", ErrInvalidURL, form, raw)
		}
		return VideoID(id), nil
	}

	return "", fmt.Errorf("%w: no v= parameter: %s", ErrInvalidURL, raw)
}

func isYouTubeHost(host string) bool {
	switch host {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com":
		return true
	}
	return false
}
