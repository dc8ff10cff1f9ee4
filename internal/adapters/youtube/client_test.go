package youtube

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVideoID = "dQw4w9WgXcQ"

const captionXML = `<transcript><text start="0" dur="1">Never gonna</text><text start="1" dur="1">give you up</text></transcript>`

// fakeYouTube serves a watch page, the player endpoint and caption tracks
type fakeYouTube struct {
	server *httptest.Server

	watchPage    func(w http.ResponseWriter, r *http.Request)
	player       func(w http.ResponseWriter, r *http.Request)
	timedtext    func(w http.ResponseWriter, r *http.Request)
	watchHits    atomic.Int32
	playerHits   atomic.Int32
	timedtextHit atomic.Int32
}

func newFakeYouTube(t *testing.T) *fakeYouTube {
	t.Helper()
	f := &fakeYouTube{}
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		f.watchHits.Add(1)
		f.watchPage(w, r)
	})
	mux.HandleFunc("/youtubei/v1/player", func(w http.ResponseWriter, r *http.Request) {
		f.playerHits.Add(1)
		f.player(w, r)
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		f.timedtextHit.Add(1)
		f.timedtext(w, r)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	f.watchPage = f.pageWithTracks(`{"baseUrl":"%s/api/timedtext?v=` + testVideoID + `&lang=en","languageCode":"en"}`)
	f.player = func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }
	f.timedtext = func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, captionXML) }
	return f
}

func (f *fakeYouTube) tracksJSON(tracks string) string {
	return fmt.Sprintf(`{"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[%s]}}}`,
		fmt.Sprintf(tracks, f.server.URL))
}

func (f *fakeYouTube) pageWithTracks(tracks string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><script>var ytInitialPlayerResponse = %s;</script></html>`, f.tracksJSON(tracks))
	}
}

func (f *fakeYouTube) client(opts ...Option) *Client {
	base := []Option{
		WithBaseURL(f.server.URL),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRetry(3, time.Millisecond),
		WithTimeout(5 * time.Second),
	}
	return NewClient(append(base, opts...)...)
}

func TestClient_FetchFromWatchPage(t *testing.T) {
	f := newFakeYouTube(t)

	text, ok := f.client().Fetch(context.Background(), testVideoID, "en")

	require.True(t, ok)
	assert.Equal(t, "Never gonna give you up", text)
	assert.EqualValues(t, 0, f.playerHits.Load(), "player endpoint should not be needed")
}

func TestClient_LanguageNotAvailable(t *testing.T) {
	f := newFakeYouTube(t)

	text, ok := f.client().Fetch(context.Background(), testVideoID, "fr")

	assert.False(t, ok)
	assert.Empty(t, text)
	assert.EqualValues(t, 0, f.timedtextHit.Load())
}

func TestClient_FallsBackToPlayer(t *testing.T) {
	f := newFakeYouTube(t)
	f.watchPage = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>consent required</html>")
	}
	f.player = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "3", r.Header.Get("X-Youtube-Client-Name"))
		_, _ = io.WriteString(w, f.tracksJSON(`{"baseUrl":"%s/api/timedtext?lang=en&kind=asr","languageCode":"en","kind":"asr"}`))
	}

	text, ok := f.client().Fetch(context.Background(), testVideoID, "en")

	require.True(t, ok)
	assert.Equal(t, "Never gonna give you up", text)
	assert.EqualValues(t, 1, f.playerHits.Load())
}

func TestClient_FallsBackToPlayerWhenWatchTracksNeedToken(t *testing.T) {
	f := newFakeYouTube(t)
	f.watchPage = f.pageWithTracks(`{"baseUrl":"%s/api/timedtext?lang=en&exp=xpe","languageCode":"en"}`)
	f.player = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, f.tracksJSON(`{"baseUrl":"%s/api/timedtext?lang=en","languageCode":"en"}`))
	}

	text, ok := f.client().Fetch(context.Background(), testVideoID, "en")

	require.True(t, ok)
	assert.Equal(t, "Never gonna give you up", text)
	assert.EqualValues(t, 1, f.playerHits.Load())
	assert.EqualValues(t, 1, f.timedtextHit.Load(), "token-gated track should never be requested")
}

func TestClient_FallsBackToPlayerWhenWatchTrackFails(t *testing.T) {
	f := newFakeYouTube(t)
	f.watchPage = f.pageWithTracks(`{"baseUrl":"%s/api/timedtext?lang=en&src=watch","languageCode":"en"}`)
	f.player = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, f.tracksJSON(`{"baseUrl":"%s/api/timedtext?lang=en&src=player","languageCode":"en"}`))
	}
	f.timedtext = func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("src") == "watch" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, captionXML)
	}

	text, ok := f.client().Fetch(context.Background(), testVideoID, "en")

	require.True(t, ok)
	assert.Equal(t, "Never gonna give you up", text)
	assert.EqualValues(t, 1, f.playerHits.Load())
}

func TestReadBody_RejectsOversizedBody(t *testing.T) {
	resp := &http.Response{
		Header: http.Header{},
		Body:   io.NopCloser(strings.NewReader(strings.Repeat("x", 17))),
	}

	_, err := readBody(resp, 16)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestReadBody_AcceptsBodyAtLimit(t *testing.T) {
	resp := &http.Response{
		Header: http.Header{},
		Body:   io.NopCloser(strings.NewReader(strings.Repeat("x", 16))),
	}

	data, err := readBody(resp, 16)

	require.NoError(t, err)
	assert.Len(t, data, 16)
}

func TestClient_OversizedTrackIsMiss(t *testing.T) {
	f := newFakeYouTube(t)
	f.timedtext = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("<text>x</text>", maxCaptionBytes/14+1))
	}

	text, ok := f.client().Fetch(context.Background(), testVideoID, "en")

	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestClient_PrivateVideo(t *testing.T) {
	f := newFakeYouTube(t)
	unplayable := `{"playabilityStatus":{"status":"LOGIN_REQUIRED","reason":"This video is private"}}`
	f.watchPage = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<script>var ytInitialPlayerResponse = %s;</script>`, unplayable)
	}
	f.player = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, unplayable)
	}

	text, ok := f.client().Fetch(context.Background(), testVideoID, "en")

	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	f := newFakeYouTube(t)
	var calls atomic.Int32
	f.timedtext = func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, captionXML)
	}

	text, ok := f.client().Fetch(context.Background(), testVideoID, "en")

	require.True(t, ok)
	assert.Equal(t, "Never gonna give you up", text)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_DoesNotRetryClientError(t *testing.T) {
	f := newFakeYouTube(t)
	f.timedtext = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}

	_, ok := f.client().Fetch(context.Background(), testVideoID, "en")

	assert.False(t, ok)
	assert.EqualValues(t, 1, f.timedtextHit.Load())
}

func TestClient_EmptyTrackIsMiss(t *testing.T) {
	f := newFakeYouTube(t)
	f.timedtext = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<transcript></transcript>`)
	}

	text, ok := f.client().Fetch(context.Background(), testVideoID, "en")

	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestClient_DecodesCompressedBodies(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		encode   func(w io.Writer) io.WriteCloser
	}{
		{"gzip", "gzip", func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) }},
		{"brotli", "br", func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeYouTube(t)
			f.timedtext = func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", tt.encoding)
				enc := tt.encode(w)
				_, _ = io.WriteString(enc, captionXML)
				_ = enc.Close()
			}

			text, ok := f.client().Fetch(context.Background(), testVideoID, "en")

			require.True(t, ok)
			assert.Equal(t, "Never gonna give you up", text)
		})
	}
}

func TestClient_NetworkFailureIsMiss(t *testing.T) {
	f := newFakeYouTube(t)
	c := f.client(WithRetry(1, time.Millisecond))
	f.server.Close()

	text, ok := c.Fetch(context.Background(), testVideoID, "en")

	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestClient_CancelledContext(t *testing.T) {
	f := newFakeYouTube(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := f.client().Fetch(ctx, testVideoID, "en")

	assert.False(t, ok)
}
