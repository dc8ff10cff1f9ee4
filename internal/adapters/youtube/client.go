package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/devbush/yt2text/internal/domain"
	"github.com/devbush/yt2text/internal/ports"
)

const (
	defaultBaseURL = "https://www.youtube.com"

	androidVersion = "20.10.38"
	androidUA      = "com.google.android.youtube/" + androidVersion + " (Linux; U; Android 11) gzip"
)

// Client fetches existing transcripts from YouTube's caption tracks.
// The watch page is scraped first; the Innertube ANDROID player endpoint
// is the fallback source of the track list.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
	baseURL   string
	timeout   time.Duration
	maxTries  uint
	retryWait time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBaseURL points the client at another host, used by tests
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(base, "/") }
}

// WithLogger sets the logger for swallowed failures
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout bounds a whole Fetch call
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimit caps outbound requests per second (0 means unlimited)
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetry sets the attempt count and initial backoff for transient failures
func WithRetry(maxTries uint, wait time.Duration) Option {
	return func(c *Client) {
		c.maxTries = maxTries
		c.retryWait = wait
	}
}

// NewClient creates a transcript client
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:      newHTTPClient(),
		limiter:   rate.NewLimiter(rate.Inf, 0),
		logger:    slog.Default(),
		baseURL:   defaultBaseURL,
		timeout:   30 * time.Second,
		maxTries:  3,
		retryWait: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the transcript for id in exactly the given language.
// Any failure is logged and reported as ok=false.
func (c *Client) Fetch(ctx context.Context, id domain.VideoID, language string) (string, bool) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log := c.logger.With(slog.String("video_id", string(id)), slog.String("language", language))

	sources := []struct {
		name   string
		tracks func(context.Context, domain.VideoID) ([]captionTrack, error)
	}{
		{"watch page", c.tracksFromWatchPage},
		{"player", c.tracksFromPlayer},
	}

	var errs []error
	for _, src := range sources {
		text, track, err := c.fetchFrom(ctx, id, language, src.tracks)
		if err == nil {
			log.Debug("youtube: transcript fetched",
				slog.String("source", src.name),
				slog.Bool("auto_generated", track.generated()),
				slog.Int("chars", len(text)))
			return text, true
		}
		errs = append(errs, fmt.Errorf("%s: %w", src.name, err))
		if ctx.Err() != nil {
			break
		}
		log.Debug("youtube: caption source failed", slog.String("source", src.name), slog.Any("err", err))
	}

	log.Warn("youtube: transcript unavailable", slog.Any("err", errors.Join(errs...)))
	return "", false
}

// fetchFrom runs list, pick and fetch against one track source
func (c *Client) fetchFrom(
	ctx context.Context,
	id domain.VideoID,
	language string,
	list func(context.Context, domain.VideoID) ([]captionTrack, error),
) (string, captionTrack, error) {
	tracks, err := list(ctx, id)
	if err != nil {
		return "", captionTrack{}, err
	}

	track, ok := pickTrack(tracks, language)
	if !ok {
		return "", captionTrack{}, fmt.Errorf("%w: no usable track in requested language (available: %s)",
			errNoCaptions, availableLanguages(tracks))
	}

	text, err := c.fetchTrack(ctx, track)
	if err != nil {
		return "", track, err
	}
	if text == "" {
		return "", track, errEmptyTrack
	}
	return text, track, nil
}

func (c *Client) tracksFromWatchPage(ctx context.Context, id domain.VideoID) ([]captionTrack, error) {
	header := http.Header{}
	header.Set("User-Agent", userAgentBrowser)
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	header.Set("Accept-Language", "en-US,en;q=0.9")
	header.Set("Cookie", "CONSENT=YES+cb")

	page, err := c.do(ctx, http.MethodGet, c.baseURL+"/watch?v="+string(id), nil, header, maxPageBytes)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	resp, err := extractPlayerResponse(page)
	if err != nil {
		return nil, err
	}
	return resp.captionTracks()
}

type playerRequest struct {
	VideoID        string        `json:"videoId"`
	Context        playerContext `json:"context"`
	RacyCheckOk    bool          `json:"racyCheckOk"`
	ContentCheckOk bool          `json:"contentCheckOk"`
}

type playerContext struct {
	Client playerClient `json:"client"`
}

type playerClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

func (c *Client) tracksFromPlayer(ctx context.Context, id domain.VideoID) ([]captionTrack, error) {
	body, err := json.Marshal(playerRequest{
		VideoID: string(id),
		Context: playerContext{Client: playerClient{
			ClientName:        "ANDROID",
			ClientVersion:     androidVersion,
			AndroidSdkVersion: 30,
			Hl:                "en",
			Gl:                "US",
		}},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("User-Agent", androidUA)
	header.Set("X-Youtube-Client-Name", "3")
	header.Set("X-Youtube-Client-Version", androidVersion)

	data, err := c.do(ctx, http.MethodPost, c.baseURL+"/youtubei/v1/player?prettyPrint=false", body, header, maxPageBytes)
	if err != nil {
		return nil, fmt.Errorf("innertube player: %w", err)
	}

	var resp playerResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}
	return resp.captionTracks()
}

func (c *Client) fetchTrack(ctx context.Context, track captionTrack) (string, error) {
	header := http.Header{}
	header.Set("User-Agent", userAgentBrowser)

	data, err := c.do(ctx, http.MethodGet, track.BaseURL, nil, header, maxCaptionBytes)
	if err != nil {
		return "", fmt.Errorf("timedtext: %w", err)
	}
	return parseTimedText(data)
}

func availableLanguages(tracks []captionTrack) string {
	langs := make([]string, 0, len(tracks))
	for _, t := range tracks {
		lang := t.LanguageCode
		if t.generated() {
			lang += "(auto)"
		}
		langs = append(langs, lang)
	}
	return strings.Join(langs, ",")
}

var _ ports.TranscriptSource = (*Client)(nil)
