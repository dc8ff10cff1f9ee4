package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/devbush/yt2text/internal/domain"
	"github.com/devbush/yt2text/internal/ports"
)

// DefaultModelSize is used when ResolveOptions.ModelSize is empty
const DefaultModelSize = "small"

// Stage is a step of a single resolution, reported through OnStage
type Stage int

const (
	StageTranscript Stage = iota + 1
	StageDownload
	StageTranscribe
)

func (s Stage) String() string {
	switch s {
	case StageTranscript:
		return "Fetching transcript"
	case StageDownload:
		return "Downloading audio"
	case StageTranscribe:
		return "Transcribing audio"
	default:
		return "Unknown"
	}
}

// ResolveOptions configures one resolution
type ResolveOptions struct {
	ModelSize     string
	Language      string
	ForceDownload bool // re-download audio even if cached; also skips the result cache
	KeepAudio     bool // keep downloaded audio after transcription
	OnStage       func(Stage)
}

func (o ResolveOptions) withDefaults() ResolveOptions {
	if o.ModelSize == "" {
		o.ModelSize = DefaultModelSize
	}
	if o.Language == "" {
		o.Language = domain.DefaultLanguage
	}
	return o
}

func (o ResolveOptions) stage(s Stage) {
	if o.OnStage != nil {
		o.OnStage(s)
	}
}

// Resolver turns a video URL into a transcript: existing captions first,
// then audio download and speech recognition. Each call is one forward pass.
type Resolver struct {
	parser      domain.URLParser
	transcripts ports.TranscriptSource
	audio       ports.AudioFetcher
	speech      ports.SpeechTranscriber
	store       ports.AudioStore
	results     *expirable.LRU[string, domain.TranscriptResult]
	logger      *slog.Logger
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithURLParser replaces the default canonical-only URL parser
func WithURLParser(p domain.URLParser) ResolverOption {
	return func(r *Resolver) { r.parser = p }
}

// WithResultCache remembers found transcripts in memory. size <= 0 disables it.
func WithResultCache(size int, ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if size <= 0 {
			r.results = nil
			return
		}
		r.results = expirable.NewLRU[string, domain.TranscriptResult](size, nil, ttl)
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver over the given collaborators
func NewResolver(
	transcripts ports.TranscriptSource,
	audio ports.AudioFetcher,
	speech ports.SpeechTranscriber,
	store ports.AudioStore,
	opts ...ResolverOption,
) *Resolver {
	r := &Resolver{
		transcripts: transcripts,
		audio:       audio,
		speech:      speech,
		store:       store,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func resultKey(id domain.VideoID, opts ResolveOptions) string {
	return string(id) + "|" + opts.Language + "|" + opts.ModelSize
}

// Resolve returns the transcript for rawURL. A missing caption track is not
// an error; failures to parse, download, load the model or transcribe are
// returned as *domain.ResolveError.
func (r *Resolver) Resolve(ctx context.Context, rawURL string, opts ResolveOptions) (*domain.TranscriptResult, error) {
	opts = opts.withDefaults()

	id, err := r.parser.Parse(rawURL)
	if err != nil {
		return nil, &domain.ResolveError{URL: rawURL, Kind: domain.KindInvalidURL, Err: err}
	}

	log := r.logger.With(slog.String("video_id", string(id)))
	key := resultKey(id, opts)

	if r.results != nil && !opts.ForceDownload {
		if cached, ok := r.results.Get(key); ok {
			log.Debug("resolve: result cache hit")
			return &cached, nil
		}
	}

	opts.stage(StageTranscript)
	if text, ok := r.transcripts.Fetch(ctx, id, opts.Language); ok && strings.TrimSpace(text) != "" {
		result := domain.Found(id, text, domain.SourceTranscriptAPI, opts.Language)
		r.remember(key, result)
		return result, nil
	}
	log.Info("resolve: no transcript, falling back to speech model", slog.String("model", opts.ModelSize))

	opts.stage(StageDownload)
	artifact, err := r.audio.Download(ctx, id.WatchURL(), id, r.store.Dir(), opts.ForceDownload)
	if err != nil {
		return nil, &domain.ResolveError{URL: rawURL, VideoID: id, Kind: domain.KindDownloadFailed, Err: err}
	}
	if !opts.KeepAudio {
		defer r.discardAudio(ctx, log, id)
	}

	opts.stage(StageTranscribe)
	text, err := r.speech.Transcribe(ctx, artifact, opts.ModelSize)
	if err != nil {
		kind := domain.KindTranscriptionFailed
		if errors.Is(err, domain.ErrModelLoadFailed) {
			kind = domain.KindModelLoadFailed
		}
		return nil, &domain.ResolveError{URL: rawURL, VideoID: id, Kind: kind, Err: err}
	}

	if strings.TrimSpace(text) == "" {
		log.Warn("resolve: speech model produced no text", slog.String("model", opts.ModelSize))
		return domain.NotFound(id), nil
	}

	result := domain.Found(id, text, domain.SourceSpeechModel, "")
	result.Model = opts.ModelSize
	r.remember(key, result)
	return result, nil
}

func (r *Resolver) remember(key string, result *domain.TranscriptResult) {
	if r.results != nil && result.Found {
		r.results.Add(key, *result)
	}
}

func (r *Resolver) discardAudio(ctx context.Context, log *slog.Logger, id domain.VideoID) {
	if err := r.store.Remove(context.WithoutCancel(ctx), id); err != nil {
		log.Warn("resolve: failed to remove audio", slog.Any("err", err))
	}
}
