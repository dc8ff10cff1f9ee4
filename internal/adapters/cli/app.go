package cli

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/devbush/yt2text/internal/adapters/cache"
	"github.com/devbush/yt2text/internal/adapters/whisper"
	"github.com/devbush/yt2text/internal/adapters/youtube"
	"github.com/devbush/yt2text/internal/adapters/ytdlp"
	"github.com/devbush/yt2text/internal/application"
	"github.com/devbush/yt2text/internal/config"
	"github.com/devbush/yt2text/internal/domain"
	"github.com/devbush/yt2text/internal/ports"
)

// App holds all application dependencies
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Parser      domain.URLParser
	Store       ports.AudioStore
	Transcripts *youtube.Client
	Downloader  *ytdlp.Downloader
	Models      *whisper.Models
	ModelCache  *whisper.ModelCache
	Transcriber *whisper.Transcriber

	Resolver *application.Resolver
	CacheSvc *application.CacheService
}

// NewApp creates and wires up all dependencies
func NewApp(logger *slog.Logger) (*App, error) {
	if err := config.EnsureDirs(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}

	return newAppFromConfig(cfg, config.CacheDir(), config.ModelsDir(), config.BinDir(), logger)
}

func newAppFromConfig(cfg *config.Config, cacheDir, modelsDir, binDir string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ttl, err := cfg.GetCacheTTL()
	if err != nil {
		ttl = 7 * 24 * time.Hour
	}

	store := cache.NewAudioStore(cacheDir, ttl)

	ytOpts := []youtube.Option{
		youtube.WithLogger(logger.With(slog.String("component", "youtube"))),
		youtube.WithRateLimit(cfg.Network.RequestsPerSecond),
	}
	if d := cfg.NetworkTimeout(); d > 0 {
		ytOpts = append(ytOpts, youtube.WithTimeout(d))
	}
	transcripts := youtube.NewClient(ytOpts...)

	dlOpts := []ytdlp.Option{
		ytdlp.WithBinDir(binDir),
		ytdlp.WithLogger(logger.With(slog.String("component", "ytdlp"))),
		ytdlp.WithTimeout(cfg.DownloadTimeout()),
	}
	if cfg.Paths.YtDlp != "" {
		dlOpts = append(dlOpts, ytdlp.WithYtDlpPath(cfg.Paths.YtDlp))
	}
	if cfg.Paths.FFmpeg != "" {
		dlOpts = append(dlOpts, ytdlp.WithFFmpegPath(cfg.Paths.FFmpeg))
	}
	downloader := ytdlp.NewDownloader(dlOpts...)

	models := whisper.NewModels(modelsDir)
	whisperLog := logger.With(slog.String("component", "whisper"))
	loaderCfg := whisper.LoaderConfig{
		Models:       models,
		BinDir:       binDir,
		BinaryPath:   cfg.Paths.Whisper,
		Threads:      cfg.Whisper.Threads,
		AutoDownload: true,
		Logger:       whisperLog,
	}

	var loader ports.ModelLoader
	switch cfg.Whisper.Mode {
	case "server":
		loader = whisper.NewServerLoader(loaderCfg)
	default:
		loader = whisper.NewCLILoader(loaderCfg)
	}
	modelCache := whisper.NewModelCache(loader, whisperLog)
	transcriber := whisper.NewTranscriber(modelCache, cfg.InferenceTimeout(), whisperLog)

	parser := domain.URLParser{AllowAlternateForms: cfg.YouTube.AlternateURLForms}
	resolver := application.NewResolver(transcripts, downloader, transcriber, store,
		application.WithURLParser(parser),
		application.WithResultCache(cfg.Results.Size, cfg.ResultsTTL()),
		application.WithLogger(logger),
	)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Parser:      parser,
		Store:       store,
		Transcripts: transcripts,
		Downloader:  downloader,
		Models:      models,
		ModelCache:  modelCache,
		Transcriber: transcriber,
		Resolver:    resolver,
		CacheSvc:    application.NewCacheService(store),
	}, nil
}

// Close releases loaded models
func (a *App) Close() error {
	return a.ModelCache.Close()
}

// newLogger builds the stderr text logger: warn by default, debug when
// verbose, errors only when quiet
func newLogger(verbose, quiet bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

var globalApp *App

// GetApp returns the global app instance, creating it if needed
func GetApp() (*App, error) {
	if globalApp == nil {
		logger := newLogger(verboseFlag, quietFlag)
		slog.SetDefault(logger)

		app, err := NewApp(logger)
		if err != nil {
			return nil, err
		}
		globalApp = app
	}
	return globalApp, nil
}

// closeApp shuts down the global app if one was created
func closeApp() {
	if globalApp == nil {
		return
	}
	if err := globalApp.Close(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		globalApp.Logger.Warn("shutdown: failed to release models", slog.Any("err", err))
	}
	globalApp = nil
}
