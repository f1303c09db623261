package app

import (
	"context"
	"errors"

	"storyreel/internal/align"
	"storyreel/internal/distribution"
	"storyreel/internal/history"
	"storyreel/internal/llm"
	"storyreel/internal/reddit"
	"storyreel/internal/speech"
	"storyreel/internal/storage"
	"storyreel/internal/subtitles"
	"storyreel/internal/video"
	"storyreel/pkg/config"
)

type PostSource interface {
	TopPosts(ctx context.Context, subreddit, period string, limit int) ([]reddit.Post, error)
}

// MediaTool is the encoder surface the pipeline needs on top of the
// reconciler's operations.
type MediaTool interface {
	video.Media
	ReplaceAudio(ctx context.Context, videoPath, audioPath, dst string) error
}

type Notifier interface {
	SendClip(ctx context.Context, videoPath, caption string) error
}

type RunRecorder interface {
	Start(ctx context.Context, postID, subreddit, title string) (*history.Run, error)
	Finish(ctx context.Context, id, videoPath string, runErr error) error
	Seen(ctx context.Context, postID string) (bool, error)
}

type Distributor interface {
	Distribute(ctx context.Context, req distribution.UploadRequest) map[string]distribution.Result
}

type Service struct {
	cfg         *config.Config
	posts       PostSource
	llm         llm.Summarizer
	tts         speech.Provider
	media       MediaTool
	reconciler  *video.Reconciler
	aligner     align.Aligner
	captions    *subtitles.Generator
	store       subtitles.Store
	background  storage.BackgroundProvider
	output      storage.Publisher
	notifier    Notifier
	history     RunRecorder
	distributor Distributor
	closers     []func() error
}

type ServiceOptions struct {
	Config      *config.Config
	Posts       PostSource
	LLM         llm.Summarizer
	TTS         speech.Provider
	Media       MediaTool
	Aligner     align.Aligner
	Captions    *subtitles.Generator
	Store       subtitles.Store
	Background  storage.BackgroundProvider
	Output      storage.Publisher
	Notifier    Notifier
	History     RunRecorder
	Distributor Distributor
	Closers     []func() error
}

func NewService(opts ServiceOptions) *Service {
	var reconciler *video.Reconciler
	if opts.Media != nil {
		reconciler = video.NewReconciler(opts.Media, opts.Config.Video.Tolerance).WithTempDir(opts.Config.Video.WorkDir)
	}
	store := opts.Store
	if store == nil {
		store = subtitles.NewASSFile()
	}

	return &Service{
		cfg:         opts.Config,
		posts:       opts.Posts,
		llm:         opts.LLM,
		tts:         opts.TTS,
		media:       opts.Media,
		reconciler:  reconciler,
		aligner:     opts.Aligner,
		captions:    opts.Captions,
		store:       store,
		background:  opts.Background,
		output:      opts.Output,
		notifier:    opts.Notifier,
		history:     opts.History,
		distributor: opts.Distributor,
		closers:     opts.Closers,
	}
}

func (s *Service) Config() *config.Config {
	return s.cfg
}

func (s *Service) Reconciler() *video.Reconciler {
	return s.reconciler
}

func (s *Service) Close() error {
	var errs []error
	for _, closeFn := range s.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}
