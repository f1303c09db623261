package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storyreel/internal/distribution"
	"storyreel/internal/llm"
	"storyreel/internal/reddit"
	"storyreel/internal/speech"
	"storyreel/internal/subtitles"
	"storyreel/internal/video"
)

type Pipeline struct {
	service *Service
	now     func() time.Time
}

type GenerateOptions struct {
	// Subreddit overrides the random pick from the configured list.
	Subreddit  string
	Distribute bool
	Notify     bool
}

type GenerateResult struct {
	RunID         string
	Post          reddit.Post
	Title         string
	Script        string
	VideoPath     string
	Duration      float64
	Strategy      video.Strategy
	Captions      int
	NotifyErr     error
	Distributions map[string]distribution.Result
}

func NewPipeline(service *Service) *Pipeline {
	return &Pipeline{service: service, now: time.Now}
}

// Generate turns one forum post into a captioned clip. The run is recorded
// in history whatever the outcome; only the published clip survives the run
// workspace.
func (p *Pipeline) Generate(ctx context.Context, opts GenerateOptions) (result *GenerateResult, err error) {
	cfg := p.service.cfg

	post, err := p.selectPost(ctx, opts.Subreddit)
	if err != nil {
		return nil, err
	}

	result = &GenerateResult{Post: *post, Title: titleCase(post.Title)}

	if p.service.history != nil {
		run, startErr := p.service.history.Start(ctx, post.ID, post.Subreddit, post.Title)
		if startErr != nil {
			return nil, fmt.Errorf("record run: %w", startErr)
		}
		result.RunID = run.ID
		defer func() {
			// Recorded with a fresh context so a cancelled run is still marked failed.
			if finishErr := p.service.history.Finish(context.WithoutCancel(ctx), run.ID, result.VideoPath, err); finishErr != nil {
				slog.Error("Failed to record run", "run", run.ID, "error", finishErr)
			}
		}()
	}

	ws, err := newWorkspace(cfg.Video.WorkDir, p.now())
	if err != nil {
		return result, err
	}
	defer ws.remove()

	if err := p.produce(ctx, ws, post, result); err != nil {
		return result, err
	}

	if opts.Notify {
		p.notify(ctx, result)
	}
	if opts.Distribute {
		p.distribute(ctx, post, result)
	}

	slog.Info("Clip ready", "path", result.VideoPath, "duration", result.Duration, "title", result.Title)
	return result, nil
}

func (p *Pipeline) selectPost(ctx context.Context, subreddit string) (*reddit.Post, error) {
	cfg := p.service.cfg
	if subreddit == "" {
		subreddit = reddit.RandomSubreddit(cfg.Reddit.Subreddits)
	}

	slog.Info("Fetching Reddit posts", "subreddit", subreddit, "period", cfg.Reddit.Period)
	posts, err := p.service.posts.TopPosts(ctx, subreddit, cfg.Reddit.Period, cfg.Reddit.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch reddit posts: %w", err)
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("no text posts found in r/%s", subreddit)
	}

	post, err := pickPost(ctx, p.service.history, posts)
	if err != nil {
		return nil, fmt.Errorf("r/%s: %w", subreddit, err)
	}

	slog.Info("Selected post", "id", post.ID, "title", post.Title, "score", post.Score)
	return post, nil
}

func (p *Pipeline) produce(ctx context.Context, ws *workspace, post *reddit.Post, result *GenerateResult) error {
	cfg := p.service.cfg
	media := p.service.media

	slog.Info("Summarizing story...")
	script, err := p.service.llm.Summarize(ctx, llm.SummarizeRequest{
		Datasource: datasourceReddit,
		Text:       storyText(post),
		Style:      cfg.LLM.Style,
		Tone:       cfg.LLM.Tone,
		Theme:      cfg.LLM.Theme,
		Seconds:    int(cfg.LLM.Seconds),
	})
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	if strings.TrimSpace(script) == "" {
		return errors.New("summarize: empty script")
	}
	result.Script = script

	slog.Info("Synthesizing speech...", "provider", p.service.tts.Name(), "length", len(script))
	audio, err := p.service.tts.Synthesize(ctx, script)
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}
	audioPath, err := speech.WriteFile(ws.dir, "speech", audio)
	if err != nil {
		return err
	}

	speechDuration, err := media.Probe(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("probe speech: %w", err)
	}
	target := speechDuration + cfg.Video.Padding

	background, err := p.service.background.Background(ctx)
	if err != nil {
		return fmt.Errorf("background clip: %w", err)
	}

	fitted, err := p.service.reconciler.Reconcile(ctx, background, target, ws.backgroundPath())
	if err != nil {
		return fmt.Errorf("fit background: %w", err)
	}
	result.Strategy = fitted.Strategy
	result.Duration = fitted.Target

	if err := media.ReplaceAudio(ctx, ws.backgroundPath(), audioPath, ws.narratedPath()); err != nil {
		return fmt.Errorf("add narration: %w", err)
	}

	slog.Info("Aligning speech...")
	chunks, err := p.service.aligner.Align(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("align speech: %w", err)
	}

	track, err := p.writeCaptions(chunks, ws.captionsPath())
	if err != nil {
		return err
	}
	result.Captions = len(track.Events)

	if err := media.Burn(ctx, ws.narratedPath(), ws.captionsPath(), ws.finalPath()); err != nil {
		return fmt.Errorf("burn captions: %w", err)
	}

	published, err := p.service.output.Publish(ctx, ws.finalPath(), ws.outputName(post.Title))
	if err != nil {
		return fmt.Errorf("publish clip: %w", err)
	}
	result.VideoPath = published
	return nil
}

// writeCaptions lays out the aligned chunks. Phrase-level captions are
// wrapped to the configured line length; word-level ones are already short.
func (p *Pipeline) writeCaptions(chunks []subtitles.TimedChunk, path string) (*subtitles.Track, error) {
	captions := p.service.cfg.Captions
	track, err := p.service.captions.Generate(chunks, captions.IsWordLevel())
	if err != nil {
		return nil, fmt.Errorf("generate captions: %w", err)
	}

	if !captions.IsWordLevel() {
		adj := subtitles.DefaultAdjustments()
		adj.MinDuration = captions.MinDuration
		adj.Split = true
		adj.MaxLength = captions.MaxLength
		report := track.Apply(adj)
		slog.Debug("Captions adjusted", "lengthened", report.Lengthened, "split", report.Split)
	}

	if err := p.service.store.Save(path, track); err != nil {
		return nil, err
	}
	return track, nil
}

// notify is best effort: the clip is already published, so a messaging
// failure is reported on the result instead of failing the run.
func (p *Pipeline) notify(ctx context.Context, result *GenerateResult) {
	if p.service.notifier == nil {
		result.NotifyErr = errors.New("telegram not configured")
		return
	}
	if err := p.service.notifier.SendClip(ctx, result.VideoPath, result.Title); err != nil {
		slog.Error("Failed to send clip to Telegram", "error", err)
		result.NotifyErr = err
	}
}

func (p *Pipeline) distribute(ctx context.Context, post *reddit.Post, result *GenerateResult) {
	if p.service.distributor == nil {
		return
	}
	cfg := p.service.cfg
	result.Distributions = p.service.distributor.Distribute(ctx, distribution.UploadRequest{
		FilePath:    result.VideoPath,
		Title:       result.Title,
		Description: uploadDescription(post),
		Tags:        cfg.Distribution.Tags,
		Privacy:     cfg.YouTube.PrivacyStatus,
	})
}
