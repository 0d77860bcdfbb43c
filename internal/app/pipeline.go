package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/tikdown-go/internal/domain"
	"github.com/yourusername/tikdown-go/internal/infrastructure"
	"github.com/yourusername/tikdown-go/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Job is one fetch from share text to file. The pipeline updates it while
// other goroutines may read it.
type Job struct {
	mu       sync.RWMutex
	record   *domain.Record
	Progress *domain.Progress
}

func newJob(record *domain.Record) *Job {
	return &Job{
		record:   record,
		Progress: domain.NewProgress(),
	}
}

// Record returns a copy of the job's history record
func (j *Job) Record() domain.Record {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return *j.record
}

func (j *Job) update(fn func(r *domain.Record)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(j.record)
}

// Pipeline drives share text through resolution, verification and download,
// and decides what each failure means for the user
type Pipeline struct {
	resolver   domain.Resolver
	verifier   domain.Verifier
	downloader domain.Downloader
	notifier   domain.Notifier
	config     *domain.Config
	logger     *zap.Logger

	repo    domain.RecordRepository
	metrics *infrastructure.Metrics
	events  *logger.MultiLogger

	// One browser session at a time, process-wide
	resolveSem *semaphore.Weighted
}

// NewPipeline creates a new pipeline
func NewPipeline(
	resolver domain.Resolver,
	verifier domain.Verifier,
	downloader domain.Downloader,
	notifier domain.Notifier,
	config *domain.Config,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		resolver:   resolver,
		verifier:   verifier,
		downloader: downloader,
		notifier:   notifier,
		config:     config,
		logger:     logger,
		resolveSem: semaphore.NewWeighted(1),
	}
}

// WithRepository records every job in repo
func (p *Pipeline) WithRepository(repo domain.RecordRepository) *Pipeline {
	p.repo = repo
	return p
}

// WithMetrics records pipeline metrics
func (p *Pipeline) WithMetrics(metrics *infrastructure.Metrics) *Pipeline {
	p.metrics = metrics
	return p
}

// WithEventLogger writes lifecycle events to the categorized logs
func (p *Pipeline) WithEventLogger(events *logger.MultiLogger) *Pipeline {
	p.events = events
	return p
}

// Resolve turns share text into a verified video. Transient failures restart
// resolution from the same URL until success, a terminal failure, the retry
// limit, or cancellation.
func (p *Pipeline) Resolve(ctx context.Context, input string) (*domain.VideoInfo, error) {
	shareURL, ok := domain.LastURL(input)
	if !ok {
		p.notify(domain.MessageInvalidInput, "No share link found in the input", "")
		return nil, domain.ErrNoURL
	}
	return p.resolve(ctx, shareURL, nil)
}

func (p *Pipeline) resolve(ctx context.Context, shareURL string, job *Job) (*domain.VideoInfo, error) {
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return nil, outcomeFromContext(ctx).Err
		}
		if job != nil {
			job.update(func(r *domain.Record) { r.IncrementAttempt() })
		}

		info, err := p.attemptOnce(ctx, shareURL)
		if err == nil {
			info.ShareURL = shareURL
			p.notify(domain.MessageResolveSucceeded,
				fmt.Sprintf("Video %s (%s): %s", info.ID, domain.FormatSize(info.Size), info.DirectLink), "")
			p.event("Resolve succeeded",
				zap.String("url", shareURL),
				zap.String("video_id", info.ID),
				zap.Int64("size", info.Size),
				zap.Int("attempt", attempt))
			return info, nil
		}

		reason := domain.ReasonOf(err)

		switch domain.Classify(err) {
		case domain.KindCancelled:
			p.logger.Debug("Resolution cancelled", zap.String("url", shareURL))
			return nil, err

		case domain.KindTerminal:
			p.notify(domain.MessageResolveFailed, "Cannot download: "+reason.Description(), reason)
			p.event("Resolve failed", zap.String("url", shareURL), zap.String("reason", string(reason)))
			return nil, err

		case domain.KindUnplayable:
			p.notify(domain.MessageUnplayable, "This video is unsupported or cannot be played, it may be an ad", "")
			p.event("Video unplayable", zap.String("url", shareURL), zap.Error(err))
			return nil, err

		case domain.KindTransient:
			p.logger.Warn("Resolution attempt failed",
				zap.String("url", shareURL),
				zap.String("reason", string(reason)),
				zap.Int("attempt", attempt),
				zap.Error(err))

			if limit := p.config.Resolver.MaxRetries; limit > 0 && attempt > limit {
				p.notify(domain.MessageResolveFailed,
					fmt.Sprintf("Giving up after %d attempts: %s", attempt, reason.Description()), reason)
				p.event("Resolve failed", zap.String("url", shareURL), zap.String("reason", string(reason)), zap.Int("attempt", attempt))
				return nil, err
			}

			p.notify(domain.MessageResolveRetrying, "Resolve failed ("+reason.Description()+"), retrying", reason)
			if err := p.pause(ctx); err != nil {
				return nil, err
			}

		default:
			p.notify(domain.MessageResolveFailed, "Resolve failed: "+err.Error(), reason)
			p.appError("Resolve failed", zap.String("url", shareURL), zap.Error(err))
			return nil, err
		}
	}
}

// attemptOnce runs one guarded resolution followed by verification
func (p *Pipeline) attemptOnce(ctx context.Context, shareURL string) (*domain.VideoInfo, error) {
	start := time.Now()
	videoID, err := p.resolveGuarded(ctx, shareURL)
	p.metrics.ObserveResolution(domain.ReasonOf(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	p.logger.Info("Video ID resolved", zap.String("url", shareURL), zap.String("video_id", videoID))

	return p.verifier.Verify(ctx, videoID)
}

// resolveGuarded bounds one resolution by the resolver timeout, including
// the wait for the browser slot
func (p *Pipeline) resolveGuarded(ctx context.Context, shareURL string) (string, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, p.config.Resolver.Timeout, errResolutionTimeout)
	defer cancel()

	if err := p.resolveSem.Acquire(ctx, 1); err != nil {
		return "", outcomeFromContext(ctx).Err
	}
	defer p.resolveSem.Release(1)

	return p.resolver.Resolve(ctx, shareURL)
}

func (p *Pipeline) pause(ctx context.Context) error {
	delay := p.config.Resolver.RetryDelay
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return outcomeFromContext(ctx).Err
	}
}

// Download streams a verified video to storage under name
func (p *Pipeline) Download(ctx context.Context, info *domain.VideoInfo, name string, progress domain.ProgressFunc) (*domain.DownloadResult, error) {
	if name == "" {
		name = p.config.Download.DefaultName
	}

	p.metrics.DownloadStarted()
	result, err := p.downloader.Download(ctx, info.DirectLink, name, info.Size, progress)

	switch {
	case err == nil:
		p.metrics.DownloadFinished(domain.StatusCompleted, result.BytesWritten)
		p.notify(domain.MessageDownloadCompleted, "Saved to "+result.Location, "")
		p.event("Download completed",
			zap.String("video_id", info.ID),
			zap.String("path", result.Location),
			zap.Int64("bytes", result.BytesWritten),
			zap.String("content_type", result.ContentType))
		return result, nil

	case errors.Is(err, context.Canceled):
		p.metrics.DownloadFinished(domain.StatusCancelled, 0)
		p.notify(domain.MessageDownloadCancelled, "Download cancelled", "")
		p.event("Download cancelled", zap.String("video_id", info.ID))
		return nil, err

	default:
		p.metrics.DownloadFinished(domain.StatusFailed, 0)
		p.notify(domain.MessageDownloadFailed, "Download failed: "+err.Error(), "")
		p.appError("Download failed", zap.String("video_id", info.ID), zap.Error(err))
		return nil, err
	}
}

// NewJob starts tracking a fetch of input. It fails with domain.ErrNoURL
// when input has no link.
func (p *Pipeline) NewJob(input string) (*Job, error) {
	shareURL, ok := domain.LastURL(input)
	if !ok {
		p.notify(domain.MessageInvalidInput, "No share link found in the input", "")
		return nil, domain.ErrNoURL
	}

	job := newJob(domain.NewRecord(input, shareURL))
	if p.repo != nil {
		record := job.Record()
		if err := p.repo.Create(&record); err != nil {
			p.logger.Warn("Failed to create history record", zap.Error(err))
		}
	}
	return job, nil
}

// Run resolves and downloads a job. An empty name is derived from the
// share text.
func (p *Pipeline) Run(ctx context.Context, job *Job, name string) error {
	record := job.Record()
	if name == "" {
		name = domain.SuggestFileName(record.Input, p.config.Download.DefaultName)
	}

	info, err := p.resolve(ctx, record.ShareURL, job)
	if err != nil {
		p.finish(job, err)
		return err
	}

	job.update(func(r *domain.Record) {
		r.MarkResolved(info)
		r.MarkDownloading(name)
	})
	p.save(job)

	job.Progress.Reset()
	job.Progress.Update(0, info.Size)

	result, err := p.Download(ctx, info, name, job.Progress.Update)
	if err != nil {
		p.finish(job, err)
		return err
	}

	job.update(func(r *domain.Record) { r.MarkCompleted(result) })
	p.save(job)
	return nil
}

// Fetch runs the whole pipeline for input
func (p *Pipeline) Fetch(ctx context.Context, input, name string) (*Job, error) {
	job, err := p.NewJob(input)
	if err != nil {
		return nil, err
	}
	return job, p.Run(ctx, job, name)
}

func (p *Pipeline) finish(job *Job, err error) {
	job.update(func(r *domain.Record) {
		if domain.Classify(err) == domain.KindCancelled {
			r.MarkCancelled()
		} else {
			r.MarkFailed(err)
		}
	})
	p.save(job)
}

func (p *Pipeline) save(job *Job) {
	if p.repo == nil {
		return
	}
	record := job.Record()
	if err := p.repo.Update(&record); err != nil {
		p.logger.Warn("Failed to update history record", zap.String("id", record.ID), zap.Error(err))
	}
}

func (p *Pipeline) notify(kind domain.MessageKind, text string, reason domain.FailureReason) {
	if p.notifier == nil {
		return
	}
	p.notifier.Notify(domain.Message{Kind: kind, Text: text, Reason: reason})
}

func (p *Pipeline) event(msg string, fields ...zap.Field) {
	p.logger.Info(msg, fields...)
	if p.events != nil {
		p.events.LogPipelineEvent(msg, fields...)
	}
}

func (p *Pipeline) appError(msg string, fields ...zap.Field) {
	p.logger.Error(msg, fields...)
	if p.events != nil {
		p.events.LogAppError(msg, fields...)
	}
}
