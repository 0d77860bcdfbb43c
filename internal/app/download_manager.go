package app

import (
	"context"
	"sync"

	"github.com/yourusername/tikdown-go/internal/domain"
	"go.uber.org/zap"
)

// DownloadManager runs at most one fetch job at a time in the background
type DownloadManager struct {
	pipeline *Pipeline
	logger   *zap.Logger
	baseCtx  context.Context

	mu     sync.Mutex
	active *activeJob
}

type activeJob struct {
	job    *Job
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDownloadManager creates a new download manager
func NewDownloadManager(pipeline *Pipeline, logger *zap.Logger) *DownloadManager {
	return &DownloadManager{
		pipeline: pipeline,
		logger:   logger,
		baseCtx:  context.Background(),
	}
}

// Start begins a fetch of input. It returns domain.ErrBusy while another
// job is running.
func (dm *DownloadManager) Start(input, name string) (*Job, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.active != nil {
		return nil, domain.ErrBusy
	}

	job, err := dm.pipeline.NewJob(input)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(dm.baseCtx)
	active := &activeJob{
		job:    job,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	dm.active = active

	record := job.Record()
	dm.logger.Info("Fetch started",
		zap.String("id", record.ID),
		zap.String("url", record.ShareURL))

	go dm.run(ctx, active, name)

	return job, nil
}

func (dm *DownloadManager) run(ctx context.Context, active *activeJob, name string) {
	defer close(active.done)
	defer active.cancel()

	err := dm.pipeline.Run(ctx, active.job, name)

	record := active.job.Record()
	if err != nil {
		dm.logger.Info("Fetch ended",
			zap.String("id", record.ID),
			zap.String("status", string(record.Status)),
			zap.Error(err))
	} else {
		dm.logger.Info("Fetch completed",
			zap.String("id", record.ID),
			zap.String("path", record.FilePath))
	}

	dm.mu.Lock()
	if dm.active == active {
		dm.active = nil
	}
	dm.mu.Unlock()
}

// Active returns the running job, if any
func (dm *DownloadManager) Active() (*Job, bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.active == nil {
		return nil, false
	}
	return dm.active.job, true
}

// Cancel stops the running job. It returns domain.ErrNoActiveDownload when
// there is none.
func (dm *DownloadManager) Cancel() error {
	dm.mu.Lock()
	active := dm.active
	dm.mu.Unlock()

	if active == nil {
		return domain.ErrNoActiveDownload
	}

	active.cancel()
	dm.logger.Info("Fetch cancelled", zap.String("id", active.job.Record().ID))
	return nil
}

// Wait blocks until the running job, if any, has finished or ctx ends
func (dm *DownloadManager) Wait(ctx context.Context) error {
	dm.mu.Lock()
	active := dm.active
	dm.mu.Unlock()

	if active == nil {
		return nil
	}

	select {
	case <-active.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels the running job and waits for it to clean up
func (dm *DownloadManager) Shutdown(ctx context.Context) error {
	if err := dm.Cancel(); err != nil {
		return nil
	}
	return dm.Wait(ctx)
}
