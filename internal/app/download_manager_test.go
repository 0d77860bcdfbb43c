package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/tikdown-go/internal/domain"
	"go.uber.org/zap"
)

func newTestManager(f *pipelineFixture) *DownloadManager {
	return NewDownloadManager(f.pipeline(), zap.NewNop())
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestDownloadManager_RunsJob(t *testing.T) {
	f := newFixture(navigate(shareURL, playURL))
	dm := newTestManager(f)

	job, err := dm.Start(scenarioInput, "clip")
	require.NoError(t, err)
	require.NotNil(t, job)

	require.NoError(t, dm.Wait(waitCtx(t)))

	assert.Equal(t, domain.StatusCompleted, job.Record().Status)
	assert.Eventually(t, func() bool {
		_, ok := dm.Active()
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestDownloadManager_Busy(t *testing.T) {
	f := newFixture(navigate(shareURL, playURL))
	f.downloader.block = true
	dm := newTestManager(f)

	first, err := dm.Start(scenarioInput, "clip")
	require.NoError(t, err)

	_, err = dm.Start(scenarioInput, "other")
	assert.ErrorIs(t, err, domain.ErrBusy)

	active, ok := dm.Active()
	require.True(t, ok)
	assert.Equal(t, first.Record().ID, active.Record().ID)

	require.Eventually(t, func() bool {
		return first.Record().Status == domain.StatusDownloading
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, dm.Cancel())
	require.NoError(t, dm.Wait(waitCtx(t)))

	assert.Equal(t, domain.StatusCancelled, first.Record().Status)
	assert.Contains(t, f.notifier.Kinds(), domain.MessageDownloadCancelled)
}

func TestDownloadManager_StartAfterFinish(t *testing.T) {
	f := newFixture(navigate(shareURL, playURL))
	dm := newTestManager(f)

	_, err := dm.Start(scenarioInput, "one")
	require.NoError(t, err)
	require.NoError(t, dm.Wait(waitCtx(t)))

	assert.Eventually(t, func() bool {
		_, err := dm.Start(scenarioInput, "two")
		return err == nil
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, dm.Wait(waitCtx(t)))
}

func TestDownloadManager_CancelIdle(t *testing.T) {
	dm := newTestManager(newFixture(hang))

	assert.ErrorIs(t, dm.Cancel(), domain.ErrNoActiveDownload)
	assert.NoError(t, dm.Shutdown(waitCtx(t)))
}

func TestDownloadManager_InvalidInput(t *testing.T) {
	dm := newTestManager(newFixture(hang))

	_, err := dm.Start("nothing to see", "")
	assert.ErrorIs(t, err, domain.ErrNoURL)

	_, ok := dm.Active()
	assert.False(t, ok)
}

func TestDownloadManager_Shutdown(t *testing.T) {
	f := newFixture(hang)
	f.config.Resolver.Timeout = 10 * time.Second
	dm := newTestManager(f)

	job, err := dm.Start(scenarioInput, "clip")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.browser.Targets()) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, dm.Shutdown(waitCtx(t)))
	assert.Equal(t, domain.StatusCancelled, job.Record().Status)
	assert.Equal(t, int32(1), f.browser.closes.Load())
}
