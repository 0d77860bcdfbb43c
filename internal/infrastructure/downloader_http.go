package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/h2non/filetype"
	"github.com/yourusername/tikdown-go/internal/domain"
	"go.uber.org/zap"
)

const chunkSize = 32 * 1024

// HTTPDownloader streams direct links into storage
type HTTPDownloader struct {
	client    *http.Client
	storage   domain.Storage
	extension string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewHTTPDownloader creates a downloader. extension is appended to every
// destination name; timeout bounds the whole transfer.
func NewHTTPDownloader(client *http.Client, storage domain.Storage, extension string, timeout time.Duration, logger *zap.Logger) *HTTPDownloader {
	return &HTTPDownloader{
		client:    client,
		storage:   storage,
		extension: extension,
		timeout:   timeout,
		logger:    logger,
	}
}

// Download implements domain.Downloader. The destination is allocated before
// the request is sent; it is removed only when ctx is cancelled before the
// transfer completes.
func (d *HTTPDownloader) Download(ctx context.Context, link, name string, total int64, progress domain.ProgressFunc) (result *domain.DownloadResult, err error) {
	handle, err := d.storage.Allocate(name + d.extension)
	if err != nil {
		var storageErr *domain.StorageError
		if !errors.As(err, &storageErr) {
			err = &domain.StorageError{Name: name + d.extension, Err: err}
		}
		return nil, err
	}

	completed := false
	defer func() {
		if completed {
			return
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			if rmErr := handle.Remove(); rmErr != nil {
				d.logger.Warn("Failed to remove cancelled download",
					zap.String("path", handle.Location()),
					zap.Error(rmErr))
			}
			result = nil
			err = fmt.Errorf("download cancelled: %w", ctx.Err())
			return
		}
		handle.Close()
	}()

	dlCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		dlCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(dlCtx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if total <= 0 && resp.ContentLength > 0 {
		total = resp.ContentLength
	}

	d.logger.Debug("Download started",
		zap.String("path", handle.Location()),
		zap.Int64("total", total))

	contentType := resp.Header.Get("Content-Type")
	written, err := d.copyChunks(dlCtx, handle, resp.Body, total, progress, func(head []byte) {
		if kind, matchErr := filetype.Match(head); matchErr == nil && kind != filetype.Unknown {
			contentType = kind.MIME.Value
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write video: %w", err)
	}

	if err := handle.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize %s: %w", handle.Location(), err)
	}
	completed = true

	return &domain.DownloadResult{
		Handle:       handle,
		Location:     handle.Location(),
		BytesWritten: written,
		ContentType:  contentType,
	}, nil
}

// copyChunks copies src to dst, reporting progress after every chunk.
// sniff is called once with the first chunk.
func (d *HTTPDownloader) copyChunks(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress domain.ProgressFunc, sniff func([]byte)) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	first := true

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if first {
				sniff(buf[:n])
				first = false
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			if progress != nil && ctx.Err() == nil {
				progress(written, max(total, written))
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
