package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yourusername/tikdown-go/internal/domain"
	"go.uber.org/zap"
)

// HTTPVerifier probes direct links with a HEAD request
type HTTPVerifier struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewHTTPVerifier creates a verifier for links built from endpoint
func NewHTTPVerifier(client *http.Client, endpoint string, timeout time.Duration, logger *zap.Logger) *HTTPVerifier {
	return &HTTPVerifier{
		client:   client,
		endpoint: endpoint,
		timeout:  timeout,
		logger:   logger,
	}
}

// Verify implements domain.Verifier
func (v *HTTPVerifier) Verify(ctx context.Context, videoID string) (*domain.VideoInfo, error) {
	link := domain.DirectLink(v.endpoint, videoID)

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, &domain.ResolveError{Reason: domain.ReasonCancelled, Err: err}
		}
		return nil, &domain.ResolveError{
			Reason:  domain.ReasonOther,
			Message: "link probe failed",
			Err:     err,
		}
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		v.logger.Info("Direct link is not playable",
			zap.String("video_id", videoID),
			zap.Int("status", resp.StatusCode))
		return nil, &domain.UnplayableError{StatusCode: resp.StatusCode}
	}

	size := resp.ContentLength
	if size < 0 {
		size = 0
	}

	v.logger.Debug("Direct link verified",
		zap.String("video_id", videoID),
		zap.Int64("size", size))

	return &domain.VideoInfo{
		ID:         videoID,
		DirectLink: link,
		Size:       size,
	}, nil
}
