package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoURL is returned when the input contains no HTTP(S) link
	ErrNoURL = errors.New("no share link found in input")

	// ErrUnplayable is returned when the direct link does not serve a video
	ErrUnplayable = errors.New("video is unsupported or cannot be played")

	// ErrBusy is returned when a fetch is already running
	ErrBusy = errors.New("another download is already in progress")

	// ErrNoActiveDownload is returned when there is nothing to cancel or inspect
	ErrNoActiveDownload = errors.New("no download in progress")
)

// FailureReason identifies why a resolution attempt failed
type FailureReason string

const (
	ReasonUnsupportedImageText      FailureReason = "unsupported_image_text"
	ReasonUnsupportedSegmentedVideo FailureReason = "unsupported_segmented_video"
	ReasonContentRemoved            FailureReason = "content_removed"
	ReasonCaptcha                   FailureReason = "captcha"
	ReasonCancelled                 FailureReason = "cancelled"
	ReasonTimedOut                  FailureReason = "timed_out"
	ReasonOther                     FailureReason = "other"
)

// Terminal reports whether the failure is inherent to the content.
// Retrying a terminal failure cannot succeed.
func (r FailureReason) Terminal() bool {
	switch r {
	case ReasonUnsupportedImageText, ReasonUnsupportedSegmentedVideo, ReasonContentRemoved:
		return true
	}
	return false
}

// Transient reports whether the pipeline should start over
func (r FailureReason) Transient() bool {
	return !r.Terminal() && r != ReasonCancelled
}

// Description returns a user-facing explanation
func (r FailureReason) Description() string {
	switch r {
	case ReasonUnsupportedImageText:
		return "image-text posts are not supported"
	case ReasonUnsupportedSegmentedVideo:
		return "segmented videos are not supported"
	case ReasonContentRemoved:
		return "the video is no longer available"
	case ReasonCaptcha:
		return "a captcha was shown"
	case ReasonCancelled:
		return "cancelled"
	case ReasonTimedOut:
		return "timed out"
	default:
		return "unexpected error"
	}
}

// ResolveError is the failure side of a resolution outcome
type ResolveError struct {
	Reason  FailureReason
	Message string
	Err     error
}

// NewResolveError creates a resolve error with no detail message
func NewResolveError(reason FailureReason) *ResolveError {
	return &ResolveError{Reason: reason}
}

func (e *ResolveError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("resolve failed (%s): %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("resolve failed (%s)", e.Reason)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Outcome is the single result of one resolution attempt
type Outcome struct {
	VideoID string
	Err     *ResolveError
}

// Success creates a successful outcome
func Success(videoID string) Outcome {
	return Outcome{VideoID: videoID}
}

// Failure creates a failed outcome
func Failure(reason FailureReason) Outcome {
	return Outcome{Err: NewResolveError(reason)}
}

// Result splits the outcome into the usual Go pair
func (o Outcome) Result() (string, error) {
	if o.Err != nil {
		return "", o.Err
	}
	return o.VideoID, nil
}

// UnplayableError carries the status returned by the link probe
type UnplayableError struct {
	StatusCode int
}

func (e *UnplayableError) Error() string {
	return fmt.Sprintf("%s (status %d)", ErrUnplayable, e.StatusCode)
}

func (e *UnplayableError) Is(target error) bool {
	return target == ErrUnplayable
}

// StorageError is returned when the destination cannot be allocated
type StorageError struct {
	Name string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to allocate %q: %v", e.Name, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ErrorKind groups errors by how the pipeline reacts to them
type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindInput      ErrorKind = "input"
	KindTerminal   ErrorKind = "terminal"
	KindTransient  ErrorKind = "transient"
	KindCancelled  ErrorKind = "cancelled"
	KindUnplayable ErrorKind = "unplayable"
	KindStorage    ErrorKind = "storage"
	KindIO         ErrorKind = "io"
)

// Classify maps any pipeline error to its kind
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var resolveErr *ResolveError
	var storageErr *StorageError

	switch {
	case errors.Is(err, ErrNoURL):
		return KindInput
	case errors.As(err, &resolveErr):
		switch {
		case resolveErr.Reason == ReasonCancelled:
			return KindCancelled
		case resolveErr.Reason.Terminal():
			return KindTerminal
		default:
			return KindTransient
		}
	case errors.Is(err, ErrUnplayable):
		return KindUnplayable
	case errors.As(err, &storageErr):
		return KindStorage
	case errors.Is(err, context.Canceled):
		return KindCancelled
	default:
		return KindIO
	}
}

// ReasonOf returns the failure reason carried by err, if any
func ReasonOf(err error) FailureReason {
	var resolveErr *ResolveError
	if errors.As(err, &resolveErr) {
		return resolveErr.Reason
	}
	return ""
}
