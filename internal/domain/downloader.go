package domain

import (
	"context"
	"io"
	"net/http"
)

// BrowserHandler receives the network activity of a browser session.
// Callbacks may arrive concurrently and in any order.
type BrowserHandler interface {
	// OnNavigation is called for every top-level navigation request.
	// Returning false suppresses the navigation.
	OnNavigation(url string) bool

	// OnResource is called for every request and response URL the page produces
	OnResource(url string)

	// OnPageLoaded is called when a page finishes loading, with the cookies
	// the session holds at that point
	OnPageLoaded(cookies []*http.Cookie)

	// OnError reports a failure of the session itself
	OnError(err error)
}

// BrowserSession is a live, single-use browser instance
type BrowserSession interface {
	Close() error
}

// Browser opens sessions that navigate to a URL and report their traffic
type Browser interface {
	Open(ctx context.Context, target string, handler BrowserHandler) (BrowserSession, error)
}

// CookieStore receives cookies collected by the browser so later HTTP
// requests share the session
type CookieStore interface {
	StoreCookies(cookies []*http.Cookie)
}

// VideoInfo describes a resolved and verified video
type VideoInfo struct {
	ID         string `json:"video_id"`
	ShareURL   string `json:"share_url"`
	DirectLink string `json:"direct_link"`
	Size       int64  `json:"size"`
}

// Resolver turns a share URL into a video ID
type Resolver interface {
	Resolve(ctx context.Context, shareURL string) (string, error)
}

// Verifier probes the direct link for a video ID
type Verifier interface {
	Verify(ctx context.Context, videoID string) (*VideoInfo, error)
}

// DownloadHandle is a destination resource that exists before any bytes are
// written, so it can be removed if the transfer is abandoned
type DownloadHandle interface {
	io.WriteCloser

	// Location identifies the resource, e.g. its file path
	Location() string

	// Remove deletes the resource
	Remove() error
}

// Storage allocates destination resources
type Storage interface {
	Allocate(displayName string) (DownloadHandle, error)
}

// Downloader streams a direct link into storage
type Downloader interface {
	Download(ctx context.Context, link, name string, total int64, progress ProgressFunc) (*DownloadResult, error)
}

// DownloadResult represents the result of a download operation
type DownloadResult struct {
	Handle       DownloadHandle
	Location     string
	BytesWritten int64
	ContentType  string
}
