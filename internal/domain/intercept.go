package domain

import "strings"

// URL markers observed while the share page runs its redirect logic
const (
	markerImageText      = "share/note/"
	markerSegmentedVideo = "share/slides/"
	markerCaptcha        = "/captcha/"
	markerContentRemoved = "aweme-server-static-resource/reflow_notice_icon"
	videoIDParam         = "video_id="
)

// MatchNavigation inspects a top-level navigation. It returns the failure the
// navigation implies, if any.
func MatchNavigation(rawURL string) (Outcome, bool) {
	switch {
	case strings.Contains(rawURL, markerImageText):
		return Failure(ReasonUnsupportedImageText), true
	case strings.Contains(rawURL, markerSegmentedVideo):
		return Failure(ReasonUnsupportedSegmentedVideo), true
	}
	return Outcome{}, false
}

// AllowNavigation reports whether the browser may follow a navigation.
// App deep links and other non-web schemes are suppressed.
func AllowNavigation(rawURL string) bool {
	return strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
}

// MatchResource inspects any request or response URL the page produces
func MatchResource(rawURL string) (Outcome, bool) {
	switch {
	case strings.Contains(rawURL, markerCaptcha):
		return Failure(ReasonCaptcha), true
	case strings.Contains(rawURL, markerContentRemoved):
		return Failure(ReasonContentRemoved), true
	}
	if id, ok := ExtractVideoID(rawURL); ok {
		return Success(id), true
	}
	return Outcome{}, false
}

// ExtractVideoID returns the value of the first video_id parameter in rawURL
func ExtractVideoID(rawURL string) (string, bool) {
	_, rest, ok := strings.Cut(rawURL, videoIDParam)
	if !ok {
		return "", false
	}
	id, _, _ := strings.Cut(rest, "&")
	if id == "" {
		return "", false
	}
	return id, true
}
