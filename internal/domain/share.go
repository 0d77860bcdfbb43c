package domain

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

var urlPattern = regexp.MustCompile(`https?://[\w-]+(\.[\w-]+)+([\w.,@?^=%&:/~+#-]*[\w@?^=%&/~+#-])?`)

// ExtractURLs returns every HTTP(S) URL found in text, in order of appearance.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

// LastURL returns the last URL in text. Share messages usually put prose and
// the app name before the link, so the last match is the one to follow.
func LastURL(text string) (string, bool) {
	urls := ExtractURLs(text)
	if len(urls) == 0 {
		return "", false
	}
	return urls[len(urls)-1], true
}

// DirectLink builds the playback URL for a video ID
func DirectLink(endpoint, videoID string) string {
	return endpoint + "?video_id=" + url.QueryEscape(videoID)
}

// SuggestFileName derives a file name from share text. Share messages carry
// the video title between the first pair of '#' characters.
func SuggestFileName(text, fallback string) string {
	name := ""
	if _, rest, ok := strings.Cut(text, "#"); ok {
		name, _, _ = strings.Cut(rest, "#")
	}
	name = SanitizeFileName(name)
	if name == "" {
		return fallback
	}
	return name
}

// SanitizeFileName strips path separators and control characters
func SanitizeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}
