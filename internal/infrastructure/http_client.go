package infrastructure

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// userAgentTransport stamps every request with a fixed User-Agent
type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// SessionClient is the HTTP client shared by verification and download.
// Cookies collected by the browser are fed into its jar.
type SessionClient struct {
	client *http.Client
	jar    *cookiejar.Jar
}

// NewSessionClient creates a client that sends userAgent on every request.
// timeout bounds each whole request; zero disables it.
func NewSessionClient(userAgent string, timeout time.Duration) (*SessionClient, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	return &SessionClient{
		client: &http.Client{
			Jar:       jar,
			Timeout:   timeout,
			Transport: &userAgentTransport{userAgent: userAgent, base: base},
		},
		jar: jar,
	}, nil
}

// HTTPClient returns the underlying client
func (c *SessionClient) HTTPClient() *http.Client {
	return c.client
}

// StoreCookies implements domain.CookieStore
func (c *SessionClient) StoreCookies(cookies []*http.Cookie) {
	byOrigin := make(map[string][]*http.Cookie)
	for _, cookie := range cookies {
		host := strings.TrimPrefix(cookie.Domain, ".")
		if host == "" {
			continue
		}
		path := cookie.Path
		if path == "" {
			path = "/"
		}
		origin := (&url.URL{Scheme: "https", Host: host, Path: path}).String()
		byOrigin[origin] = append(byOrigin[origin], cookie)
	}

	for origin, group := range byOrigin {
		u, err := url.Parse(origin)
		if err != nil {
			continue
		}
		c.jar.SetCookies(u, group)
	}
}

// Cookies returns the cookies the jar would send to rawURL
func (c *SessionClient) Cookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return c.jar.Cookies(u)
}
