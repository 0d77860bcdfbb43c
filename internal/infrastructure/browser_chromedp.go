package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yourusername/tikdown-go/internal/domain"
	"go.uber.org/zap"
)

// ChromeBrowser opens headless Chrome sessions through the DevTools protocol
type ChromeBrowser struct {
	config *domain.BrowserConfig
	logger *zap.Logger
}

// NewChromeBrowser creates a new Chrome-backed browser
func NewChromeBrowser(config *domain.BrowserConfig, logger *zap.Logger) *ChromeBrowser {
	return &ChromeBrowser{
		config: config,
		logger: logger,
	}
}

func (b *ChromeBrowser) allocatorOptions() []chromedp.ExecAllocatorOption {
	userAgent := b.config.UserAgent
	if userAgent == "" {
		userAgent = domain.DefaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.Flag("headless", b.config.Headless),
		chromedp.Flag("allow-running-insecure-content", true),
	)
	if b.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.config.ExecPath))
	}
	if b.config.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

// Open implements domain.Browser. It returns once the browser is ready and
// navigation to target has started; events are delivered to handler until
// the session is closed.
func (b *ChromeBrowser) Open(ctx context.Context, target string, handler domain.BrowserHandler) (domain.BrowserSession, error) {
	// Only Close tears the session down; ctx bounds startup alone.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), b.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &chromeSession{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		handler:     handler,
		logger:      b.logger,
	}

	chromedp.ListenTarget(tabCtx, s.onEvent)

	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx,
		network.Enable(),
		fetch.Enable().WithPatterns([]*fetch.RequestPattern{{
			URLPattern:   "*",
			ResourceType: network.ResourceTypeDocument,
			RequestStage: fetch.RequestStageRequest,
		}}),
	)
	stop()
	if err != nil {
		s.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	b.logger.Debug("Browser session started", zap.String("target", target))

	go func() {
		if err := chromedp.Run(tabCtx, chromedp.Navigate(target)); err != nil && tabCtx.Err() == nil {
			handler.OnError(fmt.Errorf("navigation failed: %w", err))
		}
	}()

	return s, nil
}

// chromeSession is one tab in its own browser process
type chromeSession struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	handler     domain.BrowserHandler
	logger      *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// onEvent runs on chromedp's event goroutine and must not block on CDP
// commands, so any follow-up command runs in its own goroutine.
func (s *chromeSession) onEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *fetch.EventRequestPaused:
		allow := s.handler.OnNavigation(ev.Request.URL)
		go s.decide(ev.RequestID, allow)
	case *network.EventRequestWillBeSent:
		s.handler.OnResource(ev.Request.URL)
	case *network.EventResponseReceived:
		s.handler.OnResource(ev.Response.URL)
	case *page.EventLoadEventFired:
		go s.flushCookies()
	}
}

func (s *chromeSession) executor() context.Context {
	return cdp.WithExecutor(s.tabCtx, chromedp.FromContext(s.tabCtx).Target)
}

func (s *chromeSession) decide(id fetch.RequestID, allow bool) {
	var err error
	if allow {
		err = fetch.ContinueRequest(id).Do(s.executor())
	} else {
		err = fetch.FailRequest(id, network.ErrorReasonAborted).Do(s.executor())
	}
	if err != nil && s.tabCtx.Err() == nil {
		s.logger.Debug("Failed to resolve paused request", zap.Bool("allow", allow), zap.Error(err))
	}
}

func (s *chromeSession) flushCookies() {
	cookies, err := network.GetCookies().Do(s.executor())
	if err != nil {
		if s.tabCtx.Err() == nil {
			s.logger.Debug("Failed to read browser cookies", zap.Error(err))
		}
		return
	}
	s.handler.OnPageLoaded(toHTTPCookies(cookies))
}

// Close implements domain.BrowserSession
func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.tabCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = err
		}
		s.tabCancel()
		s.allocCancel()
	})
	return s.closeErr
}

func toHTTPCookies(cookies []*network.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if !c.Session && c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, hc)
	}
	return out
}
