package app

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/yourusername/tikdown-go/internal/domain"
	"go.uber.org/zap"
)

// errResolutionTimeout is the cause attached to the resolution deadline
var errResolutionTimeout = errors.New("resolution timed out")

// BrowserResolver resolves share links by watching a browser session's
// traffic for the video ID
type BrowserResolver struct {
	browser domain.Browser
	cookies domain.CookieStore
	logger  *zap.Logger
}

// NewBrowserResolver creates a resolver. cookies may be nil.
func NewBrowserResolver(browser domain.Browser, cookies domain.CookieStore, logger *zap.Logger) *BrowserResolver {
	return &BrowserResolver{
		browser: browser,
		cookies: cookies,
		logger:  logger,
	}
}

// Resolve implements domain.Resolver. It returns when the first outcome is
// committed or ctx ends, after the browser session has been closed.
func (r *BrowserResolver) Resolve(ctx context.Context, shareURL string) (string, error) {
	a := &attempt{
		cookies: r.cookies,
		done:    make(chan struct{}),
	}

	session, err := r.browser.Open(ctx, shareURL, a)
	if err != nil {
		if ctx.Err() != nil {
			a.commit(outcomeFromContext(ctx))
		} else {
			a.commit(domain.Outcome{Err: &domain.ResolveError{
				Reason:  domain.ReasonOther,
				Message: err.Error(),
				Err:     err,
			}})
		}
		return a.outcome.Result()
	}

	select {
	case <-a.done:
	case <-ctx.Done():
		a.commit(outcomeFromContext(ctx))
	}

	a.teardown.Do(func() {
		if err := session.Close(); err != nil {
			r.logger.Debug("Failed to close browser session", zap.Error(err))
		}
	})

	videoID, err := a.outcome.Result()
	if err != nil {
		r.logger.Debug("Resolution attempt failed",
			zap.String("url", shareURL),
			zap.String("reason", string(domain.ReasonOf(err))))
	}
	return videoID, err
}

// outcomeFromContext maps an ended context to the outcome it implies
func outcomeFromContext(ctx context.Context) domain.Outcome {
	cause := context.Cause(ctx)
	if errors.Is(cause, errResolutionTimeout) || errors.Is(cause, context.DeadlineExceeded) {
		return domain.Outcome{Err: &domain.ResolveError{
			Reason: domain.ReasonTimedOut,
			Err:    context.DeadlineExceeded,
		}}
	}
	return domain.Outcome{Err: &domain.ResolveError{
		Reason: domain.ReasonCancelled,
		Err:    context.Canceled,
	}}
}

// attempt is the BrowserHandler of one resolution. The first committed
// outcome wins; later signals are dropped.
type attempt struct {
	cookies domain.CookieStore

	gate     sync.Once
	done     chan struct{}
	outcome  domain.Outcome
	teardown sync.Once
}

// commit stores o unless an outcome already exists
func (a *attempt) commit(o domain.Outcome) bool {
	committed := false
	a.gate.Do(func() {
		a.outcome = o
		committed = true
		close(a.done)
	})
	return committed
}

func (a *attempt) committed() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

func (a *attempt) OnNavigation(url string) bool {
	if a.committed() {
		return false
	}
	if o, ok := domain.MatchNavigation(url); ok {
		a.commit(o)
		return false
	}
	return domain.AllowNavigation(url)
}

func (a *attempt) OnResource(url string) {
	if a.committed() {
		return
	}
	if o, ok := domain.MatchResource(url); ok {
		a.commit(o)
	}
}

func (a *attempt) OnPageLoaded(cookies []*http.Cookie) {
	if a.committed() || a.cookies == nil || len(cookies) == 0 {
		return
	}
	a.cookies.StoreCookies(cookies)
}

func (a *attempt) OnError(err error) {
	a.commit(domain.Outcome{Err: &domain.ResolveError{
		Reason:  domain.ReasonOther,
		Message: err.Error(),
		Err:     err,
	}})
}
