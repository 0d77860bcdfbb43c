package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourusername/tikdown-go/internal/domain"
)

// script drives a fake browser session
type script func(h domain.BrowserHandler)

// navigate simulates a top-level navigation followed by its resources
func navigate(url string, resources ...string) script {
	return func(h domain.BrowserHandler) {
		if !h.OnNavigation(url) {
			return
		}
		h.OnResource(url)
		for _, r := range resources {
			h.OnResource(r)
		}
	}
}

// hang never commits anything
func hang(h domain.BrowserHandler) {}

// scriptedBrowser runs one script per Open call; the last script repeats
type scriptedBrowser struct {
	mu      sync.Mutex
	scripts []script
	targets []string
	openErr error

	closes    atomic.Int32
	live      atomic.Int32
	maxLive   atomic.Int32
	openDelay time.Duration
}

func newScriptedBrowser(scripts ...script) *scriptedBrowser {
	return &scriptedBrowser{scripts: scripts}
}

func (b *scriptedBrowser) Open(ctx context.Context, target string, h domain.BrowserHandler) (domain.BrowserSession, error) {
	b.mu.Lock()
	idx := len(b.targets)
	b.targets = append(b.targets, target)
	b.mu.Unlock()

	if b.openErr != nil {
		return nil, b.openErr
	}

	live := b.live.Add(1)
	for {
		prev := b.maxLive.Load()
		if live <= prev || b.maxLive.CompareAndSwap(prev, live) {
			break
		}
	}

	if b.openDelay > 0 {
		time.Sleep(b.openDelay)
	}

	s := b.scripts[min(idx, len(b.scripts)-1)]
	go s(h)

	return &fakeSession{browser: b}, nil
}

func (b *scriptedBrowser) Targets() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.targets...)
}

type fakeSession struct {
	browser *scriptedBrowser
	closed  atomic.Int32
}

func (s *fakeSession) Close() error {
	if s.closed.Add(1) == 1 {
		s.browser.live.Add(-1)
	}
	s.browser.closes.Add(1)
	return nil
}

// fakeVerifier reports a fixed size for every ID, or a fixed error
type fakeVerifier struct {
	size int64
	err  error
}

func (v *fakeVerifier) Verify(ctx context.Context, videoID string) (*domain.VideoInfo, error) {
	if v.err != nil {
		return nil, v.err
	}
	return &domain.VideoInfo{
		ID:         videoID,
		DirectLink: domain.DirectLink(domain.DefaultPlayEndpoint, videoID),
		Size:       v.size,
	}, nil
}

// fakeDownloader reports progress in chunks, optionally blocking until ctx ends
type fakeDownloader struct {
	chunks []int64
	block  bool
	err    error

	mu    sync.Mutex
	names []string
	links []string
}

func (d *fakeDownloader) Download(ctx context.Context, link, name string, total int64, progress domain.ProgressFunc) (*domain.DownloadResult, error) {
	d.mu.Lock()
	d.names = append(d.names, name)
	d.links = append(d.links, link)
	d.mu.Unlock()

	var written int64
	for _, c := range d.chunks {
		written += c
		if progress != nil {
			progress(written, total)
		}
	}

	if d.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if d.err != nil {
		return nil, d.err
	}

	return &domain.DownloadResult{
		Location:     "/downloads/" + name + ".mp4",
		BytesWritten: written,
		ContentType:  "video/mp4",
	}, nil
}

// recordingNotifier keeps every message
type recordingNotifier struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (n *recordingNotifier) Notify(msg domain.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) Kinds() []domain.MessageKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]domain.MessageKind, 0, len(n.messages))
	for _, m := range n.messages {
		kinds = append(kinds, m.Kind)
	}
	return kinds
}

// cookieRecorder implements domain.CookieStore
type cookieRecorder struct {
	mu      sync.Mutex
	cookies []*http.Cookie
}

func (c *cookieRecorder) StoreCookies(cookies []*http.Cookie) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = append(c.cookies, cookies...)
}

func (c *cookieRecorder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cookies)
}

// mockRecordRepo implements domain.RecordRepository for testing
type mockRecordRepo struct {
	mu      sync.Mutex
	records map[string]domain.Record
	failAll bool
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: make(map[string]domain.Record)}
}

func (m *mockRecordRepo) Create(record *domain.Record) error {
	return m.Update(record)
}

func (m *mockRecordRepo) Update(record *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errors.New("database is locked")
	}
	m.records[record.ID] = *record
	return nil
}

func (m *mockRecordRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *mockRecordRepo) FindByID(id string) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *mockRecordRepo) FindAll(filters map[string]interface{}) ([]*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Record, 0, len(m.records))
	for _, r := range m.records {
		r := r
		out = append(out, &r)
	}
	return out, nil
}

func (m *mockRecordRepo) GetStats() (*domain.RecordStats, error) {
	return &domain.RecordStats{Total: int64(len(m.records))}, nil
}
