package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/tikdown-go/internal/app"
	"github.com/yourusername/tikdown-go/internal/domain"
	"github.com/yourusername/tikdown-go/internal/infrastructure"
	"go.uber.org/zap"
)

const shareText = "#周末露营# https://v.douyin.com/abc123/ 复制此链接"

var videoBytes = append([]byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom"), bytes.Repeat([]byte{0x42}, 4096)...)

// stubResolver answers every share URL with the same outcome. When block is
// set it waits for cancellation instead.
type stubResolver struct {
	id    string
	err   error
	block bool
}

func (r *stubResolver) Resolve(ctx context.Context, shareURL string) (string, error) {
	if r.block {
		<-ctx.Done()
		return "", &domain.ResolveError{Reason: domain.ReasonCancelled, Err: context.Canceled}
	}
	if r.err != nil {
		return "", r.err
	}
	return r.id, nil
}

type testServer struct {
	router  http.Handler
	manager *app.DownloadManager
	repo    *infrastructure.SQLiteRecordRepository
	dir     string
}

func setupTestServer(t *testing.T, resolver domain.Resolver) *testServer {
	t.Helper()

	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("video_id") == "gone" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(videoBytes)))
		if r.Method == http.MethodGet {
			w.Write(videoBytes)
		}
	}))
	t.Cleanup(cdn.Close)

	dir := t.TempDir()
	config := domain.DefaultConfig()
	config.Resolver.PlayEndpoint = cdn.URL + "/aweme/v1/play/"
	config.Resolver.MaxRetries = 1
	config.Resolver.RetryDelay = 0
	config.Download.Dir = dir
	config.Download.SubDir = ""
	config.Download.ProgressInterval = 10 * time.Millisecond
	config.Logging.LogsDir = filepath.Join(dir, "logs")

	repo, err := infrastructure.NewSQLiteRecordRepository(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	log := zap.NewNop()
	verifier := infrastructure.NewHTTPVerifier(cdn.Client(), config.Resolver.PlayEndpoint, time.Second, log)
	downloader := infrastructure.NewHTTPDownloader(cdn.Client(), infrastructure.NewFileStorage(dir), config.Download.Extension, time.Minute, log)

	reg := prometheus.NewRegistry()
	pipeline := app.NewPipeline(resolver, verifier, downloader, nil, config, log).
		WithRepository(repo).
		WithMetrics(infrastructure.NewMetrics(reg))
	manager := app.NewDownloadManager(pipeline, log)

	router := SetupRouter(Dependencies{
		Pipeline:    pipeline,
		DownloadMgr: manager,
		Repo:        repo,
		Gatherer:    reg,
		Config:      config,
		Logger:      log,
	})

	return &testServer{router: router, manager: manager, repo: repo, dir: dir}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.manager.Wait(ctx))
}

func TestRouter_Health(t *testing.T) {
	s := setupTestServer(t, &stubResolver{id: "123"})

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"busy":false`)

	w = s.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Resolve(t *testing.T) {
	s := setupTestServer(t, &stubResolver{id: "123"})

	w := s.do(t, http.MethodPost, "/api/v1/resolve", map[string]string{"text": shareText})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		VideoID    string `json:"video_id"`
		ShareURL   string `json:"share_url"`
		DirectLink string `json:"direct_link"`
		Size       int64  `json:"size"`
		SizeHuman  string `json:"size_human"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "123", resp.VideoID)
	assert.Equal(t, "https://v.douyin.com/abc123/", resp.ShareURL)
	assert.True(t, strings.HasSuffix(resp.DirectLink, "/aweme/v1/play/?video_id=123"))
	assert.Equal(t, int64(len(videoBytes)), resp.Size)
	assert.Equal(t, domain.FormatSize(int64(len(videoBytes))), resp.SizeHuman)
}

func TestRouter_ResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		resolver *stubResolver
		body     interface{}
		status   int
		reason   string
	}{
		{"missing text", &stubResolver{id: "1"}, map[string]string{}, http.StatusBadRequest, ""},
		{"no link", &stubResolver{id: "1"}, map[string]string{"text": "just words"}, http.StatusBadRequest, ""},
		{"terminal", &stubResolver{err: domain.NewResolveError(domain.ReasonUnsupportedImageText)}, map[string]string{"text": shareText}, http.StatusUnprocessableEntity, "unsupported_image_text"},
		{"retries exhausted", &stubResolver{err: domain.NewResolveError(domain.ReasonCaptcha)}, map[string]string{"text": shareText}, http.StatusBadGateway, "captcha"},
		{"unplayable", &stubResolver{id: "gone"}, map[string]string{"text": shareText}, http.StatusUnprocessableEntity, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t, tt.resolver)

			w := s.do(t, http.MethodPost, "/api/v1/resolve", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.reason != "" {
				assert.Contains(t, w.Body.String(), `"reason":"`+tt.reason+`"`)
			}
		})
	}
}

func TestRouter_DownloadLifecycle(t *testing.T) {
	s := setupTestServer(t, &stubResolver{id: "123"})

	w := s.do(t, http.MethodPost, "/api/v1/downloads", map[string]string{"text": shareText})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var started struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	require.NotEmpty(t, started.ID)

	s.wait(t)

	w = s.do(t, http.MethodGet, "/api/v1/downloads/"+started.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var record domain.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, domain.StatusCompleted, record.Status)
	assert.Equal(t, "123", record.VideoID)
	assert.Equal(t, filepath.Join(s.dir, "周末露营.mp4"), record.FilePath)
	assert.Equal(t, "video/mp4", record.ContentType)

	data, err := os.ReadFile(record.FilePath)
	require.NoError(t, err)
	assert.Equal(t, videoBytes, data)

	w = s.do(t, http.MethodGet, "/api/v1/downloads?status=completed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), started.ID)

	w = s.do(t, http.MethodGet, "/api/v1/downloads?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/downloads/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completed":1`)

	w = s.do(t, http.MethodDelete, "/api/v1/downloads/"+started.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/downloads/"+started.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_BusyAndCancel(t *testing.T) {
	s := setupTestServer(t, &stubResolver{block: true})

	w := s.do(t, http.MethodGet, "/api/v1/downloads/current", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/downloads", map[string]string{"text": shareText, "name": "clip"})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/downloads", map[string]string{"text": shareText})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/downloads/current", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"resolving"`)
	assert.Contains(t, w.Body.String(), `"progress"`)

	w = s.do(t, http.MethodPost, "/api/v1/downloads/current/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.wait(t)

	assert.Eventually(t, func() bool {
		return s.do(t, http.MethodGet, "/api/v1/downloads/current", nil).Code == http.StatusNotFound
	}, time.Second, 10*time.Millisecond)

	w = s.do(t, http.MethodPost, "/api/v1/downloads/current/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/downloads/stats", nil)
	assert.Contains(t, w.Body.String(), `"cancelled":1`)
}

func TestRouter_ProgressWebSocket(t *testing.T) {
	s := setupTestServer(t, &stubResolver{block: true})
	server := httptest.NewServer(s.router)
	defer server.Close()

	w := s.do(t, http.MethodPost, "/api/v1/downloads", map[string]string{"text": shareText})
	require.Equal(t, http.StatusAccepted, w.Code)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/downloads/current/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first struct {
		Status   string                  `json:"status"`
		Progress domain.TransferProgress `json:"progress"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "resolving", first.Status)

	require.NoError(t, s.manager.Cancel())

	last := first
	for {
		var msg struct {
			Status string `json:"status"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err)
			break
		}
		last.Status = msg.Status
	}
	assert.Equal(t, "cancelled", last.Status)
}

func TestRouter_Metrics(t *testing.T) {
	s := setupTestServer(t, &stubResolver{id: "123"})

	s.do(t, http.MethodPost, "/api/v1/resolve", map[string]string{"text": shareText})

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tikdown_resolutions_total")
}

func TestRouter_Logs(t *testing.T) {
	s := setupTestServer(t, &stubResolver{id: "123"})

	w := s.do(t, http.MethodGet, "/api/v1/logs/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pipeline")

	w = s.do(t, http.MethodGet, "/api/v1/logs/pipeline", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)

	w = s.do(t, http.MethodGet, "/api/v1/logs/nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/logs/pipeline/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_UnknownAPIRoute(t *testing.T) {
	s := setupTestServer(t, &stubResolver{id: "123"})

	w := s.do(t, http.MethodGet, "/api/v1/nothing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not found")
}
