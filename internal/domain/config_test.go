package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8090, config.Server.Port)
	assert.True(t, config.Browser.Headless)
	assert.Equal(t, DefaultUserAgent, config.Browser.UserAgent)
	assert.Equal(t, 10*time.Second, config.Resolver.Timeout)
	assert.Equal(t, DefaultPlayEndpoint, config.Resolver.PlayEndpoint)
	assert.Equal(t, 0, config.Resolver.MaxRetries)
	assert.Equal(t, time.Hour, config.Download.Timeout)
	assert.Equal(t, ".mp4", config.Download.Extension)
	assert.True(t, config.History.Enabled)
	assert.Equal(t, "log", config.Notification.Method)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "/metrics", config.Metrics.Path)
}

func TestDownloadConfig_TargetDir(t *testing.T) {
	assert.Equal(t, "/data/Downloads/tikdown", DownloadConfig{Dir: "/data/Downloads", SubDir: "tikdown"}.TargetDir())
	assert.Equal(t, "/data/Downloads", DownloadConfig{Dir: "/data/Downloads"}.TargetDir())
}
