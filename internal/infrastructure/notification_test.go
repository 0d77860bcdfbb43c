package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/tikdown-go/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNotificationService_LogsEveryMessage(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	svc := NewNotificationService(&domain.NotificationConfig{Enabled: true, Method: "log"}, zap.New(core))

	svc.Notify(domain.Message{Kind: domain.MessageResolveSucceeded, Text: "found"})
	svc.Notify(domain.Message{Kind: domain.MessageResolveFailed, Text: "gone", Reason: domain.ReasonContentRemoved})

	entries := logs.FilterMessage("Notification").All()
	assert.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "content_removed", entries[1].ContextMap()["reason"])
}

func TestNotificationService_DisabledSkipsDesktop(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	svc := NewNotificationService(&domain.NotificationConfig{Enabled: false, Method: "osascript"}, zap.New(core))

	assert.NoError(t, svc.Send("title", "message"))
	assert.Equal(t, 1, logs.FilterMessage("Notifications disabled, skipping").Len())
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab...", truncateString("abcdef", 2))
	assert.Equal(t, "抖音...", truncateString("抖音下载", 2))
}

func TestEscapeAppleScript(t *testing.T) {
	assert.Equal(t, `say \"hi\" \\ bye`, escapeAppleScript(`say "hi" \ bye`))
}
