package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/yourusername/tikdown-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService shows pipeline messages to the user
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
	}
}

// Notify implements domain.Notifier. Every message is logged; desktop
// methods additionally pop up a notification.
func (n *NotificationService) Notify(msg domain.Message) {
	fields := []zap.Field{
		zap.String("kind", string(msg.Kind)),
		zap.String("text", msg.Text),
	}
	if msg.Reason != "" {
		fields = append(fields, zap.String("reason", string(msg.Reason)))
	}

	switch msg.Kind {
	case domain.MessageResolveFailed, domain.MessageDownloadFailed, domain.MessageUnplayable, domain.MessageInvalidInput:
		n.logger.Warn("Notification", fields...)
	default:
		n.logger.Info("Notification", fields...)
	}

	if err := n.Send(titleFor(msg.Kind), msg.Text); err != nil {
		n.logger.Debug("Desktop notification failed", zap.Error(err))
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	switch n.config.Method {
	case "", "log":
		return nil
	case "osascript":
		return n.sendOSAScript(title, message)
	case "notify-send":
		return n.sendNotifySend(title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}
}

// sendOSAScript sends notification using macOS osascript
func (n *NotificationService) sendOSAScript(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(message), escapeAppleScript(title))
	cmd := exec.Command("osascript", "-e", script)

	if err := cmd.Run(); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", "osascript"),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))

	return nil
}

// sendNotifySend sends notification using Linux notify-send
func (n *NotificationService) sendNotifySend(title, message string) error {
	cmd := exec.Command("notify-send", title, message)

	if err := cmd.Run(); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", "notify-send"),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))

	return nil
}

func titleFor(kind domain.MessageKind) string {
	switch kind {
	case domain.MessageInvalidInput:
		return "Invalid Input"
	case domain.MessageResolveSucceeded:
		return "Video Found"
	case domain.MessageResolveFailed:
		return "Resolve Failed"
	case domain.MessageResolveRetrying:
		return "Retrying"
	case domain.MessageUnplayable:
		return "Unplayable Video"
	case domain.MessageDownloadCompleted:
		return "Download Completed"
	case domain.MessageDownloadCancelled:
		return "Download Cancelled"
	case domain.MessageDownloadFailed:
		return "Download Failed"
	}
	return "tikdown"
}

var appleScriptEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeAppleScript(s string) string {
	return appleScriptEscaper.Replace(truncateString(s, 200))
}

// truncateString truncates a string to the specified number of runes
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
