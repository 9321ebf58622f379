package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/tubetrove-go/internal/domain"
)

var appleScriptEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// NotificationService handles sending desktop notifications
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
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

	var err error
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`,
			appleScriptEscaper.Replace(message), appleScriptEscaper.Replace(title))
		err = n.run("osascript", "-e", script)
	case "notify-send":
		err = n.run("notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}
	n.logger.Debug("Notification sent", zap.String("title", title), zap.String("message", message))
	return nil
}

// NotifyDownloadStarted sends notification when a download starts
func (n *NotificationService) NotifyDownloadStarted(d *domain.Download) {
	n.Send("Download Started", fmt.Sprintf("%s (%s %s)", truncateString(d.URL, 40), d.Kind, d.Format))
}

// NotifyDownloadCompleted sends notification when a download completes
func (n *NotificationService) NotifyDownloadCompleted(d *domain.Download) {
	n.Send("Download Completed", truncateString(d.Title+"."+d.Format, 60))
}

// NotifyDownloadFailed sends notification when a download fails
func (n *NotificationService) NotifyDownloadFailed(d *domain.Download) {
	n.Send("Download Failed", truncateString(d.ErrorMessage, 80))
}

// truncateString truncates a string to at most maxLen runes plus an ellipsis
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
