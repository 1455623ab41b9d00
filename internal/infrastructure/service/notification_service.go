package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/trainee-hub/trainee-tracker/pkg/logger"
)

// LogStaffNotifier writes staff notifications to the log. Used when no
// webhook is configured; the worker log is watched anyway.
type LogStaffNotifier struct {
	log *logger.Logger
}

// NewLogStaffNotifier creates a new log-backed notifier.
func NewLogStaffNotifier(log *logger.Logger) *LogStaffNotifier {
	if log == nil {
		log = logger.Default()
	}
	return &LogStaffNotifier{log: log.With(logger.Component("staff_notifier"))}
}

// NotifyStaff implements the staff notifier port.
func (n *LogStaffNotifier) NotifyStaff(ctx context.Context, course, subject, body string) error {
	n.log.Info("staff notification",
		logger.CourseName(course),
		logger.String("subject", subject),
		logger.String("body", body),
	)
	return nil
}

// WebhookStaffNotifier posts staff notifications to a chat webhook.
type WebhookStaffNotifier struct {
	url        string
	httpClient *http.Client
	log        *logger.Logger
}

// NewWebhookStaffNotifier creates a new webhook-backed notifier.
func NewWebhookStaffNotifier(url string, log *logger.Logger) *WebhookStaffNotifier {
	if log == nil {
		log = logger.Default()
	}
	return &WebhookStaffNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.With(logger.Component("staff_notifier")),
	}
}

// NotifyStaff implements the staff notifier port.
func (n *WebhookStaffNotifier) NotifyStaff(ctx context.Context, course, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"course":  course,
		"subject": subject,
		"text":    body,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.log.Debug("staff notification delivered",
		logger.CourseName(course),
		logger.String("subject", subject),
	)
	return nil
}
