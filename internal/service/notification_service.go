package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"ai_blueprint_backend/internal/util"
	"ai_blueprint_backend/pkg/logger"
	"ai_blueprint_backend/pkg/monitoring"
)

// SlackMessage is the body of a Slack incoming-webhook post.
type SlackMessage struct {
	Text    string `json:"text"`
	Channel string `json:"channel,omitempty"`
}

// Notifier delivers a message to a webhook.
type Notifier interface {
	Notify(ctx context.Context, webhookURL string, msg SlackMessage) error
}

// SlackNotifier posts to Slack incoming webhooks. A status of 400 or above
// is an error.
type SlackNotifier struct {
	client *http.Client
}

func NewSlackNotifier(timeout time.Duration) *SlackNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackNotifier{client: &http.Client{Timeout: timeout}}
}

func (n *SlackNotifier) Notify(ctx context.Context, webhookURL string, msg SlackMessage) error {
	if webhookURL == "" {
		return eris.New("notify: empty webhook url")
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return eris.Wrap(err, "notify: marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Wrapf(util.ErrNotifyFailed, "notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// notifyQuietly logs and counts a failed delivery instead of returning it.
// Notifications never undo the write that triggered them.
func notifyQuietly(ctx context.Context, n Notifier, kind, webhookURL string, msg SlackMessage) bool {
	if n == nil || webhookURL == "" {
		return false
	}
	if err := n.Notify(ctx, webhookURL, msg); err != nil {
		monitoring.NotificationFailures.WithLabelValues(kind).Inc()
		logger.Log.Warn("Notification failed",
			zap.String("kind", kind),
			zap.Error(err))
		return false
	}
	return true
}
