package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cloud-wave-best-zizon/concierge-service/internal/domain"
	"go.uber.org/zap"
)

const (
	maxMessageLength = 4000
	webhookPrefix    = "https://hooks.slack.com/services/"
	defaultTimeout   = 10 * time.Second
	senderUsername   = "Order Concierge"
)

// SlackNotifier delivers alerts to a Slack incoming webhook. Delivery is
// best-effort: Send reports success as a boolean and never returns an
// error, so callers cannot treat alerting as critical path.
type SlackNotifier struct {
	webhookURL     string
	defaultChannel string
	urlPrefix      string
	timeout        time.Duration
	client         *http.Client
	logger         *zap.Logger
}

func NewSlackNotifier(webhookURL, defaultChannel string, logger *zap.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL:     webhookURL,
		defaultChannel: defaultChannel,
		urlPrefix:      webhookPrefix,
		timeout:        defaultTimeout,
		client:         &http.Client{},
		logger:         logger,
	}
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields"`
}

type slackPayload struct {
	Channel     string            `json:"channel"`
	Text        string            `json:"text"`
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji"`
	Attachments []slackAttachment `json:"attachments"`
}

// Send validates and delivers one alert. Non-2xx responses, timeouts, and
// configuration problems all come back as false with a diagnostic log.
func (n *SlackNotifier) Send(ctx context.Context, alert domain.Alert) bool {
	if alert.Message == "" {
		n.logger.Warn("Alert dropped: empty message")
		return false
	}
	if len(alert.Message) > maxMessageLength {
		n.logger.Warn("Alert dropped: message too long",
			zap.Int("length", len(alert.Message)),
			zap.Int("max", maxMessageLength))
		return false
	}
	if n.webhookURL == "" {
		n.logger.Debug("Alert dropped: webhook not configured")
		return false
	}
	if !strings.HasPrefix(n.webhookURL, n.urlPrefix) {
		n.logger.Warn("Alert dropped: webhook URL has unexpected shape")
		return false
	}

	channel := alert.Channel
	if channel == "" {
		channel = n.defaultChannel
	}
	if channel == "" {
		channel = "#general"
	}
	if alert.Channel != "" && !strings.HasPrefix(alert.Channel, "#") && !strings.HasPrefix(alert.Channel, "@") {
		n.logger.Warn("Alert dropped: channel must start with # or @",
			zap.String("channel", alert.Channel))
		return false
	}

	priority := alert.Priority
	if priority == "" {
		priority = domain.AlertPriorityInfo
	}

	body, err := json.Marshal(n.buildPayload(alert, channel, priority))
	if err != nil {
		n.logger.Error("Failed to marshal alert payload", zap.Error(err))
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("Failed to build alert request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			n.logger.Error("Alert timed out",
				zap.Duration("timeout", n.timeout),
				zap.String("priority", string(priority)))
		} else {
			n.logger.Error("Failed to send alert", zap.Error(err))
		}
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.logger.Error("Alert rejected by webhook",
			zap.Int("status", resp.StatusCode),
			zap.String("priority", string(priority)))
		return false
	}

	n.logger.Info("Alert delivered",
		zap.String("priority", string(priority)),
		zap.String("case_id", alert.CaseID))
	return true
}

func (n *SlackNotifier) buildPayload(alert domain.Alert, channel string, priority domain.AlertPriority) slackPayload {
	fields := []slackField{
		{Title: "Priority", Value: strings.ToUpper(string(priority)), Short: true},
		{Title: "Timestamp", Value: time.Now().UTC().Format(time.RFC3339), Short: true},
	}
	if alert.CaseID != "" {
		fields = append(fields, slackField{Title: "Case ID", Value: alert.CaseID, Short: true})
	}
	for _, key := range sortedKeys(alert.CustomFields) {
		fields = append(fields, slackField{
			Title: capitalize(key),
			Value: alert.CustomFields[key],
			Short: true,
		})
	}

	return slackPayload{
		Channel:   channel,
		Text:      alert.Message,
		Username:  senderUsername,
		IconEmoji: iconForPriority(priority),
		Attachments: []slackAttachment{
			{Color: colorForPriority(priority), Fields: fields},
		},
	}
}

func iconForPriority(p domain.AlertPriority) string {
	switch p {
	case domain.AlertPriorityCritical:
		return ":rotating_light:"
	case domain.AlertPriorityError:
		return ":x:"
	case domain.AlertPriorityWarning:
		return ":warning:"
	default:
		return ":information_source:"
	}
}

func colorForPriority(p domain.AlertPriority) string {
	switch p {
	case domain.AlertPriorityCritical:
		return "#ff0000"
	case domain.AlertPriorityError:
		return "#ff6600"
	case domain.AlertPriorityWarning:
		return "#ffcc00"
	default:
		return "#36a64f"
	}
}

// sortedKeys keeps field order stable across sends.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
