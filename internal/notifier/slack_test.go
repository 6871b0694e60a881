package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloud-wave-best-zizon/concierge-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testNotifier points a notifier at an httptest server, relaxing the
// production webhook prefix check to the server's own URL.
func testNotifier(serverURL string) *SlackNotifier {
	n := NewSlackNotifier(serverURL+"/services/T0/B0/secret", "#customer-service", zap.NewNop())
	n.urlPrefix = serverURL
	return n
}

func TestSendDeliversPayload(t *testing.T) {
	var got slackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ok := testNotifier(server.URL).Send(context.Background(), domain.Alert{
		Message:  "New case created for return order RO-00000001",
		Priority: domain.AlertPriorityWarning,
		CaseID:   "500000000000001AAA",
		CustomFields: map[string]string{
			"orderNumber":  "ORD-1001",
			"customerName": "Acme Corp",
		},
	})
	require.True(t, ok)

	assert.Equal(t, "#customer-service", got.Channel)
	assert.Equal(t, "New case created for return order RO-00000001", got.Text)
	assert.Equal(t, "Order Concierge", got.Username)
	assert.Equal(t, ":warning:", got.IconEmoji)

	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "#ffcc00", got.Attachments[0].Color)

	titles := make([]string, 0, len(got.Attachments[0].Fields))
	for _, f := range got.Attachments[0].Fields {
		titles = append(titles, f.Title)
	}
	assert.Contains(t, titles, "Priority")
	assert.Contains(t, titles, "Case ID")
	assert.Contains(t, titles, "OrderNumber", "custom field keys are capitalized")
	assert.Contains(t, titles, "CustomerName")
}

func TestSendExplicitChannelOverride(t *testing.T) {
	var got slackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := testNotifier(server.URL)
	require.True(t, n.Send(context.Background(), domain.Alert{Message: "ping", Channel: "#escalations"}))
	assert.Equal(t, "#escalations", got.Channel)

	assert.False(t, n.Send(context.Background(), domain.Alert{Message: "ping", Channel: "escalations"}),
		"channel without # or @ prefix must be rejected")
}

func TestSendNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ok := testNotifier(server.URL).Send(context.Background(), domain.Alert{Message: "ping"})
	assert.False(t, ok)
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	n := testNotifier(server.URL)
	n.timeout = 50 * time.Millisecond

	start := time.Now()
	ok := n.Send(context.Background(), domain.Alert{Message: "ping"})
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 5*time.Second, "send must give up at the configured timeout")
}

func TestSendValidation(t *testing.T) {
	n := NewSlackNotifier(webhookPrefix+"T0/B0/secret", "#customer-service", zap.NewNop())

	assert.False(t, n.Send(context.Background(), domain.Alert{}), "empty message")
	assert.False(t, n.Send(context.Background(), domain.Alert{
		Message: strings.Repeat("x", maxMessageLength+1),
	}), "oversized message")
}

func TestSendUnconfiguredWebhook(t *testing.T) {
	n := NewSlackNotifier("", "#customer-service", zap.NewNop())
	assert.False(t, n.Send(context.Background(), domain.Alert{Message: "ping"}))
}

func TestSendRejectsForeignURL(t *testing.T) {
	n := NewSlackNotifier("https://attacker.example.com/hook", "#customer-service", zap.NewNop())
	assert.False(t, n.Send(context.Background(), domain.Alert{Message: "ping"}))
}

func TestSendDefaultPriorityIsInfo(t *testing.T) {
	var got slackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.True(t, testNotifier(server.URL).Send(context.Background(), domain.Alert{Message: "ping"}))
	assert.Equal(t, ":information_source:", got.IconEmoji)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "#36a64f", got.Attachments[0].Color)
}
