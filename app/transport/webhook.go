package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fmaia/digesto/app/recipient"
)

const webhookTimeout = 15 * time.Second

// WebhookSender posts digests as JSON to a messaging gateway. The payload
// shape matches what WhatsApp bridge services such as Evolution API expect.
type WebhookSender struct {
	url        string
	httpClient *http.Client
}

type webhookPayload struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		url: url,
		httpClient: &http.Client{
			Timeout: webhookTimeout,
		},
	}
}

func (s *WebhookSender) Name() string {
	return "webhook"
}

func (s *WebhookSender) Deliver(ctx context.Context, pref *recipient.Preference, message string) error {
	body, err := json.Marshal(webhookPayload{
		Phone:   pref.Phone,
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, detail)
	}

	slog.Debug("Digest delivered via webhook", "recipient", pref.ID, "status", resp.StatusCode)
	return nil
}
