package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookConfig configures WebhookSink.
type WebhookConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Endpoint string        `yaml:"endpoint"`
	Secret   string        `yaml:"secret"`
	Timeout  time.Duration `yaml:"timeout"`
	Filter   `yaml:",inline"`
}

// Headers set on every delivery. SignatureHeader carries the hex
// HMAC-SHA256 of the body and is only sent when a secret is configured.
const (
	SignatureHeader = "X-Guide-CMS-Signature"
	EventHeader     = "X-Guide-CMS-Event"
	DeliveryHeader  = "X-Guide-CMS-Delivery"
	PostTypeHeader  = "X-Guide-CMS-Post-Type"
)

// WebhookSink posts events to an HTTP endpoint.
type WebhookSink struct {
	Endpoint string
	Secret   string
	Client   *http.Client
}

// NewWebhookSink creates a WebhookSink from config.
func NewWebhookSink(c WebhookConfig) *WebhookSink {
	if !c.Enabled || c.Endpoint == "" {
		return nil
	}
	cli := &http.Client{Timeout: c.Timeout}
	if c.Timeout == 0 {
		cli.Timeout = 5 * time.Second
	}
	return &WebhookSink{Endpoint: c.Endpoint, Secret: c.Secret, Client: cli}
}

func (s *WebhookSink) Emit(ctx context.Context, e Event) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "guide-cms-webhook/1")
	req.Header.Set(EventHeader, e.Name)
	req.Header.Set(DeliveryHeader, e.ID)
	if e.PostType != "" {
		req.Header.Set(PostTypeHeader, e.PostType)
	}
	if s.Secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(s.Secret, data))
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	if err := resp.Body.Close(); err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s for %s: %s", s.Endpoint, e.Name, resp.Status)
	}
	return nil
}

// Sign returns the hex encoded HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
