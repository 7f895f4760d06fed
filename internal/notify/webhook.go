package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// WebhookNotifier POSTs halt reports as JSON to a configured endpoint.
// An optional domain allowlist restricts where reports can be sent.
type WebhookNotifier struct {
	url            string
	allowedDomains []string
	httpClient     *http.Client
}

// NewWebhookNotifier creates a webhook notifier. The endpoint URL is
// checked against allowedDomains up front; an empty list allows any
// domain.
func NewWebhookNotifier(endpoint string, allowedDomains []string) (*WebhookNotifier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if err := checkAllowedDomain(endpoint, allowedDomains); err != nil {
		return nil, err
	}
	return &WebhookNotifier{
		url:            endpoint,
		allowedDomains: allowedDomains,
		httpClient:     &http.Client{},
	}, nil
}

func (n *WebhookNotifier) NotifyHalt(ctx context.Context, report HaltReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal halt report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post halt report: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func checkAllowedDomain(rawURL string, allowedDomains []string) error {
	if len(allowedDomains) == 0 {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	host := parsed.Hostname()
	for _, d := range allowedDomains {
		if host == d {
			return nil
		}
	}
	return fmt.Errorf("domain %q is not in the allowed list", host)
}
