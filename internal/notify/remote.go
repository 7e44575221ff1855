package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteDispatcher forwards events to a notification endpoint deployed
// elsewhere (for example cmd/notify-lambda behind API Gateway).
type RemoteDispatcher struct {
	url        string
	secret     string
	httpClient *http.Client
}

// NewRemoteDispatcher returns nil when url is empty. A non-empty secret is sent
// in SecretHeader.
func NewRemoteDispatcher(url, secret string, timeout time.Duration) *RemoteDispatcher {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RemoteDispatcher{url: url, secret: secret, httpClient: &http.Client{Timeout: timeout}}
}

// Dispatch posts evt and decodes the per-channel details.
func (d *RemoteDispatcher) Dispatch(ctx context.Context, evt Event) (Details, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return Details{}, fmt.Errorf("notify: encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return Details{}, fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.secret != "" {
		req.Header.Set(SecretHeader, d.secret)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return Details{}, fmt.Errorf("notify: endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return Details{}, fmt.Errorf("notify: endpoint returned %d: %s", resp.StatusCode, e.Error)
		}
		return Details{}, fmt.Errorf("notify: endpoint returned %d", resp.StatusCode)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return Details{}, fmt.Errorf("notify: decode response: %w", err)
	}
	return out.Details, nil
}
