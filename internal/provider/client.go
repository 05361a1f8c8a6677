package provider

import (
	"bytes"
	"campusstay/pkg/types"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Client calls the instant student verification provider.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Available reports whether a provider endpoint is configured.
func (c *Client) Available() bool {
	return c != nil && c.baseURL != ""
}

// Verify submits the subject to the provider. Any 2xx response means the
// subject is a verified student. The call is made once.
func (c *Client) Verify(ctx context.Context, req types.InstantVerificationRequest) error {
	if !c.Available() {
		return types.ErrProviderUnavailable
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return newError(ErrorInternal, 0, "failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verifications", bytes.NewReader(payload))
	if err != nil {
		return newError(ErrorInternal, 0, "failed to create request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return newError(ErrorTimeout, 0, "request timed out", err)
		}
		return newError(ErrorProviderOutage, 0, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return newError(categoryForStatus(resp.StatusCode), resp.StatusCode, message, nil)
}
