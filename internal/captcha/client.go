package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultEndpoint = "https://api.hcaptcha.com/siteverify"

// SiteVerifier performs the remote half of the challenge check.
type SiteVerifier interface {
	SiteVerify(ctx context.Context, req VerificationRequest) error
}

// HTTPClient calls the hCaptcha siteverify endpoint. One round trip, no retries.
type HTTPClient struct {
	Endpoint string
	HTTP     *http.Client
}

func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPClient{
		Endpoint: endpoint,
		HTTP:     &http.Client{Timeout: timeout},
	}
}

type siteVerifyResponse struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

func (c *HTTPClient) SiteVerify(ctx context.Context, req VerificationRequest) error {
	form := url.Values{}
	form.Set("secret", req.Secret)
	form.Set("response", req.Token)
	form.Set("sitekey", req.SiteKey)
	if req.ClientIP.IsValid() {
		form.Set("remoteip", req.ClientIP.String())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("siteverify request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("siteverify read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("siteverify: unexpected status %d", resp.StatusCode)
	}

	var out siteVerifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("siteverify decode: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("%w: %s", ErrRejected, strings.Join(out.ErrorCodes, ","))
	}
	return nil
}
