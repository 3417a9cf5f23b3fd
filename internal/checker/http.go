package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// DefaultHTTPTimeout bounds a whole request when no timeout is set.
const DefaultHTTPTimeout = 60 * time.Second

// HTTP issues a GET against a URL. Redirects are followed; the final
// response must match ExpectedStatus, or be 2xx when none is set.
type HTTP struct {
	client         *http.Client
	expectedStatus int
	headers        map[string]string
}

// NewHTTP returns an HTTP checker built on a pooled cleanhttp transport.
func NewHTTP(opts Options) *HTTP {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTP{
		client: &http.Client{
			Timeout:   timeout,
			Transport: cleanhttp.DefaultPooledTransport(),
		},
		expectedStatus: opts.ExpectedStatus,
		headers:        opts.Headers,
	}
}

func (c *HTTP) Check(ctx context.Context, url string) CheckResult {
	start := time.Now()
	result := CheckResult{
		Target:    url,
		CheckedAt: start,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Status = StatusDown
		result.Error = fmt.Sprintf("creating request: %v", err)
		result.ResponseTime = time.Since(start)
		return result
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.Status = StatusDown
		result.Error = err.Error()
		return result
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if !c.statusOK(resp.StatusCode) {
		result.Status = StatusDown
		if c.expectedStatus != 0 {
			result.Error = fmt.Sprintf("expected status %d, got %d", c.expectedStatus, resp.StatusCode)
		} else {
			result.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return result
	}

	result.Status = StatusUp
	return result
}

func (c *HTTP) statusOK(code int) bool {
	if c.expectedStatus != 0 {
		return code == c.expectedStatus
	}
	return code >= 200 && code < 300
}
