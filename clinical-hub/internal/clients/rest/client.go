// Package rest is the JSON-over-HTTP transport shared by the subsystem
// adapters. Requests are retried with exponential backoff; 4xx responses are
// final.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Config struct {
	BaseURL        string
	Timeout        time.Duration
	Retries        int
	InitialBackoff time.Duration
	HTTPClient     *http.Client
}

type Client struct {
	baseURL        string
	client         *http.Client
	timeout        time.Duration
	retries        int
	initialBackoff time.Duration
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rest base url required")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	return &Client{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		client:         client,
		timeout:        timeout,
		retries:        retries,
		initialBackoff: initial,
	}, nil
}

// PostJSON sends payload to path and discards the response body.
func (c *Client) PostJSON(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// GetJSON decodes the response of a GET into out.
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	url := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialBackoff
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.retries)), ctx)

	return backoff.Retry(func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			statusErr := &StatusError{
				Method:     method,
				URL:        url,
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(snippet)),
			}
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}, b)
}
