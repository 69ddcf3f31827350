package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rentnest/nestchat/internal/core"
)

// APIError is a non-2xx response. Code is the server's machine-readable
// error, when it sent one.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	parts := []string{fmt.Sprintf("chat api: status %d", e.Status)}
	for _, p := range []string{e.Code, e.Message} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ": ")
}

// BlockedError is returned when either participant blocked the other.
type BlockedError struct {
	Message string
}

func (e *BlockedError) Error() string {
	if e.Message != "" {
		return "blocked: " + e.Message
	}
	return "blocked: you cannot message this user"
}

func IsBlocked(err error) bool {
	var blocked *BlockedError
	return errors.As(err, &blocked)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	if apiErr := (*APIError)(nil); errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type apiErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Blocked bool   `json:"blocked"`
}

// ProgressFunc receives the bytes sent so far and the total request size.
type ProgressFunc func(sent, total int64)

type Client struct {
	base  string
	token string
	conn  *http.Client
}

// NewClient returns a client for the backend at baseURL. Requests time out
// after timeout, or core.DefaultRequestTimeout when it is zero.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	base, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = core.DefaultRequestTimeout
	}
	return &Client{base: base, token: token, conn: &http.Client{Timeout: timeout}}, nil
}

// NormalizeBaseURL checks that raw is an absolute http(s) URL and strips
// trailing slashes.
func NormalizeBaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	switch {
	case err != nil:
		return "", fmt.Errorf("api url %q: %w", raw, err)
	case u.Scheme != "http" && u.Scheme != "https":
		return "", fmt.Errorf("api url %q: scheme must be http or https", raw)
	case u.Host == "":
		return "", fmt.Errorf("api url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String(), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, reqBody any, respBody any) error {
	return c.do(ctx, method, path, query, reqBody, respBody, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, reqBody any, respBody any, progress ProgressFunc) error {
	endpoint, err := c.buildURL(path, query)
	if err != nil {
		return err
	}

	var data []byte
	if reqBody != nil {
		data, err = json.Marshal(reqBody)
		if err != nil {
			return err
		}
	}

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
		if progress != nil {
			body = &progressReader{r: body, total: int64(len(data)), fn: progress}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if data != nil {
		req.ContentLength = int64(len(data))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.conn.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, respData)
	}

	// Some endpoints report a blocked recipient with a 200 and an error body.
	var payload apiErrorPayload
	if err := json.Unmarshal(respData, &payload); err == nil && payload.Blocked {
		return &BlockedError{Message: firstNonEmpty(payload.Message, payload.Error)}
	}

	if respBody == nil || len(respData) == 0 {
		return nil
	}
	return json.Unmarshal(respData, respBody)
}

func decodeError(status int, data []byte) error {
	var payload apiErrorPayload
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Blocked {
			return &BlockedError{Message: firstNonEmpty(payload.Message, payload.Error)}
		}
		return &APIError{Status: status, Code: payload.Error, Message: payload.Message}
	}
	return &APIError{Status: status, Message: strings.TrimSpace(string(data))}
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	endpoint, err := url.Parse(c.base + path)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	return endpoint.String(), nil
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
