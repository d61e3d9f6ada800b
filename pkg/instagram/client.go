package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"igfetch/pkg/auth"
	errs "igfetch/pkg/errors"
	"igfetch/pkg/logger"
	"igfetch/pkg/ratelimit"
	"igfetch/pkg/retry"
)

// DefaultUserAgent is sent when neither the config nor the session names one
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// ClaimHeader carries the rotated www claim on responses
const ClaimHeader = "X-Ig-Set-Www-Claim"

// maxBodySize bounds how much of a response is read
const maxBodySize = 16 << 20

// Result describes the response side of an exchange that the caller may
// need to fold back into its session
type Result struct {
	Header http.Header
	Claim  string
	Status int
}

// Client sends requests to Instagram on behalf of a session. It never
// changes the session it is given.
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent sets the default User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLimiter paces requests through l
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry retries transient failures according to cfg
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// NewClient creates a new Instagram client
func NewClient(timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  DefaultUserAgent,
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry == nil {
		c.retry = &retry.Config{MaxAttempts: 1, Logger: log}
	}
	return c
}

// commonHeaders are sent with every request, including the landing page
func (c *Client) commonHeaders(session *auth.Session) http.Header {
	ua := c.userAgent
	if session != nil && session.UserAgent != "" {
		ua = session.UserAgent
	}

	h := http.Header{}
	h.Set("User-Agent", ua)
	h.Set("sec-gpc", "1")
	h.Set("Sec-Fetch-Site", "same-origin")
	if cookie := session.CookieHeader(); cookie != "" {
		h.Set("Cookie", cookie)
	}
	return h
}

// Request performs an API call with the session's cookies, claim and CSRF
// token and decodes the JSON body into target. A POST sends form URL-encoded.
// The returned Result is non-nil whenever a response was received, even if
// err is also set, so rotated cookies and claims are never lost.
func (c *Client) Request(ctx context.Context, method, rawURL string, session *auth.Session, form url.Values, target interface{}) (*Result, error) {
	headers := c.commonHeaders(session)

	claim := "0"
	if session != nil && session.Claim != "" {
		claim = session.Claim
	}
	headers.Set("x-ig-www-claim", claim)
	if csrf := session.CSRFToken(); csrf != "" {
		headers.Set("x-csrftoken", csrf)
	}
	if method == http.MethodPost {
		headers.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	result, body, err := c.send(ctx, method, rawURL, headers, form)
	if err != nil {
		return result, err
	}

	if target != nil {
		if err := json.Unmarshal(body, target); err != nil {
			c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
				"url":          rawURL,
				"status":       result.Status,
				"error":        err.Error(),
				"body_preview": preview(body),
			})
			return result, &errs.Error{
				Type:    errs.ErrorTypeParsing,
				Message: fmt.Sprintf("failed to parse JSON: %v", err),
				Code:    result.Status,
			}
		}
	}
	return result, nil
}

// Page fetches an HTML page with only the browser headers and cookies
func (c *Client) Page(ctx context.Context, rawURL string, session *auth.Session) ([]byte, error) {
	_, body, err := c.send(ctx, http.MethodGet, rawURL, c.commonHeaders(session), nil)
	return body, err
}

// send runs one logical request through the limiter and retry policy
func (c *Client) send(ctx context.Context, method, rawURL string, headers http.Header, form url.Values) (*Result, []byte, error) {
	var (
		result *Result
		body   []byte
	)

	err := retry.Do(ctx, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		var err error
		result, body, err = c.doRequest(ctx, method, rawURL, headers, form)
		return err
	}, c.retry)

	return result, body, err
}

// doRequest performs a single HTTP round trip
func (c *Client) doRequest(ctx context.Context, method, rawURL string, headers http.Header, form url.Values) (*Result, []byte, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	for key, values := range headers {
		req.Header[key] = append([]string(nil), values...)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   method,
			"url":      rawURL,
			"error":    err.Error(),
			"duration": duration,
		})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, method, rawURL, resp.StatusCode, duration)

	result := &Result{
		Header: resp.Header,
		Claim:  resp.Header.Get(ClaimHeader),
		Status: resp.StatusCode,
	}

	if apiErr := errs.FromStatus(resp.StatusCode); apiErr != nil {
		return result, nil, apiErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return result, nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}
	return result, body, nil
}

// preview shortens a body for logging
func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
