package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/client/credentials"
	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/dmitrijs2005/learnhub/internal/logging"
	"github.com/go-playground/validator/v10"
)

// DefaultTimeout bounds every request made through the default http.Client.
const DefaultTimeout = 10 * time.Second

const maxResponseBody = 8 << 20

// Client is the authenticated request dispatcher. It is safe for concurrent
// use.
type Client struct {
	baseURL    *url.URL
	store      credentials.Store
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     logging.Logger
	validate   *validator.Validate
}

type Option func(*Client)

// WithTimeout replaces DefaultTimeout. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient builds a dispatcher for baseURL. store may be nil, in which case
// requests never carry a credential.
func NewClient(baseURL string, store credentials.Store, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		baseURL:   u,
		store:     store,
		timeout:   DefaultTimeout,
		userAgent: "learnhub-client",
		logger:    logging.Nop(),
		validate:  newValidator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// BaseURL returns the resolved base address, always ending in "/".
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Validate checks body against its validator tags without sending anything.
// Non-struct bodies always pass.
func (c *Client) Validate(body any) error {
	if err := validateBody(c.validate, body); err != nil {
		return err
	}
	return nil
}

// Call sends one request and decodes a 2xx JSON response into out (which
// may be nil). Any failure is returned as an *Error.
func (c *Client) Call(ctx context.Context, method, path string, body any, isFile bool, out any) error {
	status, respBody, apiErr := c.send(ctx, method, path, body, isFile)
	if apiErr != nil {
		return apiErr
	}

	if _, ignored := out.(*Empty); ignored || out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Status: status, Message: "malformed response body", Err: err}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, isFile bool) (int, []byte, *Error) {
	target, err := c.resolve(path)
	if err != nil {
		return 0, nil, &Error{Message: "invalid request path", Err: err}
	}

	reader, contentType, apiErr := c.encode(body, isFile)
	if apiErr != nil {
		return 0, nil, apiErr
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, &Error{Message: "failed to create request", Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	c.authorize(ctx, req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug(ctx, "request failed", "method", method, "path", path, "error", err)
		return 0, nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, transportError("failed to read response body", err)
	}

	c.logger.Debug(ctx, "request done",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, respBody, newStatusError(resp.StatusCode, respBody)
	}
	return resp.StatusCode, respBody, nil
}

// authorize attaches the bearer credential if one is stored. A store read
// failure downgrades the request to anonymous; the server decides.
func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if c.store == nil {
		return
	}
	token, err := c.store.Token(ctx)
	if err != nil {
		c.logger.Warn(ctx, "credential read failed, sending request without it", "error", err)
		return
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", fmt.Errorf("path %q must be relative", path)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) encode(body any, isFile bool) (io.Reader, string, *Error) {
	if isFile {
		form, ok := asForm(body)
		if !ok {
			return nil, "", &Error{Message: fmt.Sprintf("file upload body must be *api.Form, got %T", body)}
		}
		buf, contentType, err := form.encode()
		if err != nil {
			return nil, "", &Error{Message: "failed to encode multipart body", Err: err}
		}
		return buf, contentType, nil
	}

	if body == nil {
		return nil, "", nil
	}
	if err := validateBody(c.validate, body); err != nil {
		return nil, "", err
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, "", &Error{Message: "failed to marshal request body", Err: err}
	}
	return bytes.NewReader(b), "application/json", nil
}

func classifyTransport(err error) *Error {
	if errors.Is(err, context.Canceled) {
		return transportError("request cancelled", err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return transportError("request timed out", err)
	}
	return transportError("network error", err)
}
