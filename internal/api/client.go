package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client defaults.
const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	DefaultTimeout = 10 * time.Second
	userAgent      = "bookcat/0.1"
	requestIDKey   = "X-Request-ID"
)

// Session is the client's view of the persisted login state. Defined at the
// consumer so the api package does not depend on a storage driver. Token
// must read the current value on every call; the client never caches it.
type Session interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Production bool
	UserAgent  string

	// HTTPClient overrides the transport. Its Timeout is replaced by Timeout.
	HTTPClient *http.Client

	// OnUnauthorized runs after the session has been cleared because the
	// backend answered 401. It runs once per failing call.
	OnUnauthorized func(*Error)
}

// Client is the single point of outbound request dispatch. It injects the
// bearer token from the session, classifies failures, and clears the
// session on 401. It never retries. Safe for concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	timeout        time.Duration
	session        Session
	logger         *slog.Logger
	production     bool
	userAgent      string
	onUnauthorized func(*Error)

	// newRequestID is overridden in tests for stable headers.
	newRequestID func() string
}

// NewClient creates a Client. A nil logger uses slog.Default().
func NewClient(opts Options, session Session, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Deadlines come from each request's context; see Do.
	hc := &http.Client{}
	if opts.HTTPClient != nil {
		clone := *opts.HTTPClient
		clone.Timeout = 0
		hc = &clone
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = userAgent
	}

	return &Client{
		baseURL:        base,
		httpClient:     hc,
		timeout:        timeout,
		session:        session,
		logger:         logger,
		production:     opts.Production,
		userAgent:      ua,
		onUnauthorized: opts.OnUnauthorized,
		newRequestID:   uuid.NewString,
	}
}

// BaseURL returns the backend address the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get fetches path.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts...)
}

// Post sends body to path.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, opts...)
}

// Put replaces the resource at path with body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body, opts...)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, opts...)
}

// Do executes one request. The path is appended to the base URL. Any
// non-2xx status or transport failure is returned as an *Error; a 2xx
// response is fully read before returning.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	cfg := newCallConfig(opts)

	timeout := c.timeout
	if cfg.timeout > 0 {
		timeout = cfg.timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, body, cfg)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
	}

	if !c.production {
		c.logger.Info("api request",
			slog.String("method", method),
			slog.String("path", path),
		)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErr := Classify(err)
		if apiErr.Kind == KindNetworkUnreachable {
			c.logger.Error("backend not reachable",
				slog.String("base_url", c.baseURL),
				slog.String("method", method),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}

		return nil, apiErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetworkUnreachable, Message: msgNetwork, Err: fmt.Errorf("reading response: %w", err)}
	}

	if !c.production {
		c.logger.Info("api response",
			slog.Int("status", resp.StatusCode),
			slog.String("method", method),
			slog.String("path", path),
		)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return &Response{Status: resp.StatusCode, Header: resp.Header, Data: data}, nil
	}

	apiErr := ClassifyResponse(resp.StatusCode, data)

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Error("server error",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", truncate(string(data), maxLoggedBody)),
		)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(ctx, apiErr)
	}

	return nil, apiErr
}

// maxLoggedBody bounds how much of an error body lands in the log.
const maxLoggedBody = 512

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}

// newRequest builds the outbound request with auth and content headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body any, cfg callConfig) (*http.Request, error) {
	target := c.baseURL + path
	if len(cfg.query) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}

		target += sep + cfg.query.Encode()
	}

	reader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if cfg.responseType == ResponseBinary {
		req.Header.Set("Accept", "*/*")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDKey, c.newRequestID())

	if tok := c.currentToken(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	for k, v := range cfg.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// currentToken reads the token fresh from the session. A store failure
// sends the request unauthenticated; the server decides.
func (c *Client) currentToken(ctx context.Context) string {
	if c.session == nil {
		return ""
	}

	tok, err := c.session.Token(ctx)
	if err != nil {
		c.logger.Warn("reading session token", slog.String("error", err.Error()))
		return ""
	}

	return tok
}

// handleUnauthorized clears the session and notifies the login hook.
func (c *Client) handleUnauthorized(ctx context.Context, apiErr *Error) {
	if c.session != nil {
		if err := c.session.Clear(context.WithoutCancel(ctx)); err != nil {
			c.logger.Error("clearing session after 401", slog.String("error", err.Error()))
		}
	}

	c.logger.Warn("session cleared after authentication failure")

	if c.onUnauthorized != nil {
		c.onUnauthorized(apiErr)
	}
}

// RawBody is sent verbatim with its own content type (multipart uploads).
type RawBody struct {
	ContentType string
	Reader      io.Reader
}

// encodeBody turns a request body into a reader and content type. nil means
// no body; RawBody passes through; anything else is JSON.
func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case RawBody:
		return b.Reader, b.ContentType, nil
	case *RawBody:
		return b.Reader, b.ContentType, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request body: %w", err)
		}

		return bytes.NewReader(data), "application/json", nil
	}
}

// Response is the envelope for a successful call.
type Response struct {
	Status int
	Header http.Header
	Data   []byte
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("api: decoding response: %w", err)
	}

	return nil
}

// ResponseType selects how the response body is requested.
type ResponseType int

// Response types.
const (
	ResponseJSON ResponseType = iota
	ResponseBinary
)

// RequestOption overrides client configuration for a single call.
type RequestOption func(*callConfig)

type callConfig struct {
	headers      map[string]string
	responseType ResponseType
	timeout      time.Duration
	query        url.Values
}

func newCallConfig(opts []RequestOption) callConfig {
	cfg := callConfig{headers: make(map[string]string)}
	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// WithHeader sets a header on this call, overriding client defaults.
func WithHeader(key, value string) RequestOption {
	return func(c *callConfig) {
		c.headers[key] = value
	}
}

// WithTimeout replaces the client timeout for this call, longer or shorter.
// Expiry fails as NetworkUnreachable.
func WithTimeout(d time.Duration) RequestOption {
	return func(c *callConfig) {
		c.timeout = d
	}
}

// WithResponseType selects JSON or binary handling for this call.
func WithResponseType(t ResponseType) RequestOption {
	return func(c *callConfig) {
		c.responseType = t
	}
}

// WithQuery appends query parameters to the path.
func WithQuery(q url.Values) RequestOption {
	return func(c *callConfig) {
		if c.query == nil {
			c.query = url.Values{}
		}

		for k, vs := range q {
			for _, v := range vs {
				c.query.Add(k, v)
			}
		}
	}
}
