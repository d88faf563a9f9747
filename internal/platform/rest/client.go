// Package rest is the outbound client for the citas API: bearer-token
// authenticated JSON over HTTP with the {success, data, meta} envelope.
// Credentials come from an injected TokenSource, and failures are
// classified into the transport/auth/validation/not-found taxonomy so
// the dispatch boundary can act on them uniformly.
package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Client issues requests against one API base URL.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	log    zerolog.Logger
	now    func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (e.g. for custom
// TLS or timeouts).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(cl *Client) { cl.log = log }
}

// NewClient creates a client for the given base URL. tokens may be nil
// for unauthenticated endpoints.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	cl := &Client{
		base:   u,
		http:   &http.Client{Timeout: 10 * time.Second},
		tokens: tokens,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl, nil
}

// Get issues a GET with the given query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Envelope, error) {
	return c.do(ctx, http.MethodGet, path, query, "", nil)
}

// Post issues a POST with a JSON body (nil for empty).
func (c *Client) Post(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.doJSON(ctx, http.MethodPost, path, body)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.doJSON(ctx, http.MethodPut, path, body)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) (*Envelope, error) {
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

// PostMultipart uploads a file as a multipart form under the given field
// name. The file content is forwarded opaque; parsing it is the
// server's job.
func (c *Client) PostMultipart(ctx context.Context, path, field, filename string, r io.Reader) (*Envelope, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("multipart form: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("multipart copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("multipart close: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, w.FormDataContentType(), &buf)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any) (*Envelope, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	return c.do(ctx, method, path, nil, "application/json", rd)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader) (*Envelope, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, &Error{Kind: KindAuth, Err: err}
		}
		if token != "" {
			// A plainly expired JWT fails fast without a round-trip.
			if tokenExpired(token, c.now()) {
				return nil, &Error{Kind: KindAuth, Mensaje: "token expirado"}
			}
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	env := &Envelope{}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if readErr == nil && len(raw) > 0 {
		// Tolerate non-JSON error bodies; status classification below
		// still applies.
		_ = json.Unmarshal(raw, env)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api request")

	if err := classify(resp.StatusCode, env.Mensaje); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, &Error{Kind: KindTransport, Err: readErr}
	}
	return env, nil
}

// classify maps an HTTP status to the error taxonomy; 2xx yields nil.
func classify(status int, mensaje string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindAuth, Status: status, Mensaje: mensaje}
	case status == http.StatusNotFound:
		return &Error{Kind: KindNotFound, Status: status, Mensaje: mensaje}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return &Error{Kind: KindValidation, Status: status, Mensaje: mensaje}
	default:
		return &Error{Kind: KindTransport, Status: status, Mensaje: mensaje}
	}
}
