// Package gateway performs JSON exchanges with a REST API and turns every
// failure into a classified *Error. It never retries.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/postboard/apierror"
)

const (
	contentTypeJSON  = "application/json"
	defaultUserAgent = "postboard"
)

type Client struct {
	http      *http.Client
	headers   http.Header
	userAgent string
	logger    zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithDefaultHeader adds a header to every request made by the client.
func WithDefaultHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(opts ...Option) *Client {
	c := &Client{
		http:      http.DefaultClient,
		headers:   http.Header{},
		userAgent: defaultUserAgent,
		logger:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type request struct {
	headers http.Header
}

// RequestOption customizes a single request.
type RequestOption func(*request)

// WithHeader sets a header on one request. Empty values are ignored.
func WithHeader(key, value string) RequestOption {
	return func(r *request) { r.headers.Set(key, value) }
}

func (c *Client) Get(ctx context.Context, url string, opts ...RequestOption) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, url, nil, opts...)
}

func (c *Client) Post(ctx context.Context, url string, body any, opts ...RequestOption) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, url, body, opts...)
}

func (c *Client) Put(ctx context.Context, url string, body any, opts ...RequestOption) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPut, url, body, opts...)
}

func (c *Client) Delete(ctx context.Context, url string, opts ...RequestOption) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, url, nil, opts...)
}

// Do sends one request and returns the raw JSON body. An empty 2xx body
// yields nil. Failures are always *Error.
func (c *Client) Do(ctx context.Context, method, url string, body any, opts ...RequestOption) (json.RawMessage, error) {
	r := &request{headers: http.Header{}}
	for _, o := range opts {
		o(r)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{
				Class:   apierror.KindValidation,
				Method:  method,
				URL:     url,
				Message: "encode request body: " + err.Error(),
				Err:     errors.Wrap(err, "encode request body"),
			}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, networkError(method, url, errors.Wrap(err, "build request"))
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	mergeHeaders(req.Header, c.headers)
	mergeHeaders(req.Header, r.headers)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("url", url).Msg("request failed")
		return nil, networkError(method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	c.logger.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Dur("duration", time.Since(start)).
		Msg("request complete")
	if err != nil {
		return nil, networkError(method, url, errors.Wrap(err, "read response body"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(method, url, resp)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, &Error{
			Class:      apierror.KindValidation,
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
			Method:     method,
			URL:        url,
			Message:    "API error: response is not valid JSON",
		}
	}
	return json.RawMessage(raw), nil
}

// mergeHeaders copies non-empty values from src over dst.
func mergeHeaders(dst, src http.Header) {
	for key, values := range src {
		replaced := false
		for _, v := range values {
			if v == "" {
				continue
			}
			if !replaced {
				dst.Del(key)
				replaced = true
			}
			dst.Add(key, v)
		}
	}
}
