// Package jsonplaceholder is a typed client for the JSONPlaceholder REST API.
// Every response is validated before it is returned; nothing is cached.
package jsonplaceholder

import (
	"net/url"
	"path"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/postboard/gateway"
)

const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

type Client struct {
	gw      *gateway.Client
	baseURL *url.URL
	logger  zerolog.Logger
}

type Option func(*Client)

// WithBaseURL points the client at another deployment. Unparseable values
// are ignored.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
			c.baseURL = u
		}
	}
}

func WithGateway(g *gateway.Client) Option {
	return func(c *Client) {
		if g != nil {
			c.gw = g
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(opts ...Option) *Client {
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		baseURL: u,
		logger:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.gw == nil {
		c.gw = gateway.New(gateway.WithLogger(c.logger))
	}
	return c
}

// BaseURL returns the root every endpoint is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) endpoint(p string, q map[string]string) string {
	u := *c.baseURL
	u.Path = path.Join("/", u.Path, p)
	if len(q) > 0 {
		qq := u.Query()
		for k, v := range q {
			qq.Set(k, v)
		}
		u.RawQuery = qq.Encode()
	}
	return u.String()
}

func itoa(id int) string { return strconv.Itoa(id) }
