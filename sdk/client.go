package sdk

import (
	"net/http"
	"strings"
	"sync"

	"github.com/go-jose/go-jose/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client of the product API
type Client struct {
	cfg        Config
	httpClient *http.Client
	openai     openai.Client

	lock sync.Mutex
	key  *jose.JSONWebKey
}

// NewClient returns validated Client
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	c := &Client{
		cfg:        cfg,
		httpClient: hc,
		openai: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")+"/v1/"),
			option.WithHTTPClient(hc),
			option.WithMaxRetries(cfg.MaxRetries),
		),
	}
	return c, nil
}

// Config returns the client configuration
func (c *Client) Config() Config {
	return c.cfg
}
