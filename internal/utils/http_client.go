package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "go-note-sync"

// HTTPClientOptions configures [NewHTTPClient]. Zero values leave the resty
// defaults in place.
type HTTPClientOptions struct {
	BaseURL  string
	Timeout  time.Duration
	Username string
	Password string
}

// HTTPClient is a wrapper around the resty.Client HTTP client used by the
// HTTP-based drivers. It embeds *resty.Client to expose all of its methods
// directly.
//
// Example usage:
//
//	client := utils.NewHTTPClient(utils.HTTPClientOptions{BaseURL: "https://dav.example.com/notes"})
//	resp, err := client.R().Get("/info.json")
type HTTPClient struct {
	*resty.Client
}

// NewHTTPClient creates an independent client with its own connection pool.
// Basic auth is only set when a username is given. Retries stay disabled:
// drivers report failures and the retrying driver decides.
func NewHTTPClient(opts HTTPClientOptions) *HTTPClient {
	client := resty.New().
		SetHeader("User-Agent", userAgent).
		SetRetryCount(0)

	if opts.BaseURL != "" {
		client.SetBaseURL(opts.BaseURL)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.Username != "" {
		client.SetBasicAuth(opts.Username, opts.Password)
	}

	return &HTTPClient{Client: client}
}
