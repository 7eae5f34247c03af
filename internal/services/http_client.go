package services

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"diningguide/internal/version"
)

// HTTPClientOptions controls timeouts and retries for outbound HTTP.
type HTTPClientOptions struct {
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// DefaultHTTPClientOptions is used by catalog fetches, the remote completion client and image downloads.
var DefaultHTTPClientOptions = HTTPClientOptions{
	Timeout:      30 * time.Second,
	RetryCount:   3,
	RetryWait:    1 * time.Second,
	RetryMaxWait: 10 * time.Second,
}

// NewHTTPClient creates a resty client on top of a retryable transport.
func NewHTTPClient(baseURL string, opts HTTPClientOptions) *resty.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryCount
	retryClient.RetryWaitMin = opts.RetryWait
	retryClient.RetryWaitMax = opts.RetryMaxWait
	retryClient.Logger = nil

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryMaxWait).
		SetHeader("User-Agent", version.UserAgent())

	client.SetTransport(retryClient.HTTPClient.Transport)

	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}
	return client
}
