// Package payload delivers canonical tax records to a callback endpoint.
package payload

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// maxBodyPreview bounds how much of a response body is kept for logs.
const maxBodyPreview = 512

// Response is the part of a callback reply the deliverer inspects.
type Response struct {
	Body       string
	StatusCode int
}

// Client defines the interface for callback transport.
type Client interface {
	Post(ctx context.Context, url string, headers http.Header, body []byte) (*Response, error)
}

// Ensure RestyClient implements Client.
var _ Client = (*RestyClient)(nil)

// RestyClient posts callbacks with resty.
type RestyClient struct {
	http *resty.Client
}

// NewRestyClient creates a client whose requests give up after timeout.
func NewRestyClient(timeout time.Duration) *RestyClient {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))

	return &RestyClient{http: client}
}

// Post sends one request. Transport failures are returned as errors; any
// HTTP status, including 4xx and 5xx, is returned as a Response.
func (c *RestyClient) Post(ctx context.Context, url string, headers http.Header, body []byte) (*Response, error) {
	req := c.http.R().
		SetContext(ctx).
		SetBody(body)

	for key := range headers {
		req.SetHeader(key, headers.Get(key))
	}

	resp, err := req.Post(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	text := resp.String()
	if len(text) > maxBodyPreview {
		text = text[:maxBodyPreview]
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       text,
	}, nil
}
