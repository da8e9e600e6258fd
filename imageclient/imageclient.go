// Package imageclient talks to the external image-provider HTTP service.
package imageclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hazyhaar/sensenrich/envelope"
	"github.com/hazyhaar/sensenrich/horosafe"
)

// defaultTimeout is the HTTP client's own finite timeout. The pipeline
// has no per-operation timeout of its own, so this is what bounds a
// stuck fetch.
const defaultTimeout = 8 * time.Second

// Options tunes endpoint validation and the HTTP client.
type Options struct {
	// AllowPrivateHost permits endpoints on private or loopback
	// addresses. The image service normally runs on the operator's own
	// network segment, so production wiring sets it; scheme and host
	// checks still apply.
	AllowPrivateHost bool

	// Timeout overrides defaultTimeout when positive.
	Timeout time.Duration
}

// Client issues image enrichment requests against one fixed endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// New validates endpoint per horosafe.ValidateURL and returns a Client
// bound to it. Private and loopback targets are rejected unless
// opts.AllowPrivateHost is set.
func New(endpoint string, opts Options) (*Client, error) {
	if err := horosafe.ValidateURL(endpoint); err != nil {
		if !(opts.AllowPrivateHost && errors.Is(err, horosafe.ErrSSRF)) {
			return nil, fmt.Errorf("imageclient: %w", err)
		}
	}
	c := newClient(endpoint)
	if opts.Timeout > 0 {
		c.http.Timeout = opts.Timeout
	}
	return c, nil
}

func newClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultTimeout},
	}
}

// ErrAPIError wraps any non-2xx response, transport failure, or
// malformed body. It carries no usable image; the caller drops the
// record without retry.
type ErrAPIError struct {
	StatusCode int
	Reason     string
}

func (e *ErrAPIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("imageclient: api error: %s", e.Reason)
	}
	return fmt.Sprintf("imageclient: api error: status %d: %s", e.StatusCode, e.Reason)
}

// Fetch POSTs req to the configured endpoint and returns the image
// string from a 2xx JSON response. HTTP timeouts, non-2xx statuses, and
// missing "image" fields are all reported as *ErrAPIError.
func (c *Client) Fetch(ctx context.Context, req envelope.ImageRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("imageclient: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("imageclient: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &ErrAPIError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ErrAPIError{StatusCode: resp.StatusCode, Reason: "non-2xx response"}
	}

	data, err := horosafe.LimitedReadAll(resp.Body, horosafe.MaxResponseBody)
	if err != nil {
		return "", &ErrAPIError{StatusCode: resp.StatusCode, Reason: err.Error()}
	}

	var out envelope.ImageResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", &ErrAPIError{StatusCode: resp.StatusCode, Reason: "malformed response body"}
	}
	if out.Image == "" {
		return "", &ErrAPIError{StatusCode: resp.StatusCode, Reason: "missing image field"}
	}
	return out.Image, nil
}
