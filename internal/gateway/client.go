// internal/gateway/client.go
package gateway

import (
	"context"
	"time"
)

// Client is one driver's handle on a gateway endpoint. Every exchange is
// gated by the shared registry, so drivers pointed at the same host:port
// never overlap on the wire regardless of which goroutine calls.
type Client struct {
	endpoint  string
	registry  *Registry
	transport *Transport
	ctx       context.Context
}

// NewClient binds an endpoint key to the shared registry. ctx covers the
// pacing wait only; an exchange already on the wire is never aborted.
func NewClient(ctx context.Context, endpoint string, registry *Registry, transport *Transport) *Client {
	if ctx == nil {
		ctx = context.Background()
	}
	if transport == nil {
		transport = &Transport{}
	}
	return &Client{
		endpoint:  endpoint,
		registry:  registry,
		transport: transport,
		ctx:       ctx,
	}
}

// Endpoint returns the host:port key this client serializes on.
func (c *Client) Endpoint() string { return c.endpoint }

// Exchange performs one paced request/response round trip. A non-positive
// timeout selects the transport default.
func (c *Client) Exchange(req []byte, timeout time.Duration) ([]byte, error) {
	var resp []byte
	err := c.registry.Do(c.ctx, c.endpoint, func() error {
		var err error
		resp, err = c.transport.Exchange(c.endpoint, req, timeout)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
