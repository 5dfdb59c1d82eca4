package client

import (
	"context"
	"net/http"
)

// Ping probes the service metadata document. It succeeds when the endpoint
// is reachable and accepts the credentials; nothing is read or modified.
func (c *Client) Ping(ctx context.Context) error {
	const op = "ping"

	req, err := c.newRequest(ctx, http.MethodGet, c.uris.Metadata(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", contentTypeXML)

	resp, err := c.send(req, op)
	if err != nil {
		return err
	}
	defer release(resp)

	return expect(resp, op, 0)
}
