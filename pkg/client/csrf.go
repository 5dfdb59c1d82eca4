package client

import (
	"context"
	"net/http"
	"strings"
)

const headerCSRFToken = "X-CSRF-Token"

// fetchCSRFToken probes the service metadata with "X-CSRF-Token: Fetch" and
// returns the token the server hands out. The token is not cached; every
// mutating call fetches its own.
func (c *Client) fetchCSRFToken(ctx context.Context) (string, error) {
	const op = "csrf_fetch"

	req, err := c.newRequest(ctx, http.MethodGet, c.uris.Metadata(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set(headerCSRFToken, "Fetch")
	// The metadata document is plain XML, not Atom.
	req.Header.Set("Accept", contentTypeXML)

	resp, err := c.send(req, op)
	if err != nil {
		return "", err
	}
	defer release(resp)

	if err := expect(resp, op, 0); err != nil {
		return "", err
	}
	return csrfToken(resp.Header)
}

// csrfToken distinguishes a present token from an absent one instead of
// blindly taking the first header value. Gateways answer "Required" when
// they refuse to issue a token; that is treated as absent.
func csrfToken(h http.Header) (string, error) {
	values := h.Values(headerCSRFToken)
	if len(values) == 0 {
		return "", protocolError("response carries no %s header", headerCSRFToken)
	}
	token := strings.TrimSpace(values[0])
	if token == "" || strings.EqualFold(token, "Required") {
		return "", protocolError("server did not issue a %s (got %q)", headerCSRFToken, token)
	}
	return token, nil
}
