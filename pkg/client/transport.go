package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/cmintegration/cmclient/pkg/uri"
)

// IterChangeTransports returns a lazy iterator over the transports of a
// change. No request is sent until the first call to Next. The caller must
// Close the iterator.
func (c *Client) IterChangeTransports(ctx context.Context, changeID string) (*TransportIterator, error) {
	if strings.TrimSpace(changeID) == "" {
		return nil, invalidArgument("ChangeID was blank: %q", changeID)
	}
	return &TransportIterator{
		c:    c,
		ctx:  ctx,
		op:   "get_change_transports",
		next: c.uris.Navigation(setChanges, c.uris.Key(changeID), navTransports),
	}, nil
}

// GetChangeTransports returns every transport of a change in server order,
// following next links across pages.
func (c *Client) GetChangeTransports(ctx context.Context, changeID string) ([]Transport, error) {
	it, err := c.IterChangeTransports(ctx, changeID)
	if err != nil {
		return nil, err
	}
	defer it.Close() //nolint:errcheck

	transports := []Transport{}
	for it.Next() {
		transports = append(transports, it.Transport())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return transports, nil
}

// CreateTransport creates a development transport under changeID using the
// createTransport function import.
func (c *Client) CreateTransport(ctx context.Context, changeID string) (*Transport, error) {
	if strings.TrimSpace(changeID) == "" {
		return nil, invalidArgument("ChangeID is blank: %q", changeID)
	}
	return c.createTransport(ctx, "create_transport", fnCreateTransport,
		uri.P("ChangeID", changeID),
	)
}

// CreateTransportAdvanced creates a development transport with an explicit
// description and owner using the createTransportAdvanced function import.
func (c *Client) CreateTransportAdvanced(ctx context.Context, changeID, description, owner string) (*Transport, error) {
	if strings.TrimSpace(changeID) == "" {
		return nil, invalidArgument("ChangeID is blank: %q", changeID)
	}
	return c.createTransport(ctx, "create_transport_advanced", fnCreateTransportAdvanced,
		uri.P("ChangeID", changeID),
		uri.P("Description", description),
		uri.P("Owner", owner),
	)
}

func (c *Client) createTransport(ctx context.Context, op, function string, params ...uri.Param) (*Transport, error) {
	resp, err := c.invoke(ctx, op, function, params...)
	if err != nil {
		return nil, err
	}
	defer release(resp)

	p, err := decodeEntity(resp, setTransports)
	if err != nil {
		return nil, err
	}
	t, err := transportFrom(p)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ReleaseTransport releases a transport of a change using the
// releaseTransport function import.
func (c *Client) ReleaseTransport(ctx context.Context, changeID, transportID string) error {
	if strings.TrimSpace(changeID) == "" {
		return invalidArgument("ChangeID is null or blank: %q", changeID)
	}
	if strings.TrimSpace(transportID) == "" {
		return invalidArgument("TransportID is null or blank: %q", transportID)
	}

	resp, err := c.invoke(ctx, "release_transport", fnReleaseTransport,
		uri.P("ChangeID", changeID),
		uri.P("TransportID", transportID),
	)
	if err != nil {
		return err
	}
	release(resp)
	return nil
}

// invoke POSTs a function import and requires HTTP 200. On success the
// caller owns the response.
func (c *Client) invoke(ctx context.Context, op, function string, params ...uri.Param) (*http.Response, error) {
	target := c.uris.FunctionCall(function, c.uris.Query(params...))

	req, err := c.newRequest(ctx, http.MethodPost, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", contentTypeAtom)

	resp, err := c.send(req, op)
	if err != nil {
		return nil, err
	}
	if err := expect(resp, op, http.StatusOK); err != nil {
		release(resp)
		return nil, err
	}
	return resp, nil
}
