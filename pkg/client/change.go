package client

import (
	"context"
	"net/http"
	"strings"
)

// GetChange fetches a single Change by ID. It fails with ErrConsistency when
// the server answers for a different ChangeID.
func (c *Client) GetChange(ctx context.Context, changeID string) (*Change, error) {
	const op = "get_change"

	if strings.TrimSpace(changeID) == "" {
		return nil, invalidArgument("ChangeID is blank: %q", changeID)
	}

	p, err := c.getEntity(ctx, op, c.uris.Entity(setChanges, c.uris.Key(changeID)), setChanges)
	if err != nil {
		return nil, err
	}
	change, err := changeFrom(p, changeID)
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// GetTransport fetches a single Transport by ID.
func (c *Client) GetTransport(ctx context.Context, transportID string) (*Transport, error) {
	const op = "get_transport"

	if strings.TrimSpace(transportID) == "" {
		return nil, invalidArgument("TransportID is blank: %q", transportID)
	}

	p, err := c.getEntity(ctx, op, c.uris.Entity(setTransports, c.uris.Key(transportID)), setTransports)
	if err != nil {
		return nil, err
	}
	t, err := transportFrom(p)
	if err != nil {
		return nil, err
	}
	if t.TransportID != transportID {
		return nil, consistencyError("TransportID", transportID, t.TransportID)
	}
	return &t, nil
}

// getEntity performs a GET for a single entity and decodes its properties.
func (c *Client) getEntity(ctx context.Context, op, target, entity string) (properties, error) {
	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return properties{}, err
	}
	req.Header.Set("Accept", contentTypeAtom)

	resp, err := c.send(req, op)
	if err != nil {
		return properties{}, err
	}
	defer release(resp)

	if err := expect(resp, op, 0); err != nil {
		return properties{}, err
	}
	return decodeEntity(resp, entity)
}
