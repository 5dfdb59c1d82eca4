package client

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxPages bounds how many next links a single listing follows.
const maxPages = 10000

// TransportIterator walks a (possibly paginated) Transports feed. Pages are
// requested only when the previous one is exhausted, and entries are decoded
// from the open response body as Next is called.
//
//	it, err := c.IterChangeTransports(ctx, changeID)
//	if err != nil { ... }
//	defer it.Close()
//	for it.Next() {
//	    t := it.Transport()
//	}
//	if err := it.Err(); err != nil { ... }
type TransportIterator struct {
	c     *Client
	ctx   context.Context
	op    string
	next  string
	page  feedPage
	pages int
	seen  map[string]bool
	cur   Transport
	err   error
	done  bool
}

// feedPage is one fetched page of a feed.
type feedPage interface {
	// entry returns the next entry's properties, or ok == false once the
	// page is exhausted.
	entry() (p properties, ok bool, err error)
	// nextLink is the absolute URL of the following page, valid once entry
	// has reported exhaustion.
	nextLink() string
	close()
}

// Next advances to the next transport. It returns false when the feed is
// exhausted or an error occurred; check Err afterwards.
func (it *TransportIterator) Next() bool {
	if it.done || it.err != nil {
		return false
	}
	for {
		if it.page == nil {
			if it.next == "" {
				it.done = true
				return false
			}
			if it.pages >= maxPages {
				it.fail(protocolError("%s: more than %d pages", it.op, maxPages))
				return false
			}
			if it.visit(it.next) {
				it.fail(protocolError("%s: next link %q revisits an earlier page", it.op, it.next))
				return false
			}
			page, err := it.c.openFeedPage(it.ctx, it.op, it.next)
			if err != nil {
				it.fail(err)
				return false
			}
			it.pages++
			it.page = page
			it.next = ""
		}

		p, ok, err := it.page.entry()
		if err != nil {
			it.fail(err)
			return false
		}
		if ok {
			t, err := transportFrom(p)
			if err != nil {
				it.fail(err)
				return false
			}
			it.cur = t
			return true
		}

		it.next = it.page.nextLink()
		it.page.close()
		it.page = nil
	}
}

// Transport returns the transport Next advanced to.
func (it *TransportIterator) Transport() Transport { return it.cur }

// Err returns the first error encountered while iterating.
func (it *TransportIterator) Err() error { return it.err }

// Close releases the current page, if any. It is safe to call more than
// once and after Next has returned false.
func (it *TransportIterator) Close() error {
	if it.page != nil {
		it.page.close()
		it.page = nil
	}
	it.done = true
	return nil
}

// visit records target as fetched and reports whether it was fetched
// before.
func (it *TransportIterator) visit(target string) bool {
	key := target
	if u, err := url.Parse(target); err == nil {
		key = u.String()
	}
	if it.seen == nil {
		it.seen = make(map[string]bool)
	}
	if it.seen[key] {
		return true
	}
	it.seen[key] = true
	return false
}

func (it *TransportIterator) fail(err error) {
	it.err = err
	if it.page != nil {
		it.page.close()
		it.page = nil
	}
}

// openFeedPage GETs one feed page. The response is released here on every
// failure path; on success the returned page owns it.
func (c *Client) openFeedPage(ctx context.Context, op, target string) (feedPage, error) {
	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", contentTypeAtom)

	resp, err := c.send(req, op)
	if err != nil {
		return nil, err
	}
	if err := expect(resp, op, 0); err != nil {
		release(resp)
		return nil, err
	}

	if mediaType(resp) == contentTypeJSON {
		defer release(resp)
		entries, next, err := decodeJSONFeed(io.LimitReader(resp.Body, maxEntityBytes), setTransports)
		if err != nil {
			return nil, err
		}
		page := &jsonPage{entries: entries}
		if next != "" {
			if page.next, err = resolveLink(req.URL, "", next); err != nil {
				return nil, err
			}
		}
		return page, nil
	}

	return &atomPage{
		resp: resp,
		dec:  xml.NewDecoder(resp.Body),
		url:  req.URL,
	}, nil
}

// ── Atom page ──────────────────────────────────────────────────────────────

type atomPage struct {
	resp   *http.Response
	dec    *xml.Decoder
	url    *url.URL
	base   string
	next   string
	inFeed bool
	done   bool
}

func (p *atomPage) entry() (properties, bool, error) {
	if p.done {
		return properties{}, false, nil
	}
	for {
		tok, err := p.dec.Token()
		if errors.Is(err, io.EOF) {
			if !p.inFeed {
				return properties{}, false, protocolError("%s: response contains no feed", setTransports)
			}
			p.done = true
			return properties{}, false, nil
		}
		if err != nil {
			return properties{}, false, streamError("decode feed", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !p.inFeed {
				if t.Name.Space != nsAtom || t.Name.Local != "feed" {
					return properties{}, false, protocolError("%s: expected feed, got <%s>", setTransports, t.Name.Local)
				}
				p.inFeed = true
				p.base = attr(t, nsXML, "base")
				continue
			}
			switch {
			case t.Name.Space == nsAtom && t.Name.Local == "entry":
				var e atomEntry
				if err := p.dec.DecodeElement(&e, &t); err != nil {
					return properties{}, false, streamError("decode entry", err)
				}
				props, err := e.properties(setTransports)
				return props, err == nil, err
			case t.Name.Space == nsAtom && t.Name.Local == "link" && attr(t, "", "rel") == "next":
				href := attr(t, "", "href")
				if href != "" {
					next, err := resolveLink(p.url, p.base, href)
					if err != nil {
						return properties{}, false, err
					}
					p.next = next
				}
				if err := p.dec.Skip(); err != nil {
					return properties{}, false, streamError("decode feed", err)
				}
			default:
				if err := p.dec.Skip(); err != nil {
					return properties{}, false, streamError("decode feed", err)
				}
			}
		case xml.EndElement:
			// </feed>
			p.done = true
			return properties{}, false, nil
		}
	}
}

func (p *atomPage) nextLink() string { return p.next }

func (p *atomPage) close() { release(p.resp) }

// ── JSON page ──────────────────────────────────────────────────────────────

type jsonPage struct {
	entries []properties
	next    string
}

func (p *jsonPage) entry() (properties, bool, error) {
	if len(p.entries) == 0 {
		return properties{}, false, nil
	}
	e := p.entries[0]
	p.entries = p.entries[1:]
	return e, true, nil
}

func (p *jsonPage) nextLink() string { return p.next }

func (p *jsonPage) close() {}

// ── helpers ────────────────────────────────────────────────────────────────

// streamError classifies a failure while reading a page body. Malformed XML
// is a protocol error; anything else came from the connection.
func streamError(what string, err error) error {
	var syntaxErr *xml.SyntaxError
	var unmarshalErr xml.UnmarshalError
	if errors.As(err, &syntaxErr) || errors.As(err, &unmarshalErr) {
		return protocolError("%s: %s: %v", setTransports, what, err)
	}
	return fmt.Errorf("%w: %s: %s: %w", ErrTransport, setTransports, what, err)
}

func attr(se xml.StartElement, space, local string) string {
	for _, a := range se.Attr {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// resolveLink resolves href against xml:base (when set) and then against the
// URL of the page it was found on.
func resolveLink(page *url.URL, base, href string) (string, error) {
	ref := page
	if base = strings.TrimSpace(base); base != "" {
		b, err := url.Parse(base)
		if err != nil {
			return "", protocolError("invalid xml:base %q: %v", base, err)
		}
		ref = page.ResolveReference(b)
	}
	h, err := url.Parse(href)
	if err != nil {
		return "", protocolError("invalid next link %q: %v", href, err)
	}
	next := ref.ResolveReference(h)
	if next.String() == page.String() {
		return "", protocolError("next link %q points back to the current page", href)
	}
	return next.String(), nil
}
