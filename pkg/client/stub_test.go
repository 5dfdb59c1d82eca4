package client_test

import (
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/cmintegration/cmclient/pkg/client"
)

const (
	servicePath = "/sap/opu/odata/SAP/AI_CRM_GW_CM_CI_SRV"
	testUser    = "ci-user"
	testPass    = "s3cret"

	odataNS = `xmlns="http://www.w3.org/2005/Atom" ` +
		`xmlns:m="http://schemas.microsoft.com/ado/2007/08/dataservices/metadata" ` +
		`xmlns:d="http://schemas.microsoft.com/ado/2007/08/dataservices"`
)

// ── Atom fixtures ──────────────────────────────────────────────────────

// entry renders an <entry> without namespace declarations, for embedding in
// a feed. props are name/value pairs.
func entry(props ...string) string {
	var sb strings.Builder
	sb.WriteString(`<entry><id>x</id><content type="application/xml"><m:properties>`)
	for i := 0; i+1 < len(props); i += 2 {
		fmt.Fprintf(&sb, "<d:%s>%s</d:%s>", props[i], html.EscapeString(props[i+1]), props[i])
	}
	sb.WriteString(`</m:properties></content></entry>`)
	return sb.String()
}

// entryDoc renders a standalone entry document.
func entryDoc(props ...string) string {
	return `<?xml version="1.0" encoding="utf-8"?>` +
		strings.Replace(entry(props...), "<entry>", "<entry "+odataNS+">", 1)
}

// feedDoc renders a feed with optional xml:base and next link.
func feedDoc(base, next string, entries ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?><feed ` + odataNS)
	if base != "" {
		fmt.Fprintf(&sb, ` xml:base="%s"`, html.EscapeString(base))
	}
	sb.WriteString(`><id>feed</id><title type="text">Transports</title>`)
	for _, e := range entries {
		sb.WriteString(e)
	}
	if next != "" {
		fmt.Fprintf(&sb, `<link rel="next" href="%s"/>`, html.EscapeString(next))
	}
	sb.WriteString(`</feed>`)
	return sb.String()
}

func transportProps(t client.Transport) []string {
	return []string{
		"TransportID", t.TransportID,
		"IsModifiable", strconv.FormatBool(t.IsModifiable),
		"Description", t.Description,
		"Owner", t.Owner,
	}
}

func writeAtom(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/atom+xml;type=entry;charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, body) //nolint:errcheck
}

// ── tracking transport ─────────────────────────────────────────────────

// trackingTransport counts requests and response bodies that were never
// closed.
type trackingTransport struct {
	base     http.RoundTripper
	mu       sync.Mutex
	open     int
	requests []*http.Request
}

func (t *trackingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	t.mu.Lock()
	t.requests = append(t.requests, r)
	t.mu.Unlock()

	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.open++
	t.mu.Unlock()
	resp.Body = &trackedBody{ReadCloser: resp.Body, t: t}
	return resp, nil
}

func (t *trackingTransport) openBodies() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

func (t *trackingTransport) requestCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

type trackedBody struct {
	io.ReadCloser
	t    *trackingTransport
	once sync.Once
}

func (b *trackedBody) Close() error {
	b.once.Do(func() {
		b.t.mu.Lock()
		b.t.open--
		b.t.mu.Unlock()
	})
	return b.ReadCloser.Close()
}

// ── stub service ───────────────────────────────────────────────────────

// newStub starts handler behind servicePath and returns a client wired to
// it through a tracking transport. Requests without the expected basic auth
// credentials are rejected with 401.
func newStub(t *testing.T, handler http.HandlerFunc, opts ...client.Option) (*client.Client, *trackingTransport) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != testUser || pass != testPass {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(r.URL.Path, servicePath+"/") {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	tr := &trackingTransport{base: http.DefaultTransport}
	opts = append([]client.Option{client.WithHTTPClient(&http.Client{Transport: tr})}, opts...)
	c, err := client.New(srv.URL+servicePath, testUser, testPass, opts...)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return c, tr
}

// resource strips the service root from the request path.
func resource(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, servicePath+"/")
}
