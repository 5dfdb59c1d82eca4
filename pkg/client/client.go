package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/cmintegration/cmclient/pkg/uri"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Entity sets, navigation properties and function imports of the service.
const (
	setChanges    = "Changes"
	setTransports = "Transports"
	setFiles      = "Files"
	navTransports = "Transports"

	fnCreateTransport         = "createTransport"
	fnCreateTransportAdvanced = "createTransportAdvanced"
	fnReleaseTransport        = "releaseTransport"
)

const (
	headerCorrelationID = "X-Correlation-ID"
	maxErrorBodyBytes   = 1 << 16
	defaultTimeout      = 60 * time.Second
)

// Client talks to one Change Management OData service as one user. It holds
// no mutable state beyond its HTTP session and is not meant to be shared
// between concurrent callers; construct one per command invocation.
type Client struct {
	uris       *uri.Builder
	user       string
	password   string
	httpClient *http.Client
	logger     *zap.Logger
	limiter    *rate.Limiter
	metrics    *metrics
	mode       uri.Mode
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client, overriding timeout and TLS
// options. A cookie jar is attached to a copy when hc has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return invalidArgument("HTTP client is nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
		return nil
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// Only use this against development systems with self-signed certificates.
func WithInsecureSkipVerify() Option {
	return func(c *Client) error {
		hc := *c.httpClient
		hc.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}
		c.httpClient = &hc
		return nil
	}
}

// WithLogger sets the logger used for request tracing. Defaults to a no-op
// logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// WithMetrics registers request counters and latency histograms on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) error {
		m, err := newMetrics(reg)
		if err != nil {
			return err
		}
		c.metrics = m
		return nil
	}
}

// WithRateLimit paces outgoing requests to rps requests per second with the
// given burst. Requests wait for a token; they are never dropped or retried.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 {
			return invalidArgument("rate limit must be positive, got %v", rps)
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithStrictLiterals escapes embedded quotes and URI delimiters in string
// literals, in key predicates and function-import queries alike. Without it,
// values are spliced verbatim, which corrupts the request when an
// identifier contains ' or &.
func WithStrictLiterals() Option {
	return func(c *Client) error {
		c.mode = uri.LiteralEscaped
		return nil
	}
}

// New creates a Client for the OData service rooted at serviceURL, e.g.
// "https://cm.example.com/sap/opu/odata/SAP/AI_CRM_GW_CM_CI_SRV".
//
//	c, err := client.New(serviceURL, user, password,
//	    client.WithLogger(logger),
//	    client.WithTimeout(30*time.Second),
//	)
func New(serviceURL, user, password string, opts ...Option) (*Client, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return nil, invalidArgument("service URL %q: %v", serviceURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, invalidArgument("service URL %q: scheme must be http or https", serviceURL)
	}
	if u.Host == "" {
		return nil, invalidArgument("service URL %q: missing host", serviceURL)
	}

	c := &Client{
		user:       user,
		password:   password,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
		mode:       uri.LiteralCompat,
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}

	// The CSRF token is bound to the session cookie set by the metadata probe.
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc := *c.httpClient
		hc.Jar = jar
		c.httpClient = &hc
	}

	c.uris = uri.New(serviceURL, c.mode)
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(serviceURL, user, password string, opts ...Option) *Client {
	c, err := New(serviceURL, user, password, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// ServiceURL returns the normalised service root.
func (c *Client) ServiceURL() string { return c.uris.Root() }

// newRequest builds an authenticated request. A malformed target only
// surfaces here, when the URI is about to be dereferenced.
func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request %s %s: %w", ErrTransport, method, target, err)
	}
	req.SetBasicAuth(c.user, c.password)
	return req, nil
}

// send executes req and records the outcome. The caller owns the response
// body.
func (c *Client) send(req *http.Request, op string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("%w: %s: rate limiter: %w", ErrTransport, op, err)
		}
	}

	id := uuid.NewString()
	req.Header.Set(headerCorrelationID, id)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		c.metrics.observe(op, "error", elapsed)
		c.logger.Debug("odata request failed",
			zap.String("op", op),
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.String("correlation_id", id),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, req.Method, req.URL.Redacted(), err)
	}

	c.metrics.observe(op, strconv.Itoa(resp.StatusCode), elapsed)
	c.logger.Debug("odata request",
		zap.String("op", op),
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", elapsed),
		zap.String("correlation_id", id),
	)
	return resp, nil
}

// expect checks resp against the required status; want == 0 accepts any
// 2xx. On mismatch the body is captured for diagnostics.
func expect(resp *http.Response, op string, want int) error {
	ok := resp.StatusCode == want
	if want == 0 {
		ok = resp.StatusCode >= 200 && resp.StatusCode < 300
	}
	if ok {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: body}
}

// release drains what is left of a response body and closes it so the
// connection can be reused.
func release(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxEntityBytes))
	_ = resp.Body.Close()
}
